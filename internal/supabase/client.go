package supabase

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client communicates with a hosted platform instance over HTTP: the
// object storage API, the PostgREST database API, and the edge function
// runtime. Every request authenticates with the service role key, the
// way the platform's own operational tooling does.
type Client struct {
	baseURL         string
	serviceRoleKey  string
	functionTimeout time.Duration
	httpClient      *http.Client
}

// New creates a Client for the given platform base URL.
// If functionTimeout is <= 0, it defaults to 30s.
func New(baseURL, serviceRoleKey string, functionTimeout time.Duration) *Client {
	if functionTimeout <= 0 {
		functionTimeout = 30 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		serviceRoleKey:  serviceRoleKey,
		functionTimeout: functionTimeout,
		httpClient:      &http.Client{},
	}
}

// BaseURL returns the platform base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a response from the platform with an unexpected HTTP status.
// It carries the status code and the raw response body for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

const maxErrorBodySize = 1 << 20 // 1MB

// unexpectedStatus drains the response body into an *APIError.
func unexpectedStatus(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("(failed to read body: %v)", err)}
	}
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
