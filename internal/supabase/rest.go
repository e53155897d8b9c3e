package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// restHeaders sets the PostgREST auth headers: the service role key acts
// as both the project API key and the bearer token.
func (c *Client) restHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
}

// InsertDocument inserts a row into the documents table and returns the
// created row. PostgREST answers the representation as a one-element list;
// a bare object is unwrapped the same way.
func (c *Client) InsertDocument(ctx context.Context, doc NewDocument) (Document, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("marshalling document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/documents", bytes.NewReader(payload))
	if err != nil {
		return Document{}, fmt.Errorf("creating insert request: %w", err)
	}
	c.restHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("inserting document record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Document{}, unexpectedStatus(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("reading insert response: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return Document{}, fmt.Errorf("decoding insert response: %w", err)
		}
		if len(docs) == 0 {
			return Document{}, fmt.Errorf("insert returned empty representation")
		}
		return docs[0], nil
	}

	var created Document
	if err := json.Unmarshal(trimmed, &created); err != nil {
		return Document{}, fmt.Errorf("decoding insert response: %w", err)
	}
	return created, nil
}

// GetRun reads the runs table filtered by run id. The second return value
// reports whether a matching row exists.
func (c *Client) GetRun(ctx context.Context, runID string) (Run, bool, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/runs?id=eq.%s&select=*", c.baseURL, url.QueryEscape(runID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("creating run query: %w", err)
	}
	c.restHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Run{}, false, fmt.Errorf("querying run %s: %w", runID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Run{}, false, unexpectedStatus(resp)
	}

	var runs []Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		return Run{}, false, fmt.Errorf("decoding run query response: %w", err)
	}
	if len(runs) == 0 {
		return Run{}, false, nil
	}
	return runs[0], true, nil
}
