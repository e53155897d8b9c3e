package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Object is an uploaded storage object, keyed by bucket and path.
type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Document is a row of the mock documents table.
type Document struct {
	ID             string
	Name           string
	SizeBytes      int
	MimeType       string
	StoragePath    string
	OrganizationID string
	CreatedAt      time.Time
}

// Run is a processor run owned by the mock platform.
// StartedAt and CompletedAt are RFC3339 strings, empty until set,
// matching how the real platform serializes them over PostgREST.
type Run struct {
	ID                  string
	DocumentID          string
	ProcessorID         string
	Status              string // "queued", "running", "completed", "failed"
	TotalOperations     int
	CompletedOperations int
	FailedOperations    int
	StartedAt           string
	CompletedAt         string
	CreatedAt           time.Time
}
