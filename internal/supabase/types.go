package supabase

// NewDocument is the insert payload for the documents table.
type NewDocument struct {
	Name           string `json:"name"`
	SizeBytes      int    `json:"size_bytes"`
	MimeType       string `json:"mime_type"`
	StoragePath    string `json:"storage_path"`
	OrganizationID string `json:"organization_id"`
}

// Document is a row of the documents table as returned by PostgREST.
type Document struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SizeBytes      int    `json:"size_bytes"`
	MimeType       string `json:"mime_type"`
	StoragePath    string `json:"storage_path"`
	OrganizationID string `json:"organization_id"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Run is a row of the runs table. Timestamps stay as the wire strings;
// the harness only ever prints them.
type Run struct {
	ID                  string `json:"id"`
	DocumentID          string `json:"document_id,omitempty"`
	ProcessorID         string `json:"processor_id,omitempty"`
	Status              string `json:"status"`
	TotalOperations     int    `json:"total_operations"`
	CompletedOperations int    `json:"completed_operations"`
	FailedOperations    int    `json:"failed_operations"`
	StartedAt           string `json:"started_at,omitempty"`
	CompletedAt         string `json:"completed_at,omitempty"`
}
