// Package mockapi serves a local stand-in for the four platform endpoints
// the smoke scenario calls, so the harness can be exercised without a
// hosted project: object upload, document insert, the
// execute-processor-run function, and the filtered runs read.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/validai/runcheck/internal/store"
)

const maxUploadSize = 50 << 20 // 50MB

// Deps wires the handler to its state store and auth token.
type Deps struct {
	Store *store.Store
	Token string
}

// NewHandler builds the mock platform router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(deps.Token))
		r.Post("/storage/v1/object/{bucket}/*", handleUpload(deps))
		r.Post("/rest/v1/documents", handleInsertDocument(deps))
		r.Get("/rest/v1/runs", handleGetRuns(deps))
		r.Post("/functions/v1/execute-processor-run", handleExecuteRun(deps))
	})

	return r
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket := chi.URLParam(r, "bucket")
		path := chi.URLParam(r, "*")
		if path == "" {
			httpError(w, http.StatusBadRequest, "object path is required")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "reading upload body: %v", err)
			return
		}

		obj := store.Object{
			Bucket:      bucket,
			Path:        path,
			ContentType: r.Header.Get("Content-Type"),
			Data:        data,
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveObject(obj); err != nil {
			httpError(w, http.StatusInternalServerError, "saving object: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"Key": bucket + "/" + path})
	}
}

type documentPayload struct {
	Name           string `json:"name"`
	SizeBytes      int    `json:"size_bytes"`
	MimeType       string `json:"mime_type"`
	StoragePath    string `json:"storage_path"`
	OrganizationID string `json:"organization_id"`
}

func handleInsertDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload documentPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if payload.Name == "" || payload.StoragePath == "" {
			httpError(w, http.StatusBadRequest, "name and storage_path are required")
			return
		}

		doc := store.Document{
			ID:             uuid.New().String(),
			Name:           payload.Name,
			SizeBytes:      payload.SizeBytes,
			MimeType:       payload.MimeType,
			StoragePath:    payload.StoragePath,
			OrganizationID: payload.OrganizationID,
			CreatedAt:      time.Now().UTC(),
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "saving document: %v", err)
			return
		}

		// PostgREST answers the representation as a one-element list.
		writeJSON(w, http.StatusCreated, []documentRow{documentJSON(doc)})
	}
}

type executePayload struct {
	ProcessorID string `json:"processor_id"`
	DocumentID  string `json:"document_id"`
}

// runOperations is how many operations the simulated processor performs.
const runOperations = 3

func handleExecuteRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload executePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if payload.ProcessorID == "" || payload.DocumentID == "" {
			httpError(w, http.StatusBadRequest, "processor_id and document_id are required")
			return
		}

		if _, err := deps.Store.GetDocument(payload.DocumentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httpError(w, http.StatusNotFound, "document %s not found", payload.DocumentID)
				return
			}
			httpError(w, http.StatusInternalServerError, "loading document: %v", err)
			return
		}

		run := store.Run{
			ID:              uuid.New().String(),
			DocumentID:      payload.DocumentID,
			ProcessorID:     payload.ProcessorID,
			TotalOperations: runOperations,
			CreatedAt:       time.Now().UTC(),
		}
		if err := deps.Store.CreateRun(run); err != nil {
			httpError(w, http.StatusInternalServerError, "creating run: %v", err)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"run_id": run.ID})
	}
}

func handleGetRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("id")
		if !strings.HasPrefix(filter, "eq.") {
			httpError(w, http.StatusBadRequest, "only id=eq.<run_id> filters are supported")
			return
		}
		runID := strings.TrimPrefix(filter, "eq.")

		run, err := deps.Store.GetRun(runID)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, []runRow{})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "loading run: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, []runRow{runJSON(run)})
	}
}

// documentRow and runRow are the PostgREST wire shapes of the mock tables.

type documentRow struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SizeBytes      int    `json:"size_bytes"`
	MimeType       string `json:"mime_type"`
	StoragePath    string `json:"storage_path"`
	OrganizationID string `json:"organization_id"`
	CreatedAt      string `json:"created_at"`
}

func documentJSON(d store.Document) documentRow {
	return documentRow{
		ID:             d.ID,
		Name:           d.Name,
		SizeBytes:      d.SizeBytes,
		MimeType:       d.MimeType,
		StoragePath:    d.StoragePath,
		OrganizationID: d.OrganizationID,
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
	}
}

type runRow struct {
	ID                  string `json:"id"`
	DocumentID          string `json:"document_id"`
	ProcessorID         string `json:"processor_id"`
	Status              string `json:"status"`
	TotalOperations     int    `json:"total_operations"`
	CompletedOperations int    `json:"completed_operations"`
	FailedOperations    int    `json:"failed_operations"`
	StartedAt           string `json:"started_at,omitempty"`
	CompletedAt         string `json:"completed_at,omitempty"`
}

func runJSON(r store.Run) runRow {
	return runRow{
		ID:                  r.ID,
		DocumentID:          r.DocumentID,
		ProcessorID:         r.ProcessorID,
		Status:              r.Status,
		TotalOperations:     r.TotalOperations,
		CompletedOperations: r.CompletedOperations,
		FailedOperations:    r.FailedOperations,
		StartedAt:           r.StartedAt,
		CompletedAt:         r.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}
