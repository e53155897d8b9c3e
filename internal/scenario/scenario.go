package scenario

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/validai/runcheck/internal/fixture"
	"github.com/validai/runcheck/internal/supabase"
)

// Scenario drives the end-to-end smoke test against a platform instance:
// upload a fixture, create its document record, trigger a processor run,
// and read the run status back. Steps are strictly sequential; the first
// failure aborts and later steps never execute.
type Scenario struct {
	client         *supabase.Client
	processorID    string
	organizationID string
	bucket         string
	statusDelay    time.Duration
	out            io.Writer
}

// Options configures a Scenario.
type Options struct {
	ProcessorID    string
	OrganizationID string
	Bucket         string
	// StatusDelay is the fixed wait before the single status snapshot.
	// If <= 0, it defaults to 2s.
	StatusDelay time.Duration
	// Out receives step-by-step progress. If nil, output is discarded.
	Out io.Writer
}

// New creates a Scenario for the given platform client.
func New(client *supabase.Client, opts Options) *Scenario {
	if opts.StatusDelay <= 0 {
		opts.StatusDelay = 2 * time.Second
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Scenario{
		client:         client,
		processorID:    opts.ProcessorID,
		organizationID: opts.OrganizationID,
		bucket:         opts.Bucket,
		statusDelay:    opts.StatusDelay,
		out:            opts.Out,
	}
}

// Report collects the identifiers produced by a completed scenario.
type Report struct {
	StoragePath string
	DocumentID  string
	RunID       string
	// Run is the status snapshot, nil when the run row was not yet visible.
	Run *supabase.Run
}

// StoragePath builds the namespaced object path for an upload. The random
// suffix keeps repeated smoke runs from colliding on the same object.
func StoragePath(organizationID, fileName string) string {
	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s/%s-%s%s", organizationID, stem, suffix, ext)
}

// UploadFixture uploads the fixture bytes to the storage bucket and
// returns the object path.
func (s *Scenario) UploadFixture(ctx context.Context, f fixture.Fixture) (string, error) {
	fmt.Fprintf(s.out, "\n=== Step 1: Uploading document to storage ===\n")

	path := StoragePath(s.organizationID, f.Name)
	if err := s.client.UploadObject(ctx, s.bucket, path, f.MimeType, f.Data); err != nil {
		return "", fmt.Errorf("uploading to storage: %w", err)
	}

	fmt.Fprintf(s.out, "Uploaded to storage: %s\n", path)
	return path, nil
}

// CreateRecord inserts the document row describing an uploaded fixture.
func (s *Scenario) CreateRecord(ctx context.Context, f fixture.Fixture, storagePath string) (supabase.Document, error) {
	fmt.Fprintf(s.out, "\n=== Step 2: Creating document record in database ===\n")

	doc, err := s.client.InsertDocument(ctx, supabase.NewDocument{
		Name:           f.Name,
		SizeBytes:      f.Size(),
		MimeType:       f.MimeType,
		StoragePath:    storagePath,
		OrganizationID: s.organizationID,
	})
	if err != nil {
		return supabase.Document{}, fmt.Errorf("creating document record: %w", err)
	}
	if doc.ID == "" {
		return supabase.Document{}, fmt.Errorf("document record missing id")
	}

	fmt.Fprintf(s.out, "Created document record: %s\n", doc.ID)
	return doc, nil
}

// ExecuteRun triggers the processor run for the given document and
// returns the run id. Anything but 202 from the function is a failure;
// there is no retry.
func (s *Scenario) ExecuteRun(ctx context.Context, documentID string) (string, error) {
	fmt.Fprintf(s.out, "\n=== Step 3: Executing processor run ===\n")
	fmt.Fprintf(s.out, "Processor: %s\n", s.processorID)

	runID, err := s.client.ExecuteProcessorRun(ctx, s.processorID, documentID)
	if err != nil {
		return "", fmt.Errorf("executing processor run: %w", err)
	}

	fmt.Fprintf(s.out, "Run initiated: %s\n", runID)
	return runID, nil
}

// CheckRunStatus reads the run row once and prints its status fields.
// A run row that is not visible yet is reported but is not an error; the
// run was accepted and may simply not have been written through.
func (s *Scenario) CheckRunStatus(ctx context.Context, runID string) (*supabase.Run, error) {
	fmt.Fprintf(s.out, "\n=== Step 4: Checking run status ===\n")

	run, found, err := s.client.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("checking run status: %w", err)
	}
	if !found {
		fmt.Fprintf(s.out, "Run %s not visible yet\n", runID)
		return nil, nil
	}

	s.printRun(run)
	return &run, nil
}

func (s *Scenario) printRun(run supabase.Run) {
	fmt.Fprintf(s.out, "Status: %s\n", run.Status)
	fmt.Fprintf(s.out, "Total operations: %d\n", run.TotalOperations)
	fmt.Fprintf(s.out, "Completed: %d\n", run.CompletedOperations)
	fmt.Fprintf(s.out, "Failed: %d\n", run.FailedOperations)
	fmt.Fprintf(s.out, "Started: %s\n", orNA(run.StartedAt))
	fmt.Fprintf(s.out, "Completed at: %s\n", orNA(run.CompletedAt))
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// Run executes all four steps in order, waiting the fixed status delay
// between trigger and snapshot, and prints the final summary.
func (s *Scenario) Run(ctx context.Context, f fixture.Fixture) (*Report, error) {
	rep := &Report{}

	path, err := s.UploadFixture(ctx, f)
	if err != nil {
		return rep, err
	}
	rep.StoragePath = path

	doc, err := s.CreateRecord(ctx, f, path)
	if err != nil {
		return rep, err
	}
	rep.DocumentID = doc.ID

	runID, err := s.ExecuteRun(ctx, doc.ID)
	if err != nil {
		return rep, err
	}
	rep.RunID = runID

	// Give the run a moment to start before the one-shot snapshot.
	select {
	case <-ctx.Done():
		return rep, ctx.Err()
	case <-time.After(s.statusDelay):
	}

	run, err := s.CheckRunStatus(ctx, runID)
	if err != nil {
		return rep, err
	}
	rep.Run = run

	s.printSummary(rep)
	return rep, nil
}

func (s *Scenario) printSummary(rep *Report) {
	base := s.client.BaseURL()
	fmt.Fprintf(s.out, "\n=== Smoke test complete ===\n")
	fmt.Fprintf(s.out, "Run ID: %s\n", rep.RunID)
	fmt.Fprintf(s.out, "Document ID: %s\n", rep.DocumentID)
	fmt.Fprintf(s.out, "\nMonitor progress:\n")
	fmt.Fprintf(s.out, "  Runs:              %s/rest/v1/runs?id=eq.%s\n", base, rep.RunID)
	fmt.Fprintf(s.out, "  Operation results: %s/rest/v1/operation_results?run_id=eq.%s\n", base, rep.RunID)
}

// terminal run states; anything else means the run is still moving.
func isTerminal(status string) bool {
	switch status {
	case "completed", "failed", "cancelled":
		return true
	}
	return false
}

// WaitForCompletion polls the run until it reaches a terminal state or
// the timeout elapses. Used by --watch; the default scenario keeps the
// original single-snapshot behavior.
func (s *Scenario) WaitForCompletion(ctx context.Context, runID string, interval, timeout time.Duration) (supabase.Run, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last supabase.Run
	var seen bool
	timedOut := func() error {
		if seen {
			return fmt.Errorf("run %s did not finish in %s (last status %s)", runID, timeout, last.Status)
		}
		return fmt.Errorf("run %s did not finish in %s", runID, timeout)
	}
	for {
		run, found, err := s.client.GetRun(ctx, runID)
		if err != nil {
			// The poll budget can expire while a request is in flight;
			// report that as a timeout, not a transport failure.
			if ctx.Err() != nil {
				return last, timedOut()
			}
			return supabase.Run{}, fmt.Errorf("polling run %s: %w", runID, err)
		}
		if found {
			if !seen || run.Status != last.Status || run.CompletedOperations != last.CompletedOperations {
				fmt.Fprintf(s.out, "Run %s: %s (%d/%d operations, %d failed)\n",
					runID, run.Status, run.CompletedOperations, run.TotalOperations, run.FailedOperations)
			}
			last, seen = run, true
			if isTerminal(run.Status) {
				return run, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, timedOut()
		case <-time.After(interval):
		}
	}
}
