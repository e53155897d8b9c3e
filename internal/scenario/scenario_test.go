package scenario

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/validai/runcheck/internal/fixture"
	"github.com/validai/runcheck/internal/supabase"
)

var ctx = context.Background()

var testFixture = fixture.Fixture{
	Name:     "test-contract.txt",
	MimeType: "text/plain",
	Data:     []byte("This agreement is made between the parties."),
}

// platformStub records requests and plays back canned responses for the
// four platform endpoints.
type platformStub struct {
	mu       sync.Mutex
	requests []string
	handler  http.HandlerFunc
	server   *httptest.Server
}

func newPlatformStub(t *testing.T, handler http.HandlerFunc) *platformStub {
	t.Helper()
	ps := &platformStub{handler: handler}
	ps.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.requests = append(ps.requests, r.Method+" "+r.URL.Path)
		ps.mu.Unlock()
		ps.handler(w, r)
	}))
	t.Cleanup(ps.server.Close)
	return ps
}

func (ps *platformStub) recorded() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]string(nil), ps.requests...)
}

func (ps *platformStub) scenario(out *bytes.Buffer) *Scenario {
	client := supabase.New(ps.server.URL, "service", time.Second)
	return New(client, Options{
		ProcessorID:    "proc-9",
		OrganizationID: "org-1",
		Bucket:         "documents",
		StatusDelay:    time.Millisecond,
		Out:            out,
	})
}

func happyHandler(runStatus string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
			w.WriteHeader(http.StatusCreated)
		case r.Method == "POST" && r.URL.Path == "/rest/v1/documents":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`[{"id":"doc-1"}]`))
		case r.Method == "POST" && r.URL.Path == "/functions/v1/execute-processor-run":
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"run_id":"run-1"}`))
		case r.Method == "GET" && r.URL.Path == "/rest/v1/runs":
			w.Write([]byte(`[{"id":"run-1","status":"` + runStatus + `","total_operations":3,"completed_operations":3,"failed_operations":0,"started_at":"t0"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestStoragePath_Unique(t *testing.T) {
	a := StoragePath("org-1", "test-contract.txt")
	b := StoragePath("org-1", "test-contract.txt")

	if a == b {
		t.Errorf("two generated paths are equal: %q", a)
	}
	for _, p := range []string{a, b} {
		if !strings.HasPrefix(p, "org-1/test-contract-") {
			t.Errorf("path = %q, want org prefix and file stem", p)
		}
		if !strings.HasSuffix(p, ".txt") {
			t.Errorf("path = %q, want original extension preserved", p)
		}
	}
}

func TestRun_EndToEnd(t *testing.T) {
	ps := newPlatformStub(t, happyHandler("completed"))

	var out bytes.Buffer
	rep, err := ps.scenario(&out).Run(ctx, testFixture)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, want doc-1", rep.DocumentID)
	}
	if rep.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", rep.RunID)
	}
	if rep.Run == nil || rep.Run.Status != "completed" {
		t.Errorf("Run snapshot = %+v, want completed", rep.Run)
	}

	summary := out.String()
	for _, want := range []string{"run-1", "doc-1", "Status: completed", "Completed at: N/A"} {
		if !strings.Contains(summary, want) {
			t.Errorf("output missing %q:\n%s", want, summary)
		}
	}

	reqs := ps.recorded()
	if len(reqs) != 4 {
		t.Fatalf("expected 4 requests, got %d: %v", len(reqs), reqs)
	}
	if !strings.HasPrefix(reqs[0], "POST /storage/v1/object/documents/org-1/") {
		t.Errorf("first request = %q, want storage upload", reqs[0])
	}
	if reqs[3] != "GET /rest/v1/runs" {
		t.Errorf("last request = %q, want run status read", reqs[3])
	}
}

func TestRun_UploadFailureAborts(t *testing.T) {
	ps := newPlatformStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"storage down"}`))
	})

	var out bytes.Buffer
	_, err := ps.scenario(&out).Run(ctx, testFixture)
	if err == nil {
		t.Fatal("expected error for failed upload")
	}

	var apiErr *supabase.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *supabase.APIError", err)
	}
	if apiErr.StatusCode != 500 || !strings.Contains(apiErr.Body, "storage down") {
		t.Errorf("APIError = %+v, want status and body preserved", apiErr)
	}

	if reqs := ps.recorded(); len(reqs) != 1 {
		t.Errorf("expected exactly 1 request after upload failure, got %v", reqs)
	}
}

func TestRun_TriggerFailureSkipsStatusCheck(t *testing.T) {
	ps := newPlatformStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/rest/v1/documents":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`[{"id":"doc-1"}]`))
		case r.URL.Path == "/functions/v1/execute-processor-run":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"function cold start failed"}`))
		default:
			t.Errorf("unexpected request after failed trigger: %s %s", r.Method, r.URL.Path)
		}
	})

	var out bytes.Buffer
	rep, err := ps.scenario(&out).Run(ctx, testFixture)
	if err == nil {
		t.Fatal("expected error for non-202 function response")
	}
	if rep.RunID != "" {
		t.Errorf("RunID = %q, want empty after failed trigger", rep.RunID)
	}

	if reqs := ps.recorded(); len(reqs) != 3 {
		t.Errorf("expected 3 requests, got %v", reqs)
	}
}

func TestCheckRunStatus_RowNotVisible(t *testing.T) {
	ps := newPlatformStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	var out bytes.Buffer
	run, err := ps.scenario(&out).CheckRunStatus(ctx, "run-1")
	if err != nil {
		t.Fatalf("CheckRunStatus: %v", err)
	}
	if run != nil {
		t.Errorf("run = %+v, want nil for missing row", run)
	}
	if !strings.Contains(out.String(), "not visible yet") {
		t.Errorf("output = %q, want a not-visible note", out.String())
	}
}

func TestWaitForCompletion(t *testing.T) {
	var calls int
	var mu sync.Mutex
	ps := newPlatformStub(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.Write([]byte(`[{"id":"run-1","status":"running","total_operations":3,"completed_operations":1,"failed_operations":0,"started_at":"t0"}]`))
			return
		}
		w.Write([]byte(`[{"id":"run-1","status":"completed","total_operations":3,"completed_operations":3,"failed_operations":0,"started_at":"t0","completed_at":"t1"}]`))
	})

	var out bytes.Buffer
	run, err := ps.scenario(&out).WaitForCompletion(ctx, "run-1", time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if run.Status != "completed" || run.CompletedOperations != 3 {
		t.Errorf("run = %+v, want completed 3/3", run)
	}
}

// The timeout can land while a status request is still in flight; the
// error must still diagnose the timeout, not the cancelled request.
func TestWaitForCompletion_TimeoutMidRequest(t *testing.T) {
	var calls int
	var mu sync.Mutex
	ps := newPlatformStub(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.Write([]byte(`[{"id":"run-1","status":"running","total_operations":3,"completed_operations":1,"failed_operations":0,"started_at":"t0"}]`))
			return
		}
		// Hold every later request open until the client gives up.
		<-r.Context().Done()
	})

	var out bytes.Buffer
	_, err := ps.scenario(&out).WaitForCompletion(ctx, "run-1", time.Millisecond, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "did not finish") {
		t.Errorf("error = %v, want a did-not-finish message", err)
	}
	if !strings.Contains(err.Error(), "last status running") {
		t.Errorf("error = %v, want the last seen status", err)
	}
}

func TestWaitForCompletion_Timeout(t *testing.T) {
	ps := newPlatformStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"run-1","status":"running","total_operations":3,"completed_operations":1,"failed_operations":0,"started_at":"t0"}]`))
	})

	var out bytes.Buffer
	_, err := ps.scenario(&out).WaitForCompletion(ctx, "run-1", time.Millisecond, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "did not finish") {
		t.Errorf("error = %v, want a did-not-finish message", err)
	}
}
