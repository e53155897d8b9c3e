package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/validai/runcheck/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Platform: config.PlatformConfig{
			BaseURL:         "http://127.0.0.1:54321",
			AnonKey:         "anon",
			ServiceRoleKey:  "service",
			FunctionTimeout: "30s",
		},
		Smoke: config.SmokeConfig{
			ProcessorID:    "proc-9",
			OrganizationID: "org-1",
			Bucket:         "documents",
			StatusDelay:    "2s",
		},
	}
}

func TestNewClient(t *testing.T) {
	cfg := testConfig()

	client, err := newClient(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL() != "http://127.0.0.1:54321" {
		t.Errorf("base URL = %q", client.BaseURL())
	}
}

func TestNewClient_InvalidTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Platform.FunctionTimeout = "thirty seconds"

	_, err := newClient(cfg)
	if err == nil {
		t.Fatal("expected error for unparseable timeout")
	}
	if !strings.Contains(err.Error(), "function_timeout") {
		t.Errorf("error = %q, want it to name the bad key", err.Error())
	}
}

func TestNewScenario_InvalidDelay(t *testing.T) {
	cfg := testConfig()
	cfg.Smoke.StatusDelay = "soon"

	client, err := newClient(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := newScenario(cfg, client); err == nil {
		t.Fatal("expected error for unparseable delay")
	}
}

// A scenario command with no credentials fails during config load,
// before any network call.
func TestTriggerCommand_MissingCredentials(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"trigger", "doc-1"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "SUPABASE_ANON_KEY") {
		t.Errorf("error = %q, want it to name the missing env var", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPrintStatusLayout(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	old := stderr
	stderr = &buf
	defer func() { stderr = old }()

	printStatus("Run ID", "%s", "run-1")
	if got := buf.String(); got != "  Run ID: run-1\n" {
		t.Errorf("printStatus output = %q, want indented label line", got)
	}
}

func TestValidKeysListed(t *testing.T) {
	listing := joinKeys()
	for _, key := range []string{"platform.base_url", "smoke.processor_id", "mock.port"} {
		if !strings.Contains(listing, key) {
			t.Errorf("joinKeys() missing %q", key)
		}
	}
	if strings.Contains(listing, "anon_key") {
		t.Error("joinKeys() must not list secrets")
	}
}
