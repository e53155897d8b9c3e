package config

import (
	"fmt"
)

type Config struct {
	Platform PlatformConfig
	Smoke    SmokeConfig
	Mock     MockConfig
	Log      LogConfig
}

// PlatformConfig points the harness at a hosted platform instance.
type PlatformConfig struct {
	BaseURL         string
	AnonKey         string
	ServiceRoleKey  string
	FunctionTimeout string
}

// SmokeConfig carries the fixed identifiers the smoke scenario runs with.
type SmokeConfig struct {
	ProcessorID    string
	OrganizationID string
	Bucket         string
	DocumentFile   string
	StatusDelay    string
}

type MockConfig struct {
	Port    int
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Platform: PlatformConfig{
			BaseURL:         "https://xczippkxxdqlvaacjexj.supabase.co",
			FunctionTimeout: "30s",
		},
		Smoke: SmokeConfig{
			ProcessorID:    "9024a072-211d-40fc-a64f-b9d7a7f31a72", // Contract Review Assistant
			OrganizationID: "b822d5c9-706a-4e37-9d7a-c0b0417efe56",
			Bucket:         "documents",
			DocumentFile:   "testdata/test-document.txt",
			StatusDelay:    "2s",
		},
		Mock: MockConfig{
			Port:    54321,
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend
// ($XDG_CONFIG_HOME/runcheck/config.json) and applies environment
// overrides (RUNCHECK_*). The platform API keys are secrets and come from
// the environment only: SUPABASE_ANON_KEY and SUPABASE_SERVICE_ROLE_KEY.
//
// Both keys are required. Load fails before any network call is made when
// either is absent.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

// LoadUnchecked is Load without the required-secret validation. Used for
// displaying configuration before credentials are set.
func LoadUnchecked() (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, newFileBackend()); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Platform.AnonKey == "" {
		return Config{}, fmt.Errorf("missing required config: anon key. Set the SUPABASE_ANON_KEY environment variable")
	}
	if cfg.Platform.ServiceRoleKey == "" {
		return Config{}, fmt.Errorf("missing required config: service role key. Set the SUPABASE_SERVICE_ROLE_KEY environment variable")
	}

	return cfg, nil
}
