package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "platform.base_url", typ: kString, env: "RUNCHECK_PLATFORM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Platform.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.BaseURL },
	},
	{
		key: "platform.anon_key", typ: kString, env: "SUPABASE_ANON_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Platform.AnonKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.AnonKey },
	},
	{
		key: "platform.service_role_key", typ: kString, env: "SUPABASE_SERVICE_ROLE_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Platform.ServiceRoleKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.ServiceRoleKey },
	},
	{
		key: "platform.function_timeout", typ: kString, env: "RUNCHECK_PLATFORM_FUNCTION_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Platform.FunctionTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.FunctionTimeout },
	},
	{
		key: "smoke.processor_id", typ: kString, env: "RUNCHECK_SMOKE_PROCESSOR_ID",
		apply:   func(cfg *Config, v any) { cfg.Smoke.ProcessorID = v.(string) },
		extract: func(cfg Config) any { return cfg.Smoke.ProcessorID },
	},
	{
		key: "smoke.organization_id", typ: kString, env: "RUNCHECK_SMOKE_ORGANIZATION_ID",
		apply:   func(cfg *Config, v any) { cfg.Smoke.OrganizationID = v.(string) },
		extract: func(cfg Config) any { return cfg.Smoke.OrganizationID },
	},
	{
		key: "smoke.bucket", typ: kString, env: "RUNCHECK_SMOKE_BUCKET",
		apply:   func(cfg *Config, v any) { cfg.Smoke.Bucket = v.(string) },
		extract: func(cfg Config) any { return cfg.Smoke.Bucket },
	},
	{
		key: "smoke.document_file", typ: kString, env: "RUNCHECK_SMOKE_DOCUMENT_FILE",
		apply:   func(cfg *Config, v any) { cfg.Smoke.DocumentFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Smoke.DocumentFile },
	},
	{
		key: "smoke.status_delay", typ: kString, env: "RUNCHECK_SMOKE_STATUS_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Smoke.StatusDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Smoke.StatusDelay },
	},
	{
		key: "mock.port", typ: kInt, env: "RUNCHECK_MOCK_PORT",
		apply:   func(cfg *Config, v any) { cfg.Mock.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Mock.Port },
	},
	{
		key: "mock.data_dir", typ: kString, env: "RUNCHECK_MOCK_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Mock.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Mock.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "RUNCHECK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
