package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "DB_DSN", "ENABLE_LOCAL_AUTH", "REQUEST_TIMEOUT_SEC", "SITE_ID"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %q, want offline", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.EnableLocalAuth {
		t.Fatal("local auth should default on in offline mode")
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnvOnline(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("ENABLE_LOCAL_AUTH", "")
	t.Setenv("CORS_ORIGINS_ONLINE", "https://a.example, https://b.example ,")
	t.Setenv("REQUEST_TIMEOUT_SEC", "5")

	cfg := FromEnv()
	if cfg.EnableLocalAuth {
		t.Fatal("local auth should default off online")
	}
	if cfg.LogMode != "prod" {
		t.Fatalf("log mode = %q", cfg.LogMode)
	}
	got := cfg.CORSOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("origins = %v", got)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	cfg := FromEnv()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for mysql driver")
	}
}
