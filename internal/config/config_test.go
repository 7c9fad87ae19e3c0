package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesFileEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: "9000"
  mode: release
postgres:
  url: postgres://file
quiz:
  cache_ttl: 2m
auth:
  jwt_secret: from-file
scoring:
  trust_client: true
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSTGRES_URL", "postgres://env")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected file port, got %q", cfg.Server.Port)
	}
	if cfg.Postgres.URL != "postgres://env" {
		t.Fatalf("expected env override, got %q", cfg.Postgres.URL)
	}
	if !cfg.Scoring.TrustClient {
		t.Fatalf("expected trust_client from file")
	}
	if cfg.RateLimit.MaxRequests != 100 || cfg.Log.Level != "info" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.RateLimit, cfg.Log)
	}
	if got := TTLDuration(cfg.Quiz.CacheTTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m cache ttl, got %v", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Server.Mode != ModeDebug {
		t.Fatalf("unexpected defaults %+v", cfg.Server)
	}
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Server.Mode = ModeRelease
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected short secret to be rejected in release mode")
	}

	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg.Server.Mode = ModeDebug
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("short secrets are fine in debug mode, got %v", err)
	}

	cfg.Auth.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing secret to be rejected")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("empty: got %v", got)
	}
	if got := TTLDuration("nope", time.Second); got != time.Second {
		t.Fatalf("invalid: got %v", got)
	}
}
