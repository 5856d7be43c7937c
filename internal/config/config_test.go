package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("TANDEM_JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing secret")
	}
	if !strings.Contains(err.Error(), "TANDEM_JWT_SECRET") {
		t.Errorf("error %q should name TANDEM_JWT_SECRET", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TANDEM_JWT_SECRET", "s3cret")
	t.Setenv("TANDEM_PORT", "")
	t.Setenv("TANDEM_BASE_URL", "")
	t.Setenv("TANDEM_SESSION_TTL", "")
	t.Setenv("TANDEM_S3_BUCKET", "")
	t.Setenv("TANDEM_POSTMARK_TOKEN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Errorf("session ttl = %v, want 720h", cfg.SessionTTL)
	}
	if cfg.StorageEnabled() {
		t.Error("storage should be disabled without a bucket")
	}
	if cfg.EmailEnabled() {
		t.Error("email should be disabled without a token")
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("TANDEM_JWT_SECRET", "")
	t.Setenv("TANDEM_PORT", "9999")
	os.Unsetenv("TANDEM_JWT_SECRET")

	path := filepath.Join(t.TempDir(), ".env")
	content := "TANDEM_JWT_SECRET=from-file\nTANDEM_PORT=1234\nTANDEM_BASE_URL=https://lists.example.com/\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "from-file" {
		t.Errorf("secret = %q, want from-file", cfg.JWTSecret)
	}
	// Variables already in the environment win over the file.
	if cfg.Port != "9999" {
		t.Errorf("port = %q, want 9999", cfg.Port)
	}
	if cfg.BaseURL != "https://lists.example.com" {
		t.Errorf("base url = %q, want trailing slash trimmed", cfg.BaseURL)
	}
}
