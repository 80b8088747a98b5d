package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_EncryptionSecretFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)
	os.Setenv("ENCRYPTION_SECRET", "secret123")
	defer os.Unsetenv("ENCRYPTION_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Encryption.Secret != "secret123" {
		t.Errorf("Encryption.Secret = %q, want %q", cfg.Encryption.Secret, "secret123")
	}
}

func TestLoad_DisableDataEncryptionFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)
	os.Setenv("DISABLE_DATA_ENCRYPTION", "true")
	defer os.Unsetenv("DISABLE_DATA_ENCRYPTION")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Encryption.Disable {
		t.Error("Encryption.Disable = false, want true")
	}
}

func TestLoad_TTLDurationFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("encryption:\n  disable: true\n"), 0600)
	os.Setenv("TTL_DURATION", "600")
	defer os.Unsetenv("TTL_DURATION")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Memory.TTLSeconds != 600 {
		t.Errorf("Memory.TTLSeconds = %d, want 600", cfg.Memory.TTLSeconds)
	}
	if cfg.Memory.TTL() != 600e9 {
		t.Errorf("Memory.TTL() = %v, want 600s", cfg.Memory.TTL())
	}
}

func TestValidate_MissingEncryptionSecret(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when encryption.secret is unset and encryption is not disabled")
	}
}

func TestValidate_EncryptionDisabledSkipsSecretCheck(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_BadListenPort(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range listen.port")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Listen.Port != 8080 {
		t.Errorf("Listen.Port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.Storage.Path != "./csml.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "./csml.db")
	}
	if cfg.Sweep.IntervalSeconds != 3600 {
		t.Errorf("Sweep.IntervalSeconds = %d, want 3600", cfg.Sweep.IntervalSeconds)
	}
}
