package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load("", dataDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Assistant.DefaultDuration != 60 {
		t.Errorf("expected default duration 60, got %d", cfg.Assistant.DefaultDuration)
	}
	if cfg.Sync.Schedule != "@every 5m" {
		t.Errorf("unexpected sync schedule: %s", cfg.Sync.Schedule)
	}
	if cfg.Storage.SQLitePath != filepath.Join(dataDir, "meetwise.db") {
		t.Errorf("unexpected sqlite path: %s", cfg.Storage.SQLitePath)
	}
}

func TestLoadFromFile(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "meetwise.yaml")

	content := `server:
  port: 9090
assistant:
  default_duration: 30
  user_id: alice
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath, dataDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Assistant.DefaultDuration != 30 {
		t.Errorf("expected duration 30 from file, got %d", cfg.Assistant.DefaultDuration)
	}
	if cfg.Assistant.UserID != "alice" {
		t.Errorf("expected user_id alice, got %s", cfg.Assistant.UserID)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dataDir := t.TempDir()

	os.Setenv("MEETWISE_SERVER_PORT", "7070")
	defer os.Unsetenv("MEETWISE_SERVER_PORT")

	cfg, err := Load("", dataDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070 from env, got %d", cfg.Server.Port)
	}
}

func TestLoadRejectsClientIDWithoutSecret(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "meetwise.yaml")

	content := `google:
  client_id: abc.apps.googleusercontent.com
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath, dataDir); err == nil {
		t.Error("expected validation error for client_id without client_secret")
	}
}

func TestPatternsFileDefaultsIntoDataDir(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataDir: "/tmp/mw"}}
	if got := cfg.PatternsFile(); got != "/tmp/mw/patterns.json" {
		t.Errorf("unexpected patterns file: %s", got)
	}

	cfg.Assistant.PatternsPath = "/etc/patterns.json"
	if got := cfg.PatternsFile(); got != "/etc/patterns.json" {
		t.Errorf("unexpected patterns file: %s", got)
	}
}
