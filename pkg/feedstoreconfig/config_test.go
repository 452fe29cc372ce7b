package feedstoreconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

storage:
  backend: memory

trie:
  backend: memory

http_api:
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.HTTPAPI.Port != 8080 {
		t.Errorf("expected http api port 8080, got %d", cfg.HTTPAPI.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("expected no error when loading default config, got: %v", err)
	}

	if cfg == nil {
		t.Fatal("expected default config to be returned")
	}

	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected default storage backend 'memory', got %q", cfg.Storage.Backend)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  backend: s3

trie:
  backend: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for s3 backend without bucket")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected default storage backend 'memory', got %q", cfg.Storage.Backend)
	}
	if cfg.Trie.Backend != "memory" {
		t.Errorf("expected default trie backend 'memory', got %q", cfg.Trie.Backend)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "feedstore" {
		t.Errorf("expected directory name 'feedstore', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	_ = os.Setenv("FEEDSTORE_LOGGING_LEVEL", "ERROR")
	_ = os.Setenv("FEEDSTORE_HTTP_API_PORT", "9090")
	defer func() {
		_ = os.Unsetenv("FEEDSTORE_LOGGING_LEVEL")
		_ = os.Unsetenv("FEEDSTORE_HTTP_API_PORT")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

storage:
  backend: memory

trie:
  backend: memory

http_api:
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.HTTPAPI.Port != 9090 {
		t.Errorf("expected port 9090 from env var, got %d", cfg.HTTPAPI.Port)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "DEBUG"

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}

	if loaded.Logging.Level != "DEBUG" {
		t.Errorf("expected reloaded level 'DEBUG', got %q", loaded.Logging.Level)
	}
}
