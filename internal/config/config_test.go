package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
api:
  base_url: "https://events.example.com"
  timeout: 3s
map:
  center_lat: 59.93
  center_lon: 30.31
  zoom: 12
log:
  level: debug
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.API.BaseURL != "https://events.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.Map.Zoom != 12 {
		t.Errorf("Map.Zoom = %d, want 12", cfg.Map.Zoom)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.API.LoginPath != DefaultLoginPath {
		t.Errorf("API.LoginPath = %q, want default", cfg.API.LoginPath)
	}
	if cfg.Map.ClusterCell != 3 {
		t.Errorf("Map.ClusterCell = %d, want default 3", cfg.Map.ClusterCell)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.Map.Zoom != 10 {
		t.Errorf("Map.Zoom = %d, want default 10", cfg.Map.Zoom)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestLoadRejectsBadZoom(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	os.WriteFile(cfgPath, []byte("map:\n  zoom: 40\n"), 0644)

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("zoom 40 should fail validation")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty url", func(c *Config) { c.API.BaseURL = "" }, false},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, false},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, false},
		{"relative login path", func(c *Config) { c.API.LoginPath = "login/" }, false},
		{"page login path", func(c *Config) { c.API.LoginPath = "/login/" }, true},
		{"zoom too far out", func(c *Config) { c.Map.Zoom = 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.change(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	env := "EVENTMAP_API_URL=http://from-dotenv:9000\nEVENTMAP_ZOOM=14\n"
	if err := os.WriteFile(envPath, []byte(env), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set.
	t.Setenv("EVENTMAP_API_URL", "")
	os.Unsetenv("EVENTMAP_API_URL")
	os.Unsetenv("EVENTMAP_ZOOM")
	t.Setenv("EVENTMAP_LOG_LEVEL", "warn")
	t.Cleanup(func() {
		os.Unsetenv("EVENTMAP_API_URL")
		os.Unsetenv("EVENTMAP_ZOOM")
	})

	cfg := defaultConfig()
	if err := cfg.ApplyEnv(envPath); err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}
	if cfg.API.BaseURL != "http://from-dotenv:9000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Map.Zoom != 14 {
		t.Errorf("Map.Zoom = %d, want 14", cfg.Map.Zoom)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestApplyEnvMissingDotenv(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.ApplyEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestApplyEnvBadTimeout(t *testing.T) {
	t.Setenv("EVENTMAP_TIMEOUT", "soon")
	cfg := defaultConfig()
	if err := cfg.ApplyEnv(""); err == nil {
		t.Fatal("unparseable EVENTMAP_TIMEOUT should fail")
	}
}
