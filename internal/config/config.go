package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Map     MapConfig     `yaml:"map"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// LoginPath is "/api/auth/login/" (token API) or "/login/" (page login).
	LoginPath string `yaml:"login_path"`
}

type MapConfig struct {
	CenterLat float64 `yaml:"center_lat"`
	CenterLon float64 `yaml:"center_lon"`
	Zoom      int     `yaml:"zoom"`
	// ClusterCell is the bucket size, in screen cells, used to group markers.
	ClusterCell int `yaml:"cluster_cell"`
}

type SessionConfig struct {
	// File overrides the per-origin session file. Empty means default.
	File string `yaml:"file"`
	// Ephemeral keeps the session in memory only.
	Ephemeral bool `yaml:"ephemeral"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	DefaultLoginPath = "/api/auth/login/"
)

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   10 * time.Second,
			LoginPath: DefaultLoginPath,
		},
		Map: MapConfig{
			// Moscow.
			CenterLat:   55.751574,
			CenterLon:   37.573856,
			Zoom:        10,
			ClusterCell: 3,
		},
		Log: LogConfig{
			File:  defaultLogFile(),
			Level: "info",
		},
	}
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "eventmap.log"
	}
	return filepath.Join(dir, "eventmap", "eventmap.log")
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// ApplyEnv loads envFile (if present) into the process environment and then
// applies EVENTMAP_* overrides on top of the file values.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv("EVENTMAP_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("EVENTMAP_LOGIN_PATH"); v != "" {
		c.API.LoginPath = v
	}
	if v := os.Getenv("EVENTMAP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EVENTMAP_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("EVENTMAP_ZOOM"); v != "" {
		z, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EVENTMAP_ZOOM: %w", err)
		}
		c.Map.Zoom = z
	}
	if v := os.Getenv("EVENTMAP_SESSION_FILE"); v != "" {
		c.Session.File = v
	}
	if v := os.Getenv("EVENTMAP_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("EVENTMAP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return c.Validate()
}

// Validate checks the merged settings. Callers that change fields after Load
// or ApplyEnv run it again.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if !strings.HasPrefix(c.API.LoginPath, "/") {
		return fmt.Errorf("api.login_path must start with /, got %q", c.API.LoginPath)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.Map.Zoom < 2 || c.Map.Zoom > 18 {
		return fmt.Errorf("map.zoom must be in [2, 18], got %d", c.Map.Zoom)
	}
	if c.Map.CenterLat < -85 || c.Map.CenterLat > 85 {
		return fmt.Errorf("map.center_lat out of range: %f", c.Map.CenterLat)
	}
	if c.Map.CenterLon < -180 || c.Map.CenterLon > 180 {
		return fmt.Errorf("map.center_lon out of range: %f", c.Map.CenterLon)
	}
	if c.Map.ClusterCell < 1 {
		c.Map.ClusterCell = 1
	}
	return nil
}
