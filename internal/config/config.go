package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. No component reads ambient environment state directly;
// everything is passed down from this struct.

// StorageConfig selects where source documents are fetched from.
type StorageConfig struct {
	// Dir is the local upload directory; object keys are paths under it.
	Dir string `yaml:"dir" json:"dir"`
	// BaseURL, if set, makes fetches go over HTTP instead of the local
	// directory (object keys are appended to it).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// TimeoutSeconds bounds a single HTTP fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ExtractConfig configures the text-extraction oracle.
type ExtractConfig struct {
	// Endpoint is the generative-API base URL.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	APIKey   string `yaml:"api_key" json:"api_key"`
	Model    string `yaml:"model" json:"model"`
	// Language / Mode are the defaults applied to new jobs ("ja"/"en",
	// "garbage"/"general").
	Language string `yaml:"language" json:"language"`
	Mode     string `yaml:"mode" json:"mode"`
	// TimeoutSeconds bounds a single extraction call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// GoogleConfig holds the OAuth client used to exchange refresh tokens.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	// TokenURL is overridable for tests; empty means the Google endpoint.
	TokenURL string `yaml:"token_url,omitempty" json:"token_url,omitempty"`
}

// CalendarConfig configures the external calendar client and the sync
// engine's pacing.
type CalendarConfig struct {
	// BaseURL is overridable for tests; empty means the Calendar v3 API.
	BaseURL    string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`

	// InsertDelayMs is the minimum delay between Phase 1 insert attempts.
	// 250ms = 4 req/sec, comfortably under the API's 10 req/sec ceiling.
	InsertDelayMs int `yaml:"insert_delay_ms" json:"insert_delay_ms"`
	// ResolveDelayMs is the Phase 2 per-item delay; coarser because each
	// deferred item issues up to two calls (read + reactivate).
	ResolveDelayMs int `yaml:"resolve_delay_ms" json:"resolve_delay_ms"`

	// ReminderMinutes configures the popup reminder attached to written
	// events (720 = the evening before an all-day event).
	ReminderMinutes int `yaml:"reminder_minutes" json:"reminder_minutes"`

	// TimeoutSeconds bounds a single calendar API call.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// WorkerConfig drives the background job sweep.
type WorkerConfig struct {
	// Cron is a cron-style schedule for sweeping pending jobs.
	Cron string `yaml:"cron" json:"cron"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the job API.
	Listen string `yaml:"listen" json:"listen"`

	// Database is the SQLite database path.
	Database string `yaml:"database" json:"database"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Extract  ExtractConfig  `yaml:"extract" json:"extract"`
	Google   GoogleConfig   `yaml:"google" json:"google"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Worker   WorkerConfig   `yaml:"worker" json:"worker"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Database: "./var/gomical.db",
		Storage: StorageConfig{
			Dir:            "./var/uploads",
			TimeoutSeconds: 30,
		},
		Extract: ExtractConfig{
			Endpoint:       "https://generativelanguage.googleapis.com",
			Model:          "gemini-2.0-flash",
			Language:       "ja",
			Mode:           "garbage",
			TimeoutSeconds: 120,
		},
		Calendar: CalendarConfig{
			CalendarID:      "primary",
			InsertDelayMs:   250,
			ResolveDelayMs:  500,
			ReminderMinutes: 720,
			TimeoutSeconds:  30,
		},
		Worker: WorkerConfig{
			Cron: "* * * * *",
		},
		LogLevel: "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = def.Storage.Dir
	}
	if c.Storage.TimeoutSeconds <= 0 {
		c.Storage.TimeoutSeconds = def.Storage.TimeoutSeconds
	}
	if c.Extract.Endpoint == "" {
		c.Extract.Endpoint = def.Extract.Endpoint
	}
	if c.Extract.Model == "" {
		c.Extract.Model = def.Extract.Model
	}
	if c.Extract.Language == "" {
		c.Extract.Language = def.Extract.Language
	}
	if c.Extract.Mode == "" {
		c.Extract.Mode = def.Extract.Mode
	}
	if c.Extract.TimeoutSeconds <= 0 {
		c.Extract.TimeoutSeconds = def.Extract.TimeoutSeconds
	}
	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = def.Calendar.CalendarID
	}
	if c.Calendar.InsertDelayMs <= 0 {
		c.Calendar.InsertDelayMs = def.Calendar.InsertDelayMs
	}
	if c.Calendar.ResolveDelayMs <= 0 {
		c.Calendar.ResolveDelayMs = def.Calendar.ResolveDelayMs
	}
	if c.Calendar.ReminderMinutes <= 0 {
		c.Calendar.ReminderMinutes = def.Calendar.ReminderMinutes
	}
	if c.Calendar.TimeoutSeconds <= 0 {
		c.Calendar.TimeoutSeconds = def.Calendar.TimeoutSeconds
	}
	if c.Worker.Cron == "" {
		c.Worker.Cron = def.Worker.Cron
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// StorageTimeout returns the fetch timeout as a duration.
func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.Storage.TimeoutSeconds) * time.Second
}

// ExtractTimeout returns the oracle call timeout as a duration.
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.Extract.TimeoutSeconds) * time.Second
}

// CalendarTimeout returns the calendar API call timeout as a duration.
func (c *Config) CalendarTimeout() time.Duration {
	return time.Duration(c.Calendar.TimeoutSeconds) * time.Second
}

// InsertDelay returns the Phase 1 pacing delay.
func (c *Config) InsertDelay() time.Duration {
	return time.Duration(c.Calendar.InsertDelayMs) * time.Millisecond
}

// ResolveDelay returns the Phase 2 pacing delay.
func (c *Config) ResolveDelay() time.Duration {
	return time.Duration(c.Calendar.ResolveDelayMs) * time.Millisecond
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600 (the file carries API keys).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".gomical-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
