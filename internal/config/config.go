package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRemote   = "remote"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the event API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// FormConfig holds the defaults the create-event form opens with.
type FormConfig struct {
	// DefaultStart / DefaultEnd are HH:MM (24h) values.
	DefaultStart string `yaml:"default_start" json:"default_start"`
	DefaultEnd   string `yaml:"default_end" json:"default_end"`
}

// ReminderConfig controls the upcoming-event reminder loop in calendard.
type ReminderConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Schedule is a cron spec (robfig/cron syntax, descriptors allowed).
	Schedule string `yaml:"schedule" json:"schedule"`
	// LeadMinutes is how far ahead of an event's start a reminder fires.
	LeadMinutes int `yaml:"lead_minutes" json:"lead_minutes"`
}

// RateLimitConfig is the per-client token bucket applied to the API.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" json:"rps"`
	Burst int     `yaml:"burst" json:"burst"`
}

// Config is the top-level application configuration shared by the terminal
// client (monthcal) and the event server (calendard).
type Config struct {
	// Listen is the HTTP listen address for calendard.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to decide which day is "today".
	// Event timestamps themselves always carry the fixed Z offset.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is the first grid column.
	// Supported values:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// Store selects the event store backend: file, postgres or remote.
	Store       string `yaml:"store" json:"store"`
	DataFile    string `yaml:"data_file" json:"data_file"`
	DatabaseURL string `yaml:"database_url,omitempty" json:"database_url,omitempty"`
	// ServerURL is the calendard base URL used by the remote store.
	ServerURL string `yaml:"server_url" json:"server_url"`

	Form      FormConfig      `yaml:"form" json:"form"`
	Reminder  ReminderConfig  `yaml:"reminder" json:"reminder"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		Timezone:  "Local",
		WeekStart: "sunday",
		LogLevel:  "info",
		Store:     StoreFile,
		DataFile:  defaultDataFile(),
		ServerURL: "http://127.0.0.1:8080",
		Form: FormConfig{
			DefaultStart: "09:00",
			DefaultEnd:   "10:00",
		},
		Reminder: ReminderConfig{
			Enabled:     true,
			Schedule:    "@every 1m",
			LeadMinutes: 5,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 30,
		},
		BasicAuth: nil,
	}
}

// DefaultPath is where the config lives when -config is not given:
// <user config dir>/monthcal/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "monthcal.yaml"
	}
	return filepath.Join(dir, "monthcal", "config.yaml")
}

func defaultDataFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "calendar.json"
	}
	return filepath.Join(dir, "monthcal", "calendar.json")
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday":
		c.WeekStart = "monday"
	case "sunday":
		c.WeekStart = "sunday"
	default:
		// Unknown value; fall back to sunday to avoid surprising layouts.
		c.WeekStart = def.WeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.Store {
	case StoreFile, StorePostgres, StoreRemote:
	default:
		c.Store = def.Store
	}
	if c.DataFile == "" {
		c.DataFile = def.DataFile
	}
	if c.ServerURL == "" {
		c.ServerURL = def.ServerURL
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.Form.DefaultStart == "" {
		c.Form.DefaultStart = def.Form.DefaultStart
	}
	if c.Form.DefaultEnd == "" {
		c.Form.DefaultEnd = def.Form.DefaultEnd
	}
	if c.Reminder.Schedule == "" {
		c.Reminder.Schedule = def.Reminder.Schedule
	}
	if c.Reminder.LeadMinutes <= 0 {
		c.Reminder.LeadMinutes = def.Reminder.LeadMinutes
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = def.RateLimit.RPS
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
}

// ApplyEnv lets the environment override connection settings; this is how
// DATABASE_URL from a .env file reaches the postgres store.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MONTHCAL_SERVER_URL"); v != "" {
		c.ServerURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("MONTHCAL_STORE"); v != "" {
		c.Store = v
		c.Normalize()
	}
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

// Save writes the given configuration to the specified path with 0600
// permissions, atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a half-written file.
// The event file store uses it as well.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".monthcal-*.tmp")
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
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Location resolves Timezone. "" and "Local" mean time.Local; an unknown
// zone also yields time.Local together with the lookup error.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}
