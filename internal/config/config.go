package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"monthcal/internal/calendar"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls the headless-browser snapshot of the month page.
type CaptureConfig struct {
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
	Output     string `yaml:"output" json:"output"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone that defines "today" and date keys
	// (e.g. "Europe/Berlin"). "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first column of the grid:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Events is the startup event source: a file path or an http(s) URL.
	Events string `yaml:"events" json:"events"`

	// EventsFormat is "auto", "json" or "ics".
	EventsFormat string `yaml:"events_format" json:"events_format"`

	// YearSpan is how many years either side of the viewed year the year
	// dropdown offers.
	YearSpan int `yaml:"year_span" json:"year_span"`

	// TodayRefresh is the cron spec that re-reads the clock so "today"
	// follows midnight.
	TodayRefresh string `yaml:"today_refresh" json:"today_refresh"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Local"
	defaultEvents       = "events.json"
	defaultYearSpan     = 20
	defaultTodayRefresh = "0 0 * * *"
	defaultLogLevel     = "info"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Timezone:     defaultTimezone,
		WeekStart:    "sunday",
		Events:       defaultEvents,
		EventsFormat: "auto",
		YearSpan:     defaultYearSpan,
		TodayRefresh: defaultTodayRefresh,
		LogLevel:     defaultLogLevel,
		Capture: CaptureConfig{
			Width:      800,
			Height:     600,
			TimeoutSec: 30,
			Output:     "month.png",
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "sunday"
	}
	if c.Events == "" {
		c.Events = defaultEvents
	}
	c.EventsFormat = strings.ToLower(strings.TrimSpace(c.EventsFormat))
	switch c.EventsFormat {
	case "auto", "json", "ics":
	default:
		c.EventsFormat = "auto"
	}
	if c.YearSpan <= 0 {
		c.YearSpan = defaultYearSpan
	}
	if c.TodayRefresh == "" {
		c.TodayRefresh = defaultTodayRefresh
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}

	def := DefaultConfig().Capture
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Height
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = def.TimeoutSec
	}
	if c.Capture.Output == "" {
		c.Capture.Output = def.Output
	}
}

// ApplyEnv overrides fields from MONTHCAL_* environment variables.
// Empty variables are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MONTHCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MONTHCAL_EVENTS"); v != "" {
		c.Events = v
	}
	if v := os.Getenv("MONTHCAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("MONTHCAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Location resolves Timezone. Unknown zones return an error and time.Local.
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

// WeekStartDay maps WeekStart to a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	return calendar.ParseWeekStart(c.WeekStart)
}

// CaptureTimeout is Capture.TimeoutSec as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutSec) * time.Second
}

// Load loads configuration from the given YAML path and applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created) and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

