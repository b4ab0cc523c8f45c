package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the persistent application configuration
type Config struct {
	API     APIConfig     `toml:"api"`
	Search  SearchConfig  `toml:"search"`
	Feed    FeedConfig    `toml:"feed"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL           string   `toml:"base_url"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"` // 0 disables limiting
	Burst             int      `toml:"burst"`
	Retries           int      `toml:"retries"` // catalog GETs only
}

// SearchConfig tunes the incremental search box
type SearchConfig struct {
	Debounce       Duration `toml:"debounce"`
	MinQueryLength int      `toml:"min_query_length"`
}

// FeedConfig tunes infinite scrolling
type FeedConfig struct {
	// ProximityRows is how close to the end of a list, in rows, the next
	// page is requested.
	ProximityRows int `toml:"proximity_rows"`
}

// SessionConfig selects where the signed-in session is kept
type SessionConfig struct {
	Backend string `toml:"backend"` // "sqlite" or "file"
}

// LogConfig holds log file settings
type LogConfig struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	DefaultTab string `toml:"default_tab"`
	Mouse      bool   `toml:"mouse"`
}

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Tabs accepted by ui.default_tab.
var Tabs = []string{"discover", "top", "trending", "genre", "list", "recent"}

// Duration is a time.Duration written as a string ("300ms", "10s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8080/api",
			Timeout:           Duration{10 * time.Second},
			RequestsPerSecond: 10,
			Burst:             5,
			Retries:           2,
		},
		Search: SearchConfig{
			Debounce:       Duration{300 * time.Millisecond},
			MinQueryLength: 2,
		},
		Feed: FeedConfig{
			ProximityRows: 5,
		},
		Session: SessionConfig{
			Backend: BackendSQLite,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		UI: UIConfig{
			DefaultTab: "discover",
			Mouse:      true,
		},
	}
}

// Dir returns the cinelog state directory (~/.cinelog). CINELOG_HOME
// overrides it.
func Dir() string {
	if dir := os.Getenv("CINELOG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cinelog"
	}
	return filepath.Join(home, ".cinelog")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DatabasePath returns the path to the SQLite database.
func DatabasePath() string {
	return filepath.Join(Dir(), "cinelog.db")
}

// SessionFilePath returns the path used by the file session backend.
func SessionFilePath() string {
	return filepath.Join(Dir(), "session.json")
}

// EventsPath returns the path to the JSONL event log.
func EventsPath() string {
	return filepath.Join(Dir(), "events.jsonl")
}

// Load reads config from disk, or returns defaults. Environment overrides
// are applied either way.
func Load() (*Config, error) {
	cfg, err := LoadFrom(ConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
		err = nil
	}
	if err != nil {
		return nil, err
	}
	cfg.AutoPopulateFromEnv()
	return cfg, cfg.Validate()
}

// LoadFrom reads a config file. Keys missing from the file keep their
// defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to the default path
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// AutoPopulateFromEnv applies environment overrides
func (c *Config) AutoPopulateFromEnv() {
	if url := os.Getenv("CINELOG_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if level := os.Getenv("CINELOG_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return errors.New("config: api.base_url is required")
	case !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://"):
		return fmt.Errorf("config: api.base_url %q must be an http(s) URL", c.API.BaseURL)
	case c.API.Timeout.Duration <= 0:
		return errors.New("config: api.timeout must be positive")
	case c.API.RequestsPerSecond < 0:
		return errors.New("config: api.requests_per_second must not be negative")
	case c.API.Retries < 0:
		return errors.New("config: api.retries must not be negative")
	case c.Search.Debounce.Duration < 0:
		return errors.New("config: search.debounce must not be negative")
	case c.Search.MinQueryLength < 1:
		return errors.New("config: search.min_query_length must be at least 1")
	case c.Feed.ProximityRows < 0:
		return errors.New("config: feed.proximity_rows must not be negative")
	case c.Session.Backend != BackendSQLite && c.Session.Backend != BackendFile:
		return fmt.Errorf("config: session.backend %q must be %q or %q", c.Session.Backend, BackendSQLite, BackendFile)
	case !slices.Contains(Tabs, c.UI.DefaultTab):
		return fmt.Errorf("config: ui.default_tab %q must be one of %s", c.UI.DefaultTab, strings.Join(Tabs, ", "))
	}
	return nil
}
