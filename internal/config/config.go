package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultTimezone     = "Asia/Ho_Chi_Minh"
	DefaultPortalURL    = "https://sv.iuh.edu.vn/lich-theo-tuan.html?pLoaiLich=1"
	DefaultRefreshCron  = "0 */6 * * *"
	DefaultFetchTimeout = 30 * time.Second
	DefaultDataFile     = "schedule_data.json"
	DefaultCookiesFile  = "cookies.json"
	DefaultCacheDir     = "cache"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// BrowserConfig controls fetching pages through a headless browser instead
// of a plain HTTP client.
type BrowserConfig struct {
	// Enabled switches week fetches to chromedp.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ExecPath optionally points at a Chromium binary.
	ExecPath string `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to decide "today" and week boundaries.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir holds the data file, cookie file and fetch cache. Relative
	// file names below are resolved against it.
	DataDir     string `yaml:"data_dir" json:"data_dir"`
	DataFile    string `yaml:"data_file" json:"data_file"`
	CookiesFile string `yaml:"cookies_file" json:"cookies_file"`
	CacheDir    string `yaml:"cache_dir" json:"cache_dir"`

	// PortalURL is the weekly timetable page of the current week.
	PortalURL string `yaml:"portal_url" json:"portal_url"`

	// RefreshCron schedules the periodic refresh of the current week.
	// An empty string disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FetchTimeout bounds a single portal request.
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Timezone:     DefaultTimezone,
		DataDir:      ".",
		DataFile:     DefaultDataFile,
		CookiesFile:  DefaultCookiesFile,
		CacheDir:     DefaultCacheDir,
		PortalURL:    DefaultPortalURL,
		RefreshCron:  DefaultRefreshCron,
		FetchTimeout: DefaultFetchTimeout,
		LogLevel:     "info",
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.CookiesFile == "" {
		c.CookiesFile = DefaultCookiesFile
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.PortalURL == "" {
		c.PortalURL = DefaultPortalURL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DataPath returns the resolved data file path.
func (c *Config) DataPath() string { return c.resolve(c.DataFile) }

// CookiesPath returns the resolved cookie file path.
func (c *Config) CookiesPath() string { return c.resolve(c.CookiesFile) }

// CachePath returns the resolved fetch cache directory.
func (c *Config) CachePath() string { return c.resolve(c.CacheDir) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     permissions and returned.
//   - Otherwise the YAML is read and normalized.
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

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename, 0600).
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

	tmp, err := os.CreateTemp(dir, ".iuhsched-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
