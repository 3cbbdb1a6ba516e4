// Package config builds the installer configuration from defaults and
// JULESETUP_* environment variables. Command line flags override it.
//
// Variables are grouped by section, e.g. JULESETUP_FEED_OWNER,
// JULESETUP_DOWNLOAD_RATE_LIMIT, JULESETUP_INSTALL_DIR, JULESETUP_UI_LOG_LEVEL.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "julesetup"

// Config holds all application configuration
type Config struct {
	Feed     FeedConfig
	Download DownloadConfig
	Install  InstallConfig
	UI       UIConfig
}

// FeedConfig selects the release feed
type FeedConfig struct {
	Provider    string `envconfig:"PROVIDER" default:"github"`
	Owner       string `envconfig:"OWNER" default:"julelang"`
	Repo        string `envconfig:"REPO" default:"jule"`
	GitHubURL   string `envconfig:"GITHUB_URL"`
	GitLabHost  string `envconfig:"GITLAB_HOST" default:"gitlab.com"`
	Platform    string `envconfig:"PLATFORM"`
	PreReleases bool   `envconfig:"PRERELEASES" default:"false"`
	PageSize    int    `envconfig:"PAGE_SIZE" default:"50"`
	// Timeout bounds the whole feed request. Zero means no limit.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"1m"`
}

// DownloadConfig holds transfer settings
type DownloadConfig struct {
	ChunkSize int           `envconfig:"CHUNK_SIZE" default:"32768"`
	RateLimit int64         `envconfig:"RATE_LIMIT" default:"0"` // bytes per second, 0 = unlimited
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"30s"` // connect and response headers only, 0 = no limit
	UserAgent string        `envconfig:"USER_AGENT" default:"julesetup"`
}

// InstallConfig holds install defaults
type InstallConfig struct {
	Dir       string `envconfig:"DIR"`
	AddToPath bool   `envconfig:"ADD_TO_PATH" default:"true"`
	Shortcuts bool   `envconfig:"SHORTCUTS" default:"true"`
	// KeepArchive leaves the downloaded archive next to the extracted files.
	KeepArchive bool `envconfig:"KEEP_ARCHIVE" default:"false"`
}

// UIConfig holds output settings
type UIConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`
	NoColor  bool   `envconfig:"NO_COLOR" default:"false"`
}

// NewDefault creates a Config with default values
func NewDefault() *Config {
	return &Config{
		Feed: FeedConfig{
			Provider:   "github",
			Owner:      "julelang",
			Repo:       "jule",
			GitLabHost: "gitlab.com",
			PageSize:   50,
			Timeout:    time.Minute,
		},
		Download: DownloadConfig{
			ChunkSize: 32 * 1024,
			Timeout:   30 * time.Second,
			UserAgent: "julesetup",
		},
		Install: InstallConfig{
			AddToPath: true,
			Shortcuts: true,
		},
		UI: UIConfig{
			LogLevel: "warn",
		},
	}
}

// Load reads configuration from the environment on top of the defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs additional validation beyond struct tags
func (c *Config) Validate() error {
	switch c.Feed.Provider {
	case "github", "gitlab":
		// OK
	default:
		return fmt.Errorf("invalid provider: %s (must be github or gitlab)", c.Feed.Provider)
	}

	if c.Feed.Owner == "" || c.Feed.Repo == "" {
		return fmt.Errorf("owner and repo must be set")
	}

	if c.Download.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d (must be positive)", c.Download.ChunkSize)
	}
	if c.Download.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d (must not be negative)", c.Download.RateLimit)
	}
	if c.Feed.Timeout < 0 {
		return fmt.Errorf("invalid feed timeout: %s (must not be negative)", c.Feed.Timeout)
	}
	if c.Download.Timeout < 0 {
		return fmt.Errorf("invalid download timeout: %s (must not be negative)", c.Download.Timeout)
	}

	switch strings.ToLower(c.UI.LogLevel) {
	case "debug", "info", "warn", "error":
		// OK
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.UI.LogLevel)
	}

	return nil
}

// Project returns the feed project path, e.g. "julelang/jule".
func (c *Config) Project() string {
	return c.Feed.Owner + "/" + c.Feed.Repo
}

// PlatformKeyword returns the asset keyword, defaulting to the running OS.
func (c *Config) PlatformKeyword() string {
	if c.Feed.Platform != "" {
		return c.Feed.Platform
	}
	return runtime.GOOS
}

// InstallDir returns the configured install directory or ~/jule.
func (c *Config) InstallDir() (string, error) {
	if c.Install.Dir != "" {
		return filepath.Abs(c.Install.Dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home dir: %w", err)
	}
	return filepath.Join(home, "jule"), nil
}
