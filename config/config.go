// Package config loads alist-cli configuration from defaults, the
// environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robertmeta/alist-cli/feed"
)

// Config holds process-level settings. Membership settings live in the
// store, not here.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db"`

	// Username is the Letterboxd account used when none is stored yet.
	Username string `yaml:"username"`

	// FeedBaseURL is the diary feed host, e.g. https://letterboxd.com
	FeedBaseURL string `yaml:"feed_url"`

	// HTTPTimeout bounds a single feed fetch.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Addr is the listen address for `serve`.
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration with environment overrides:
// ALIST_DB, ALIST_USERNAME, ALIST_FEED_URL, ALIST_ADDR.
func Default() Config {
	return Config{
		DBPath:      envOr("ALIST_DB", defaultDBPath()),
		Username:    os.Getenv("ALIST_USERNAME"),
		FeedBaseURL: envOr("ALIST_FEED_URL", feed.DefaultBaseURL),
		HTTPTimeout: 15 * time.Second,
		Addr:        envOr("ALIST_ADDR", "127.0.0.1:8787"),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	u, err := url.Parse(c.FeedBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed_url must be an http(s) URL, got %q", c.FeedBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "alist-cli")
}

func defaultDBPath() string {
	return filepath.Join(configDir(), "alist-cli.db")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
