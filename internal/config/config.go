package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied by Load when the file leaves a field unset.
const (
	DefaultCookieName    = "session"
	DefaultSendTimeout   = 30 * time.Second
	DefaultProbeInterval = 5 * time.Second
)

// Config represents the global ~/.locachat/config.toml.
type Config struct {
	// BaseURL is the API origin, e.g. "https://app.loca.example".
	BaseURL string `toml:"base_url"`

	// CookieName and CookieValue hold the platform session credential
	// attached to every request.
	CookieName  string `toml:"cookie_name"`
	CookieValue string `toml:"cookie_value"`

	// UserID identifies the authenticated user composing messages.
	UserID string `toml:"user_id"`

	// DefaultProfile selects the local profile directory when no
	// --profile flag is given.
	DefaultProfile string `toml:"default_profile"`

	// SendTimeoutSeconds bounds how long a single send may stay pending
	// before it is demoted to failed. 0 means DefaultSendTimeout.
	SendTimeoutSeconds int `toml:"send_timeout_seconds"`

	// ProbeIntervalSeconds sets how often the offline probe checks the
	// API origin while disconnected. 0 means DefaultProbeInterval.
	ProbeIntervalSeconds int `toml:"probe_interval_seconds"`
}

// Load reads config from the given path and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &cfg, nil
}

// Validate checks the fields the sync core cannot run without.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("base_url must be an absolute URL")
	}
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// SendTimeout returns the configured send timeout as a duration.
func (c *Config) SendTimeout() time.Duration {
	if c.SendTimeoutSeconds <= 0 {
		return DefaultSendTimeout
	}
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// ProbeInterval returns the configured probe interval as a duration.
func (c *Config) ProbeInterval() time.Duration {
	if c.ProbeIntervalSeconds <= 0 {
		return DefaultProbeInterval
	}
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
