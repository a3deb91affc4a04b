// Package config holds runtime settings for the sessionctl CLI.
//
// Settings are resolved in layers: compiled defaults, then a .env file (if
// present), then process environment variables, then command-line flags.
// Later sources win.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAPIBaseURL     = "ADMIN_API_URL"
	EnvTokenDBPath    = "ADMIN_SESSION_DB"
	EnvRequestTimeout = "ADMIN_REQUEST_TIMEOUT"
	EnvAllowGuest     = "ADMIN_ALLOW_GUEST"
)

// Config holds resolved settings.
//
// Fields:
//   - APIBaseURL: root of the backend API, e.g. "https://api.example.com".
//   - TokenDBPath: SQLite file holding the persisted token pair.
//   - RequestTimeout: per-call deadline for auth API requests.
//   - AllowGuest: whether an unauthenticated session settles in guest mode
//     rather than error mode.
type Config struct {
	APIBaseURL     string
	TokenDBPath    string
	RequestTimeout time.Duration
	AllowGuest     bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.TokenDBPath = "session.db"
	c.RequestTimeout = 10 * time.Second
	c.AllowGuest = true
}

// Load constructs a Config from defaults overlaid with .env and
// environment values. Flag overrides are applied by the CLI layer on top.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	applyEnv(cfg)
	return cfg
}

// applyEnv overlays values from a .env file (when one exists in the
// working directory) and the process environment. A missing .env file is
// not an error.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv(EnvTokenDBPath); v != "" {
		cfg.TokenDBPath = v
	}
	if v := os.Getenv(EnvRequestTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RequestTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv(EnvAllowGuest); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowGuest = b
		}
	}
}
