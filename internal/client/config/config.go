// Package config loads settings for the docseal command-line client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file named by the global --config flag.
//  3. DOCSEAL_* environment variables, seeded from .env.
//  4. Global command-line flags, applied by the cli package.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "session_file": "/home/me/.docseal/session.json",
//	  "params_file": "ibe_params.bin",
//	  "timeout": "30s",
//	  "log_level": "warn"
//	}
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/docseal/internal/flagx"
)

// Config holds runtime settings for the client.
//
// Fields:
//   - ServerURL: base URL of the main service.
//   - SessionFile: where the session credential is kept after login.
//   - ParamsFile: local copy of the engine public parameters; fetched from
//     the server when missing.
//   - Timeout: upper bound for a single HTTP request.
type Config struct {
	ServerURL   string
	SessionFile string
	ParamsFile  string
	Timeout     time.Duration
	LogLevel    string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.SessionFile = defaultSessionFile()
	c.ParamsFile = "ibe_params.bin"
	c.Timeout = 30 * time.Second
	c.LogLevel = "warn"
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".docseal", "session.json")
}

// Validate reports settings the client cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	if c.SessionFile == "" {
		errs = append(errs, errors.New("session file is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Load applies defaults, the JSON file at path (if any) and env.
func Load(path string, env *flagx.Env) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseEnv overlays DOCSEAL_CLIENT_* variables plus the shared
// DOCSEAL_PUBLIC_PARAMS_FILE and DOCSEAL_LOG_LEVEL.
func parseEnv(config *Config, env *flagx.Env) error {
	env.String(&config.ServerURL, "CLIENT_SERVER_URL")
	env.String(&config.SessionFile, "CLIENT_SESSION_FILE")
	env.String(&config.ParamsFile, "PUBLIC_PARAMS_FILE")
	env.Duration(&config.Timeout, "CLIENT_TIMEOUT")
	env.String(&config.LogLevel, "LOG_LEVEL")
	return env.Err()
}
