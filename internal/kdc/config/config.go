// Package config handles configuration for the Key Distribution Center.
// Sources are applied in the same order as for the main service: defaults,
// JSON file (-c/-config), DOCSEAL_* environment (seeded from .env), flags.
package config

import (
	"errors"
	"os"

	"github.com/dmitrijs2005/docseal/internal/flagx"
)

// Config holds runtime settings for the KDC.
//
// SecretKey must equal the main service's session secret: the KDC verifies
// the very credentials the main service issued.
type Config struct {
	EndpointAddr            string
	SecretKey               string
	MasterFile              string
	RequireServerCredential bool
	AllowedServerKeys       []string
	LogLevel                string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8081"
	c.SecretKey = "secretKey"
	c.MasterFile = "ibe_master.bin"
	c.RequireServerCredential = true
	c.AllowedServerKeys = []string{"kdcApiKey"}
	c.LogLevel = "info"
}

// Validate reports settings the KDC cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.MasterFile == "" {
		errs = append(errs, errors.New("master secret file is required"))
	}
	if c.RequireServerCredential && len(c.AllowedServerKeys) == 0 {
		errs = append(errs, errors.New("at least one allowed server key is required"))
	}
	return errors.Join(errs...)
}

func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := flagx.LoadDotEnv(); err != nil {
		panic(err)
	}
	parseJson(cfg, flagx.JsonConfigFlags())
	if err := parseEnv(cfg, flagx.NewEnv(flagx.EnvPrefix)); err != nil {
		panic(err)
	}
	parseFlags(cfg, os.Args[1:])
	return cfg
}

// parseEnv overlays DOCSEAL_SECRET_KEY, DOCSEAL_LOG_LEVEL and the
// DOCSEAL_KDC_* variables.
func parseEnv(config *Config, env *flagx.Env) error {
	env.String(&config.EndpointAddr, "KDC_ENDPOINT_ADDR")
	env.String(&config.SecretKey, "SECRET_KEY")
	env.String(&config.MasterFile, "KDC_MASTER_FILE")
	env.Bool(&config.RequireServerCredential, "KDC_REQUIRE_SERVER_CREDENTIAL")
	env.List(&config.AllowedServerKeys, "KDC_ALLOWED_API_KEYS")
	env.String(&config.LogLevel, "LOG_LEVEL")
	return env.Err()
}
