package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/docseal/internal/timex"
)

// JsonConfig is the on-disk shape; Timeout accepts "30s" or nanoseconds.
type JsonConfig struct {
	ServerURL   string         `json:"server_url"`
	SessionFile string         `json:"session_file"`
	ParamsFile  string         `json:"params_file"`
	Timeout     timex.Duration `json:"timeout"`
	LogLevel    string         `json:"log_level"`
}

func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.ServerURL != "" {
		config.ServerURL = c.ServerURL
	}
	if c.SessionFile != "" {
		config.SessionFile = c.SessionFile
	}
	if c.ParamsFile != "" {
		config.ParamsFile = c.ParamsFile
	}
	if c.Timeout.Duration > 0 {
		config.Timeout = c.Timeout.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	return nil
}
