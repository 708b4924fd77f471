package config

import (
	"encoding/json"
	"os"
)

type JsonConfig struct {
	EndpointAddr            string   `json:"endpoint_addr"`
	SecretKey               string   `json:"secret_key"`
	MasterFile              string   `json:"master_file"`
	RequireServerCredential *bool    `json:"require_server_credential"`
	AllowedServerKeys       []string `json:"allowed_server_keys"`
	LogLevel                string   `json:"log_level"`
}

// parseJson overlays the file at path onto config. An empty path is a
// no-op; unreadable or malformed files panic.
func parseJson(config *Config, path string) {
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.MasterFile != "" {
		config.MasterFile = c.MasterFile
	}
	if c.RequireServerCredential != nil {
		config.RequireServerCredential = *c.RequireServerCredential
	}
	if len(c.AllowedServerKeys) > 0 {
		config.AllowedServerKeys = c.AllowedServerKeys
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
