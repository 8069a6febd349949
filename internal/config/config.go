// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const configEnv = "WIFIGEOLOCATE"

// Supported geolocation providers.
const (
	ProviderGoogle  = "google"
	ProviderIchnaea = "ichnaea"
)

// Supported cache store backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`
	Listen   string     `fig:"listen" default:"localhost:8099"`

	Entity struct {
		// ID is the entity ID under which the host's own WiFi observations
		// are tracked.
		ID string `fig:"id" default:"local"`
	} `fig:"entity"`

	Provider struct {
		// Allowed values: google, ichnaea
		Name         string `fig:"name" default:"ichnaea"`
		GoogleAPIKey string `fig:"google_api_key"`
		// ValidateKey verifies the Google API key with a test request at startup.
		ValidateKey bool `fig:"validate_key"`
	} `fig:"provider"`

	Cache struct {
		// Allowed values: file, sqlite
		Backend string `fig:"backend" default:"file"`
		Path    string `fig:"path"`
	} `fig:"cache"`

	Intervals struct {
		Scan time.Duration `fig:"scan" default:"2m"`
	} `fig:"intervals"`

	WiFi struct {
		Disable bool `fig:"disable"`
	} `fig:"wifi"`

	GPSD struct {
		Disable bool   `fig:"disable"`
		Host    string `fig:"host" default:"localhost"`
		Port    string `fig:"port" default:"2947"`
	} `fig:"gpsd"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderIchnaea:
	case ProviderGoogle:
		if c.Provider.GoogleAPIKey == "" {
			return fmt.Errorf("provider %s requires an API key", ProviderGoogle)
		}
	default:
		return fmt.Errorf("invalid provider: %s", c.Provider.Name)
	}
	if c.Cache.Backend != CacheBackendFile && c.Cache.Backend != CacheBackendSQLite {
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}
	if c.Intervals.Scan <= 0 {
		return fmt.Errorf("invalid scan interval: %s", c.Intervals.Scan)
	}
	if strings.TrimSpace(c.Entity.ID) == "" {
		return fmt.Errorf("entity ID must not be empty")
	}
	if c.Cache.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to determine default cache path: %w", err)
		}
		file := "location_cache.json"
		if c.Cache.Backend == CacheBackendSQLite {
			file = "location_cache.db"
		}
		c.Cache.Path = filepath.Join(home, ".config", "wifi-geolocate", file)
	}

	return nil
}
