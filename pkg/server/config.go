// Copyright (c) 2025, The calory-counter Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/calory-counter/catalog/pkg/defaults"
	cerrors "github.com/calory-counter/catalog/pkg/errors"
)

// Config holds server configuration
type Config struct {
	// Server identity
	Name    string `yaml:"-" toml:"-"`
	Version string `yaml:"-" toml:"-"`

	// Listener configuration
	Address string `yaml:"address" toml:"address"`
	Port    int    `yaml:"port" toml:"port"`

	// Catalog backing file, empty keeps the catalog in memory
	CatalogFile string `yaml:"catalogFile" toml:"catalogFile"`

	// Pool sizing
	Workers       int `yaml:"workers" toml:"workers"`
	QueueCapacity int `yaml:"queueCapacity" toml:"queueCapacity"`

	// Timeouts
	AcceptTimeout   time.Duration `yaml:"acceptTimeout" toml:"acceptTimeout"`
	QueueTimeout    time.Duration `yaml:"queueTimeout" toml:"queueTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" toml:"writeTimeout"`
	BindRetryDelay  time.Duration `yaml:"bindRetryDelay" toml:"bindRetryDelay"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout"`

	// Metrics and health endpoint, 0 disables it
	MetricsPort int `yaml:"metricsPort" toml:"metricsPort"`
}

// NewConfig returns a new Config with sensible defaults.
// Use this when you want to customize config programmatically.
func NewConfig() *Config {
	return parseConfig()
}

// parseConfig returns sensible defaults
func parseConfig() *Config {
	cfg := &Config{
		Name:            "catalogd",
		Version:         "undefined",
		Address:         "",
		Port:            defaults.ServerPort,
		CatalogFile:     "calories.csv",
		Workers:         defaults.WorkerCount,
		QueueCapacity:   defaults.QueueCapacity,
		AcceptTimeout:   defaults.AcceptPollTimeout,
		QueueTimeout:    defaults.QueueWaitTimeout,
		ReadTimeout:     defaults.ConnReadTimeout,
		WriteTimeout:    0,
		BindRetryDelay:  defaults.BindRetryDelay,
		ShutdownTimeout: defaults.ServerShutdownTimeout,
		MetricsPort:     0,
	}

	// Override with environment variables if set
	if portStr := os.Getenv("PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			cfg.Port = port
		}
	}

	if file, ok := os.LookupEnv("CATALOG_FILE"); ok {
		cfg.CatalogFile = file
	}

	if portStr := os.Getenv("METRICS_PORT"); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err == nil {
			cfg.MetricsPort = port
		}
	}

	if shutdownStr := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); shutdownStr != "" {
		var seconds int
		if _, err := fmt.Sscanf(shutdownStr, "%d", &seconds); err == nil && seconds > 0 {
			cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
		}
	}

	return cfg
}

// LoadConfigFile overlays the document at path on the defaults. Files
// ending in .toml are read as TOML, anything else as YAML. Keys missing from
// the file keep their default values. Durations are written as Go duration
// strings ("5s", "250ms").
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeNotFound, "failed to read config file",
			err, map[string]any{"path": path})
	}

	cfg := parseConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, cerrors.WrapWithContext(cerrors.ErrCodeInvalidRequest, "failed to parse config file",
			err, map[string]any{"path": path})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that sizes and timeouts are usable.
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return invalidConfig("port", c.Port)
	case c.MetricsPort < 0 || c.MetricsPort > 65535:
		return invalidConfig("metricsPort", c.MetricsPort)
	case c.MetricsPort != 0 && c.MetricsPort == c.Port:
		return invalidConfig("metricsPort", c.MetricsPort)
	case c.Workers <= 0:
		return invalidConfig("workers", c.Workers)
	case c.QueueCapacity <= 0:
		return invalidConfig("queueCapacity", c.QueueCapacity)
	case c.AcceptTimeout <= 0:
		return invalidConfig("acceptTimeout", c.AcceptTimeout)
	case c.QueueTimeout <= 0:
		return invalidConfig("queueTimeout", c.QueueTimeout)
	case c.ReadTimeout <= 0:
		return invalidConfig("readTimeout", c.ReadTimeout)
	case c.WriteTimeout < 0:
		return invalidConfig("writeTimeout", c.WriteTimeout)
	case c.BindRetryDelay <= 0:
		return invalidConfig("bindRetryDelay", c.BindRetryDelay)
	case c.ShutdownTimeout <= 0:
		return invalidConfig("shutdownTimeout", c.ShutdownTimeout)
	}
	return nil
}

// ListenAddress returns the host:port the catalog listener binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

func invalidConfig(field string, value any) error {
	return cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "invalid server configuration",
		map[string]any{"field": field, "value": value})
}
