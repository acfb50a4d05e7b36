// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dotandev/retrace/internal/errors"
)

// Validator validates a specific aspect of the configuration.
type Validator interface {
	Validate(cfg *Config) error
}

// CacheValidator checks the cache directory and download policy.
type CacheValidator struct{}

func (v CacheValidator) Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.CacheDir) == "" {
		return errors.WrapValidationError("cache_dir cannot be empty")
	}
	if cfg.DownloadAttempts <= 0 {
		return errors.WrapValidationError("download_attempts must be positive")
	}
	if cfg.RequestTimeout != "" {
		d, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil || d <= 0 {
			return errors.WrapValidationError("request_timeout must be a positive duration such as 30s")
		}
	}
	return nil
}

// URLValidator checks that every configured endpoint is http(s).
type URLValidator struct{}

func (v URLValidator) Validate(cfg *Config) error {
	fields := []struct {
		name, value string
		required    bool
	}{
		{"manifest_url", cfg.ManifestURL, true},
		{"fabric_maven_url", cfg.FabricMavenURL, true},
		{"otlp_url", cfg.OTLPURL, false},
	}
	for _, f := range fields {
		if f.value == "" {
			if f.required {
				return errors.WrapValidationError(f.name + " cannot be empty")
			}
			continue
		}
		u, err := url.Parse(f.value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.WrapValidationError(f.name + " must use http or https scheme")
		}
	}
	return nil
}

// LogLevelValidator checks that the log level is a known value.
type LogLevelValidator struct{}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func (v LogLevelValidator) Validate(cfg *Config) error {
	if cfg.LogLevel == "" {
		return nil
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return errors.WrapValidationError("log_level must be one of: debug, info, warn, error")
	}
	return nil
}

// DaemonValidator checks the JSON-RPC listener settings.
type DaemonValidator struct{}

func (v DaemonValidator) Validate(cfg *Config) error {
	if cfg.DaemonPort < 0 || cfg.DaemonPort > 65535 {
		return errors.WrapValidationError(fmt.Sprintf("daemon_port %d out of range", cfg.DaemonPort))
	}
	return nil
}

// DefaultValidators returns the standard set of validators.
func DefaultValidators() []Validator {
	return []Validator{
		CacheValidator{},
		URLValidator{},
		LogLevelValidator{},
		DaemonValidator{},
	}
}

// RunValidators executes each validator against the config, returning the
// first error encountered.
func RunValidators(cfg *Config, validators []Validator) error {
	for _, v := range validators {
		if err := v.Validate(cfg); err != nil {
			return err
		}
	}
	return nil
}
