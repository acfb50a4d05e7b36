// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dotandev/retrace/internal/errors"
)

const (
	DefaultManifestURL    = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"
	DefaultFabricMavenURL = "https://maven.fabricmc.net"
	DefaultDaemonPort     = 8080
	DefaultAttempts       = 5
)

// Config represents the general configuration for retrace
type Config struct {
	CacheDir       string `json:"cache_dir,omitempty"`
	LogLevel       string `json:"log_level,omitempty"`
	ManifestURL    string `json:"manifest_url,omitempty"`
	FabricMavenURL string `json:"fabric_maven_url,omitempty"`
	// RequestTimeout is a Go duration string such as "30s".
	RequestTimeout   string `json:"request_timeout,omitempty"`
	DownloadAttempts int    `json:"download_attempts,omitempty"`
	RemapFileNames   bool   `json:"remap_file_names,omitempty"`
	JoinAmbiguous    bool   `json:"join_ambiguous,omitempty"`
	DaemonPort       int    `json:"daemon_port,omitempty"`
	DaemonAuthToken  string `json:"daemon_auth_token,omitempty"`
	OTLPURL          string `json:"otlp_url,omitempty"`
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "retrace")
	}
	return filepath.Join(os.ExpandEnv("$HOME"), ".retrace", "cache")
}

func DefaultConfig() *Config {
	return &Config{
		CacheDir:         defaultCacheDir(),
		LogLevel:         "info",
		ManifestURL:      DefaultManifestURL,
		FabricMavenURL:   DefaultFabricMavenURL,
		RequestTimeout:   "60s",
		DownloadAttempts: DefaultAttempts,
		DaemonPort:       DefaultDaemonPort,
	}
}

// GetGeneralConfigPath returns the path to the general configuration file
func GetGeneralConfigPath() (string, error) {
	configDir, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration file, falling back to the defaults
// when it does not exist.
func LoadConfig() (*Config, error) {
	configPath, err := GetGeneralConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile reads a JSON configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.WrapConfigError("failed to read config file", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError("failed to parse config file", err)
	}

	return config, nil
}

// Load reads the configuration file, applies RETRACE_* environment
// overrides and validates the result.
func Load() (*Config, error) {
	configPath, err := GetGeneralConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadPath(configPath)
}

// LoadPath is Load for an explicit config file.
func LoadPath(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.CacheDir = getEnv("RETRACE_CACHE_DIR", c.CacheDir)
	c.LogLevel = getEnv("RETRACE_LOG_LEVEL", c.LogLevel)
	c.ManifestURL = getEnv("RETRACE_MANIFEST_URL", c.ManifestURL)
	c.FabricMavenURL = getEnv("RETRACE_FABRIC_MAVEN_URL", c.FabricMavenURL)
	c.RequestTimeout = getEnv("RETRACE_REQUEST_TIMEOUT", c.RequestTimeout)
	c.DaemonAuthToken = getEnv("RETRACE_DAEMON_TOKEN", c.DaemonAuthToken)
	c.OTLPURL = getEnv("RETRACE_OTLP_URL", c.OTLPURL)

	if v := os.Getenv("RETRACE_DOWNLOAD_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapConfigError("invalid RETRACE_DOWNLOAD_ATTEMPTS", err)
		}
		c.DownloadAttempts = n
	}

	// Boolean switches accept 1/true/yes.
	switch strings.ToLower(os.Getenv("RETRACE_REMAP_FILE_NAMES")) {
	case "1", "true", "yes":
		c.RemapFileNames = true
	}
	switch strings.ToLower(os.Getenv("RETRACE_JOIN_AMBIGUOUS")) {
	case "1", "true", "yes":
		c.JoinAmbiguous = true
	}
	return nil
}

// SaveConfig saves the configuration to disk (JSON format)
func SaveConfig(config *Config) error {
	configPath, err := GetGeneralConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(configPath, config)
}

// SaveFile writes config as indented JSON, readable by the owner only.
func SaveFile(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.WrapConfigError("failed to create config directory", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.WrapConfigError("failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.WrapConfigError("failed to write config file", err)
	}

	return nil
}

func (c *Config) Validate() error {
	return RunValidators(c, DefaultValidators())
}

// Timeout returns RequestTimeout as a duration, or zero when unset.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{CacheDir: %s, LogLevel: %s, Manifest: %s, FabricMaven: %s, Attempts: %d}",
		c.CacheDir, c.LogLevel, c.ManifestURL, c.FabricMavenURL, c.DownloadAttempts,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) WithCacheDir(dir string) *Config {
	c.CacheDir = dir
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

func (c *Config) WithManifestURL(url string) *Config {
	c.ManifestURL = url
	return c
}

func (c *Config) WithFabricMavenURL(url string) *Config {
	c.FabricMavenURL = url
	return c
}

func (c *Config) WithDownloadAttempts(n int) *Config {
	c.DownloadAttempts = n
	return c
}
