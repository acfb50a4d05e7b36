// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package mapsource downloads, verifies and caches the mapping files
// published for each game version.
package mapsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dotandev/retrace/internal/logger"
)

const (
	// DefaultManifestURL lists every released version and its metadata URL.
	DefaultManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

	// DefaultFabricMavenURL hosts the intermediary jars.
	DefaultFabricMavenURL = "https://maven.fabricmc.net"

	// DefaultRequestTimeout is the default timeout for HTTP requests.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultAttempts bounds download-and-verify retries per file.
	DefaultAttempts = 5

	// MaxMetadataSize caps manifest and version JSON responses (16 MB).
	MaxMetadataSize = 16 * 1024 * 1024

	// MaxDownloadSize caps a mapping file download (512 MB).
	MaxDownloadSize = 512 * 1024 * 1024
)

// Client fetches mapping files into a local cache.
type Client struct {
	httpClient     *http.Client
	manifestURL    string
	fabricMavenURL string
	cacheDir       string
	attempts       int
	index          *Index
}

// Option is a functional option for configuring Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithManifestURL overrides the version manifest location.
func WithManifestURL(url string) Option {
	return func(c *Client) {
		c.manifestURL = url
	}
}

// WithFabricMavenURL overrides the Fabric maven base URL.
func WithFabricMavenURL(url string) Option {
	return func(c *Client) {
		c.fabricMavenURL = strings.TrimRight(url, "/")
	}
}

// WithAttempts sets how many times a file is downloaded before giving up.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithIndex records every verified download in idx.
func WithIndex(idx *Index) Option {
	return func(c *Client) {
		c.index = idx
	}
}

// NewClient creates a client caching into cacheDir.
func NewClient(cacheDir string, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: DefaultRequestTimeout},
		manifestURL:    DefaultManifestURL,
		fabricMavenURL: DefaultFabricMavenURL,
		cacheDir:       cacheDir,
		attempts:       DefaultAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheDir returns the directory downloads are stored in.
func (c *Client) CacheDir() string { return c.cacheDir }

// doGet performs an HTTP GET and returns the body limited to limit bytes.
func (c *Client) doGet(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "retrace")

	logger.Logger.Debug("HTTP GET", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, limit)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.doGet(ctx, url, MaxMetadataSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON from %s: %w", url, err)
	}
	return nil
}
