// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"net/http"
	"path/filepath"

	"github.com/dotandev/retrace/internal/config"
	"github.com/dotandev/retrace/internal/mapsource"
	"github.com/dotandev/retrace/internal/provider"
)

// openIndex opens the download index of the configured cache directory.
func openIndex(c *config.Config) (*mapsource.Index, error) {
	return mapsource.OpenIndex(filepath.Join(c.CacheDir, mapsource.IndexFile))
}

// newProvider wires the download client, its index and the context cache
// from c. The returned cleanup closes the index.
func newProvider(c *config.Config) (*provider.Provider, func(), error) {
	idx, err := openIndex(c)
	if err != nil {
		return nil, nil, err
	}

	client := mapsource.NewClient(c.CacheDir,
		mapsource.WithHTTPClient(&http.Client{Timeout: c.Timeout()}),
		mapsource.WithManifestURL(c.ManifestURL),
		mapsource.WithFabricMavenURL(c.FabricMavenURL),
		mapsource.WithAttempts(c.DownloadAttempts),
		mapsource.WithIndex(idx),
	)

	return provider.New(client), func() { idx.Close() }, nil
}
