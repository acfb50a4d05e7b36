// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"context"
	"fmt"
	"os"

	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/logger"
)

// Manifest is the subset of the version manifest retrace reads.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []ManifestVersion `json:"versions"`
}

// ManifestVersion points at one version's metadata.
type ManifestVersion struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// VersionInfo is the subset of a version's metadata retrace reads.
type VersionInfo struct {
	ID        string `json:"id"`
	Downloads struct {
		// Client mappings also cover the server classes.
		ClientMappings *RemoteFile `json:"client_mappings"`
	} `json:"downloads"`
}

// RemoteFile is a download entry in version metadata.
type RemoteFile struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// FetchManifest downloads the version manifest.
func (c *Client) FetchManifest(ctx context.Context) (*Manifest, error) {
	var m Manifest
	if err := c.getJSON(ctx, c.manifestURL, &m); err != nil {
		return nil, fmt.Errorf("failed to fetch version manifest: %w", err)
	}
	return &m, nil
}

// MojangDownload resolves the official mappings download of version.
func (c *Client) MojangDownload(ctx context.Context, version string) (Download, error) {
	m, err := c.FetchManifest(ctx)
	if err != nil {
		return Download{}, errors.WrapMappingNotAvailable(version, err)
	}

	var entry *ManifestVersion
	for i := range m.Versions {
		if m.Versions[i].ID == version {
			entry = &m.Versions[i]
			break
		}
	}
	if entry == nil {
		return Download{}, errors.WrapVersionNotFound(version)
	}

	var info VersionInfo
	if err := c.getJSON(ctx, entry.URL, &info); err != nil {
		return Download{}, errors.WrapMappingNotAvailable(version, err)
	}
	cm := info.Downloads.ClientMappings
	if cm == nil || cm.URL == "" {
		return Download{}, errors.WrapMappingNotAvailable(version, fmt.Errorf("version metadata has no client_mappings"))
	}

	return Download{
		Kind:    KindMojang,
		Version: version,
		Source:  cm.URL,
		Hash:    NewHash(SHA1, cm.SHA1),
		Size:    cm.Size,
	}, nil
}

// MojangMappings returns the ProGuard text of the official mappings for
// version, written as mojang -> obf.
func (c *Client) MojangMappings(ctx context.Context, version string) ([]byte, error) {
	d, err := c.MojangDownload(ctx, version)
	if err != nil {
		return nil, err
	}
	path, err := c.Fetch(ctx, d)
	if err != nil {
		return nil, errors.WrapMappingNotAvailable(version, err)
	}
	logger.Logger.Debug("Using official mappings", "version", version, "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached mappings: %w", err)
	}
	return data, nil
}
