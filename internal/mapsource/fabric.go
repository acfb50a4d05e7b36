// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/logger"
)

// TinyEntry is where the intermediary jar keeps its Tiny v2 file.
const TinyEntry = "mappings/mappings.tiny"

// FabricArtifactURL is the intermediary jar of version under base.
func FabricArtifactURL(base, version string) string {
	return fmt.Sprintf("%s/net/fabricmc/intermediary/%s/intermediary-%s-v2.jar", base, version, version)
}

// FabricDownload resolves the intermediary jar of version. Its digest
// comes from the .sha512 file published next to it.
func (c *Client) FabricDownload(ctx context.Context, version string) (Download, error) {
	url := FabricArtifactURL(c.fabricMavenURL, version)
	body, err := c.doGet(ctx, url+".sha512", MaxMetadataSize)
	if err != nil {
		return Download{}, errors.WrapMappingNotAvailable(version, err)
	}
	h, err := parseSidecar(SHA512, body)
	if err != nil {
		return Download{}, errors.WrapMappingNotAvailable(version, err)
	}
	return Download{Kind: KindFabric, Version: version, Source: url, Hash: h}, nil
}

// FabricMappings returns the Tiny v2 text of the intermediary mappings for
// version, with namespaces official and intermediary.
func (c *Client) FabricMappings(ctx context.Context, version string) ([]byte, error) {
	d, err := c.FabricDownload(ctx, version)
	if err != nil {
		return nil, err
	}
	path, err := c.Fetch(ctx, d)
	if err != nil {
		return nil, errors.WrapMappingNotAvailable(version, err)
	}
	logger.Logger.Debug("Using intermediary mappings", "version", version, "path", path)

	data, err := ExtractTiny(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intermediary jar for %s: %w", version, err)
	}
	return data, nil
}

// ExtractTiny reads the Tiny file out of an intermediary jar.
func ExtractTiny(jarPath string) ([]byte, error) {
	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar: %w", err)
	}
	defer zr.Close()

	f, err := zr.Open(TinyEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", TinyEntry, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TinyEntry, err)
	}
	return data, nil
}
