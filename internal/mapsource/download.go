// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/logger"
)

// Kinds of cached downloads.
const (
	KindMojang = "mojang"
	KindFabric = "fabric_intermediary"
)

// Download describes one remote mapping file.
type Download struct {
	Kind    string
	Version string
	Source  string
	Hash    Hash
	// Size is the expected length in bytes, or 0 when unknown.
	Size int64
}

// CachePath is where the verified file lives under dir.
func (d Download) CachePath(dir string) string {
	return filepath.Join(dir, d.Kind, fmt.Sprintf("%s.%s.mapsrc", d.Hash.Algorithm, d.Hash.Value))
}

// FetchError reports a download that never verified.
type FetchError struct {
	Source   string
	Path     string
	Failures []error
}

func (e *FetchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("failed to download and verify %s after %d attempts: %s",
		e.Source, len(e.Failures), strings.Join(msgs, "; "))
}

func (e *FetchError) Unwrap() []error {
	return append([]error{errors.ErrMappingNotAvailable}, e.Failures...)
}

// Fetch returns the path of a verified local copy of d, downloading it
// when the cache has no valid copy. A copy that fails verification is
// deleted and downloaded again, up to the client's attempt limit.
func (c *Client) Fetch(ctx context.Context, d Download) (string, error) {
	path := d.CachePath(c.cacheDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	var failures []error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := c.download(ctx, d, path); err != nil {
				failures = append(failures, err)
				logger.Logger.Warn("Mapping download failed", "source", d.Source, "attempt", attempt, "error", err)
				continue
			}
		} else if err != nil {
			return "", fmt.Errorf("failed to open cached mappings %s: %w", path, err)
		}

		err := verifyFile(path, d)
		if err == nil {
			c.record(d, path)
			return path, nil
		}
		failures = append(failures, err)
		logger.Logger.Warn("Cached mappings failed verification",
			"path", path,
			"source", d.Source,
			"attempt", attempt,
			"error", err,
		)
		if rmErr := os.Remove(path); rmErr != nil {
			return "", fmt.Errorf("failed to remove invalid cached mappings %s: %w", path, rmErr)
		}
	}
	return "", &FetchError{Source: d.Source, Path: path, Failures: failures}
}

// download writes the body of d.Source to path through a temporary file so
// a partial download never appears under the final name.
func (c *Client) download(ctx context.Context, d Download, path string) error {
	body, err := c.doGet(ctx, d.Source, MaxDownloadSize)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move download into cache: %w", err)
	}
	logger.Logger.Debug("Downloaded mappings", "source", d.Source, "path", path, "bytes", len(body))
	return nil
}

func verifyFile(path string, d Download) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if d.Size > 0 {
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.Size() != d.Size {
			return fmt.Errorf("%w: file was %d bytes, expected %d", errors.ErrHashMismatch, info.Size(), d.Size)
		}
	}
	return d.Hash.Verify(f)
}

func (c *Client) record(d Download, path string) {
	if c.index == nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	err = c.index.Record(Entry{
		Kind:      d.Kind,
		Version:   d.Version,
		Algorithm: string(d.Hash.Algorithm),
		Hash:      d.Hash.Value,
		Size:      info.Size(),
		Path:      path,
		Source:    d.Source,
		FetchedAt: time.Now(),
	})
	if err != nil {
		logger.Logger.Warn("Failed to record download in cache index", "path", path, "error", err)
	}
}

