// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotandev/retrace/internal/logger"
)

// CacheStatus summarizes a cache directory.
type CacheStatus struct {
	Dir   string `json:"dir"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

// Status walks the cache directory and totals its mapping files.
func Status(dir string) (*CacheStatus, error) {
	st := &CacheStatus{Dir: dir}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".mapsrc") {
			st.Files++
			st.Bytes += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to calculate cache size: %w", err)
	}
	return st, nil
}

// Clear deletes every cached mapping file and, when idx is non-nil, the
// index rows describing them.
func Clear(dir string, idx *Index) (*CacheStatus, error) {
	st, err := Status(dir)
	if err != nil {
		return nil, err
	}
	for _, kind := range []string{KindMojang, KindFabric} {
		path := filepath.Join(dir, kind)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	if idx != nil {
		if _, err := idx.Clear(); err != nil {
			return nil, err
		}
	}
	logger.Logger.Info("Cache cleared", "dir", dir, "files_deleted", st.Files, "space_freed", st.Bytes)
	return st, nil
}

// FormatBytes converts bytes to human-readable format
func FormatBytes(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	unitIndex := 0

	for size >= 1024 && unitIndex < len(units)-1 {
		size /= 1024
		unitIndex++
	}

	if unitIndex == 0 {
		return fmt.Sprintf("%.0f %s", size, units[unitIndex])
	}
	return fmt.Sprintf("%.2f %s", size, units[unitIndex])
}
