// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	_ "modernc.org/sqlite"
)

// IndexFile is the index database name inside the cache directory.
const IndexFile = "index.db"

// Entry is one verified download.
type Entry struct {
	Kind      string    `json:"kind"`
	Version   string    `json:"version"`
	Algorithm string    `json:"algorithm"`
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Index is a sqlite table of the downloads held in a cache directory.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index at path.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Index{db: db}, nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS downloads (
		kind TEXT NOT NULL,
		version TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		path TEXT NOT NULL,
		source TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, algorithm, hash)
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_version ON downloads(version);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (idx *Index) Close() error {
	return idx.db.Close()
}

// Record inserts e, replacing an earlier row for the same file.
func (idx *Index) Record(e Entry) error {
	query := `
	INSERT INTO downloads (kind, version, algorithm, hash, size, path, source, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (kind, algorithm, hash) DO UPDATE SET
		version = excluded.version,
		size = excluded.size,
		path = excluded.path,
		source = excluded.source,
		fetched_at = excluded.fetched_at
	`
	_, err := idx.db.Exec(query, e.Kind, e.Version, e.Algorithm, e.Hash, e.Size, e.Path, e.Source, e.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// List returns the recorded downloads, optionally of one kind, ordered by
// game version, newest first.
func (idx *Index) List(kind string) ([]Entry, error) {
	query := "SELECT kind, version, algorithm, hash, size, path, source, fetched_at FROM downloads"
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Kind, &e.Version, &e.Algorithm, &e.Hash, &e.Size, &e.Path, &e.Source, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	SortByVersion(entries)
	return entries, nil
}

// Remove deletes the row for path.
func (idx *Index) Remove(path string) error {
	if _, err := idx.db.Exec("DELETE FROM downloads WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to remove download: %w", err)
	}
	return nil
}

// Clear deletes every row and returns how many there were.
func (idx *Index) Clear() (int64, error) {
	res, err := idx.db.Exec("DELETE FROM downloads")
	if err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}
	return res.RowsAffected()
}

// SortByVersion orders entries newest version first. Release versions
// compare numerically; ids that are not version numbers, such as
// snapshots, sort after them by name. Ties keep kind order.
func SortByVersion(entries []Entry) {
	parsed := make(map[string]*version.Version, len(entries))
	for _, e := range entries {
		if _, ok := parsed[e.Version]; ok {
			continue
		}
		parsed[e.Version] = releaseVersion(e.Version)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		vi, vj := parsed[entries[i].Version], parsed[entries[j].Version]
		switch {
		case vi != nil && vj != nil && !vi.Equal(vj):
			return vi.GreaterThan(vj)
		case vi != nil && vj == nil:
			return true
		case vi == nil && vj != nil:
			return false
		case entries[i].Version != entries[j].Version:
			return entries[i].Version > entries[j].Version
		}
		return entries[i].Kind < entries[j].Kind
	})
}

// releaseVersion parses ids shaped like release numbers with an optional
// "-suffix". Snapshot ids such as 23w31a return nil.
func releaseVersion(id string) *version.Version {
	rest := strings.TrimLeft(id, "0123456789.")
	if rest != "" && rest[0] != '-' {
		return nil
	}
	v, err := version.NewVersion(id)
	if err != nil {
		return nil
	}
	return v
}
