// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package cache persists rendered decompilation output in a local sqlite
// database. Entries are keyed by module hash plus a render-options string,
// so a re-run over an unchanged binary is a single lookup instead of a full
// pipeline pass.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dotandev/wasmdec/internal/errors"
	"github.com/dotandev/wasmdec/internal/logger"
)

// Store handles cache database operations
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// Open opens (or creates) the cache database under dir. maxEntries bounds
// the number of stored outputs before least-recently-used pruning; zero or
// negative means unbounded.
func Open(dir string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapCacheError(fmt.Errorf("failed to create cache directory: %w", err))
	}
	dbPath := filepath.Join(dir, "cache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapCacheError(fmt.Errorf("failed to open cache db: %w", err))
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, errors.WrapCacheError(err)
	}

	return &Store{db: db, path: dbPath, maxEntries: maxEntries}, nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS outputs (
		module_hash TEXT NOT NULL,
		options TEXT NOT NULL,
		output TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		last_access DATETIME NOT NULL,
		PRIMARY KEY (module_hash, options)
	);
	CREATE INDEX IF NOT EXISTS idx_outputs_last_access ON outputs(last_access);
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashModule derives the cache key for a module image.
func HashModule(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached output for a module hash and options key, marking
// the entry as recently used. The second return is false on a miss.
func (s *Store) Get(hash, options string) (string, bool, error) {
	var output string
	query := `SELECT output FROM outputs WHERE module_hash = ? AND options = ?`
	err := s.db.QueryRow(query, hash, options).Scan(&output)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup failed: %w", err)
	}

	touch := `UPDATE outputs SET last_access = ? WHERE module_hash = ? AND options = ?`
	if _, err := s.db.Exec(touch, time.Now(), hash, options); err != nil {
		logger.Logger.Warn("failed to touch cache entry", "error", err)
	}

	return output, true, nil
}

// Put stores a rendered output, replacing any previous entry for the same
// key, then prunes least-recently-used entries beyond the store's bound.
func (s *Store) Put(hash, options, output string) error {
	now := time.Now()
	query := `
	INSERT OR REPLACE INTO outputs (module_hash, options, output, created_at, last_access)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, hash, options, output, now, now); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return s.prune()
}

func (s *Store) prune() error {
	if s.maxEntries <= 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outputs`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}
	if count <= s.maxEntries {
		return nil
	}

	query := `
	DELETE FROM outputs WHERE rowid IN (
		SELECT rowid FROM outputs ORDER BY last_access ASC, rowid ASC LIMIT ?
	)
	`
	res, err := s.db.Exec(query, count-s.maxEntries)
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	removed, _ := res.RowsAffected()
	logger.Logger.Debug("pruned cache entries", "removed", removed, "limit", s.maxEntries)
	return nil
}

// Status describes the current cache contents.
type Status struct {
	Path      string
	Entries   int
	SizeBytes int64
}

// Status reports the entry count and on-disk size of the cache.
func (s *Store) Status() (*Status, error) {
	st := &Status{Path: s.path}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outputs`).Scan(&st.Entries); err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	return st, nil
}

// Clear deletes every cache entry and compacts the database file.
func (s *Store) Clear() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM outputs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := s.db.Exec(`VACUUM`); err != nil {
		logger.Logger.Warn("cache compaction failed", "error", err)
	}

	logger.Logger.Debug("cache cleared", "removed", removed)
	return removed, nil
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
