// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package sqlitestore persists the location cache in a SQLite database. It is
// an alternative to the default JSON file store for installations that prefer
// inspectable storage.
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/wneessen/wifi-geolocate/internal/geolocate"
)

const schema = `
	CREATE TABLE IF NOT EXISTS location_cache (
		fingerprint TEXT PRIMARY KEY,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		accuracy DOUBLE NOT NULL
	);
`

// SQLiteStore loads and saves the full location-cache snapshot from a SQLite
// database file.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path and ensures the
// cache schema exists.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %q: %w", path, err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads all cached locations from the database.
func (s *SQLiteStore) Load() (map[string]geolocate.Location, error) {
	rows, err := s.db.Query("SELECT fingerprint, latitude, longitude, accuracy FROM location_cache")
	if err != nil {
		return nil, fmt.Errorf("failed to query cache database: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make(map[string]geolocate.Location)
	for rows.Next() {
		var fp string
		var loc geolocate.Location
		if err = rows.Scan(&fp, &loc.Latitude, &loc.Longitude, &loc.Accuracy); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		entries[fp] = loc
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache rows: %w", err)
	}
	return entries, nil
}

// Save replaces the stored snapshot with the given mapping in a single
// transaction, so readers never observe a partially written snapshot.
func (s *SQLiteStore) Save(entries map[string]geolocate.Location) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	if _, err = tx.Exec("DELETE FROM location_cache"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear cache table: %w", err)
	}
	for fp, loc := range entries {
		if _, err = tx.Exec(
			"INSERT INTO location_cache (fingerprint, latitude, longitude, accuracy) VALUES (?, ?, ?, ?)",
			fp, loc.Latitude, loc.Longitude, loc.Accuracy,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert cache row: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
