// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package filestore persists the location cache as a JSON snapshot file.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wneessen/wifi-geolocate/internal/geolocate"
)

// document is the root shape of the snapshot file.
type document struct {
	LocationCache map[string]geolocate.Location `json:"location_cache"`
}

// FileStore loads and saves the full location-cache snapshot from a single
// JSON file on disk.
type FileStore struct {
	path string
}

// New returns a new FileStore persisting to the given path.
func New(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot file and returns its location-cache mapping. A
// missing file is not an error and yields a nil mapping.
func (s *FileStore) Load() (map[string]geolocate.Location, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache store %q: %w", s.path, err)
	}

	doc := new(document)
	if err = json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse cache store %q: %w", s.path, err)
	}
	return doc.LocationCache, nil
}

// Save writes the given location-cache mapping as a full snapshot. The file is
// written to a temporary sibling first and renamed into place, so a crash
// mid-write never leaves a partially written snapshot behind.
func (s *FileStore) Save(entries map[string]geolocate.Location) error {
	if entries == nil {
		entries = make(map[string]geolocate.Location)
	}
	doc := document{LocationCache: entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache store directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache store file: %w", err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache store: %w", err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache store file: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache store %q: %w", s.path, err)
	}
	return nil
}
