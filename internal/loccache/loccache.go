// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package loccache provides the persistent mapping from access-point
// fingerprints to resolved locations. The in-memory mapping is the source of
// truth; every mutation is written through to a durable store as a full
// snapshot. Losing a single write only costs one future redundant API call, so
// persist failures are logged instead of propagated.
package loccache

import (
	"log/slog"
	"sync"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
	"github.com/wneessen/wifi-geolocate/internal/geolocate"
	"github.com/wneessen/wifi-geolocate/internal/logger"
)

// Store is the durable snapshot store backing the cache. Load returns a nil
// mapping when no snapshot exists yet.
type Store interface {
	Load() (map[string]geolocate.Location, error)
	Save(entries map[string]geolocate.Location) error
}

// Cache is the process-wide fingerprint-to-location cache. It is unbounded;
// its size grows with the number of distinct real-world access-point
// combinations encountered.
type Cache struct {
	logger *logger.Logger
	store  Store

	mu      sync.RWMutex
	entries map[fingerprint.Fingerprint]geolocate.Location
}

// New returns a new, empty Cache backed by the given store.
func New(store Store, log *logger.Logger) *Cache {
	return &Cache{
		logger:  log,
		store:   store,
		entries: make(map[fingerprint.Fingerprint]geolocate.Location),
	}
}

// Load populates the in-memory mapping from the durable store. A missing or
// corrupt store initializes an empty cache and logs a warning; geolocation
// then degrades to always-call-API behavior instead of failing startup.
func (c *Cache) Load() {
	stored, err := c.store.Load()
	if err != nil {
		c.logger.Warn("failed to load location cache, starting with an empty cache", logger.Err(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[fingerprint.Fingerprint]geolocate.Location, len(stored))
	for fp, loc := range stored {
		c.entries[fingerprint.Fingerprint(fp)] = loc
	}
	c.logger.Debug("location cache loaded", slog.Int("entries", len(c.entries)))
}

// Get returns the cached location for the given fingerprint. It never
// triggers I/O.
func (c *Cache) Get(fp fingerprint.Fingerprint) (geolocate.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.entries[fp]
	return loc, ok
}

// Put inserts or overwrites the cache entry for the given fingerprint and
// writes the updated snapshot through to the durable store. The map mutation
// and the persist run as one logical step, so concurrent Puts never drop each
// other's entries. A persist failure does not roll back the in-memory
// mutation; the next successful Put retries the full snapshot.
func (c *Cache) Put(fp fingerprint.Fingerprint, loc geolocate.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fp] = loc
	snapshot := make(map[string]geolocate.Location, len(c.entries))
	for key, entry := range c.entries {
		snapshot[key.String()] = entry
	}
	if err := c.store.Save(snapshot); err != nil {
		c.logger.Error("failed to persist location cache", logger.Err(err),
			slog.String("fingerprint", fp.String()))
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
