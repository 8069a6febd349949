// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package sqlitestore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/wneessen/wifi-geolocate/internal/geolocate"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "location_cache.db"))
	if err != nil {
		t.Fatalf("failed to create sqlite store: %s", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close sqlite store: %s", err)
		}
	})
	return store
}

func TestSQLiteStore(t *testing.T) {
	t.Run("save and load round-trip", func(t *testing.T) {
		store := newTestStore(t)
		entries := make(map[string]geolocate.Location)
		for i := range 5 {
			entries[fmt.Sprintf("00:00:00:00:00:0%d|AA:BB:CC:DD:EE:FF", i)] = geolocate.Location{
				Latitude:  float64(i) + 0.5,
				Longitude: float64(-i) - 0.5,
				Accuracy:  25.0,
			}
		}

		if err := store.Save(entries); err != nil {
			t.Fatalf("failed to save cache: %s", err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("failed to load cache: %s", err)
		}
		if len(loaded) != len(entries) {
			t.Fatalf("expected %d entries, got %d", len(entries), len(loaded))
		}
		for key, want := range entries {
			if got := loaded[key]; got != want {
				t.Errorf("expected %+v for %q, got %+v", want, key, got)
			}
		}
	})
	t.Run("empty database loads empty", func(t *testing.T) {
		store := newTestStore(t)
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("failed to load cache: %s", err)
		}
		if len(loaded) != 0 {
			t.Errorf("expected empty mapping, got %d entries", len(loaded))
		}
	})
	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		store := newTestStore(t)
		first := map[string]geolocate.Location{
			"AA:BB:CC:DD:EE:FF": {Latitude: 1, Longitude: 2, Accuracy: 3},
			"11:22:33:44:55:66": {Latitude: 4, Longitude: 5, Accuracy: 6},
		}
		if err := store.Save(first); err != nil {
			t.Fatalf("failed to save cache: %s", err)
		}

		second := map[string]geolocate.Location{
			"AA:BB:CC:DD:EE:FF": {Latitude: 7, Longitude: 8, Accuracy: 9},
		}
		if err := store.Save(second); err != nil {
			t.Fatalf("failed to save cache: %s", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("failed to load cache: %s", err)
		}
		if len(loaded) != 1 {
			t.Fatalf("expected 1 entry after snapshot replacement, got %d", len(loaded))
		}
		if loc := loaded["AA:BB:CC:DD:EE:FF"]; loc.Latitude != 7 {
			t.Errorf("expected replaced entry, got %+v", loc)
		}
	})
}
