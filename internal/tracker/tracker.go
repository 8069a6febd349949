// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package tracker coordinates change detection, the location cache and the
// external geolocation resolver to keep an up-to-date location per tracked
// entity. It enforces a cache-first policy and at most one in-flight external
// resolution per entity.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
	"github.com/wneessen/wifi-geolocate/internal/geolocate"
	"github.com/wneessen/wifi-geolocate/internal/loccache"
	"github.com/wneessen/wifi-geolocate/internal/logger"
)

// entityState is the in-memory tracking state of a single entity. It is not
// persisted: the cache is fingerprint-keyed, so losing it costs at most one
// redundant change-detection pass.
type entityState struct {
	lastFingerprint fingerprint.Fingerprint
	lastResolved    *geolocate.Location
	gps             *Position
	inflight        *inflightCall
}

// changed reports whether the given fingerprint differs from the last one
// committed for this entity. An unset last fingerprint always counts as
// changed.
func (s *entityState) changed(fp fingerprint.Fingerprint) bool {
	return s.lastFingerprint.IsEmpty() || s.lastFingerprint != fp
}

// inflightCall is the pending-operation marker for an entity. Concurrent
// callers for the same entity block on done and share loc/err instead of
// issuing a second external call.
type inflightCall struct {
	done chan struct{}
	fp   fingerprint.Fingerprint
	loc  geolocate.Location
	err  error
}

// Resolution is the outcome of a resolve cycle.
type Resolution struct {
	Location geolocate.Location `json:"location"`
	// Fingerprint is the observation fingerprint the location was resolved
	// for. On a shared resolution it belongs to the in-flight call, which may
	// differ from the caller's own observation set.
	Fingerprint fingerprint.Fingerprint `json:"fingerprint,omitempty"`
	// CacheHit is set when the location was served from the cache without an
	// external call.
	CacheHit bool `json:"cache_hit"`
	// Skipped is set when the observation set was unchanged since the last
	// cycle and no work was done at all.
	Skipped bool `json:"skipped"`
	// Shared is set when the result was taken over from a resolution that was
	// already in flight for the same entity. The in-flight call was started
	// by an earlier caller, so neither force nor a differing observation set
	// of the waiting caller influence it; compare Fingerprint against the
	// caller's own set to detect the mismatch.
	Shared bool `json:"shared"`
}

// Update is a published attribute change for a tracked entity.
type Update struct {
	EntityID   string
	Attributes Attributes
}

// Tracker owns the location cache and the per-entity tracking state.
type Tracker struct {
	logger   *logger.Logger
	cache    *loccache.Cache
	resolver geolocate.Resolver

	mu       sync.Mutex
	entities map[string]*entityState

	subMu sync.Mutex
	subs  map[chan Update]struct{}
}

// New returns a new Tracker using the given cache and resolver.
func New(cache *loccache.Cache, resolver geolocate.Resolver, log *logger.Logger) *Tracker {
	return &Tracker{
		logger:   log,
		cache:    cache,
		resolver: resolver,
		entities: make(map[string]*entityState),
		subs:     make(map[chan Update]struct{}),
	}
}

// Resolve produces an up-to-date location for the given entity from the given
// observation set.
//
// Unless force is set, an unchanged observation set short-circuits without any
// cache or API work, and a cached fingerprint is served without an external
// call. With force set, the external resolver is always invoked and the cached
// entry for the fingerprint is overwritten.
//
// While a resolution is in flight for an entity, concurrent calls for the same
// entity wait for the in-flight result and share it; calls for different
// entities proceed independently. On resolver failure the entity's last
// fingerprint is not advanced, so the same observation set is retried on the
// next cycle.
func (t *Tracker) Resolve(ctx context.Context, entityID string, observations []fingerprint.AccessPoint,
	force bool,
) (Resolution, error) {
	fp := fingerprint.Build(observations)
	if fp.IsEmpty() {
		return Resolution{}, fmt.Errorf("%w for entity %s", geolocate.ErrNoAccessPoints, entityID)
	}

	t.mu.Lock()
	state := t.state(entityID)

	if call := state.inflight; call != nil {
		t.mu.Unlock()
		return t.await(ctx, call)
	}

	if !force {
		if !state.changed(fp) {
			t.mu.Unlock()
			t.logger.Debug("observation set unchanged, skipping geolocation",
				slog.String("entity", entityID), slog.String("fingerprint", fp.String()))
			return Resolution{Fingerprint: fp, Skipped: true}, nil
		}
		if loc, ok := t.cache.Get(fp); ok {
			state.lastFingerprint = fp
			state.lastResolved = &loc
			t.mu.Unlock()
			t.logger.Debug("serving geolocation from cache", slog.String("entity", entityID),
				slog.String("fingerprint", fp.String()))
			t.publish(entityID)
			return Resolution{Location: loc, Fingerprint: fp, CacheHit: true}, nil
		}
	}

	call := &inflightCall{done: make(chan struct{}), fp: fp}
	state.inflight = call
	t.mu.Unlock()

	t.logger.Info("resolving geolocation via external API", slog.String("entity", entityID),
		slog.String("resolver", t.resolver.Name()), slog.Int("access_points", len(observations)))
	loc, err := t.resolver.Resolve(ctx, observations)
	if err != nil {
		err = fmt.Errorf("failed to resolve geolocation for entity %s: %w", entityID, err)
		t.mu.Lock()
		state.inflight = nil
		t.mu.Unlock()
		call.err = err
		close(call.done)
		return Resolution{}, err
	}

	t.cache.Put(fp, loc)
	t.mu.Lock()
	state.inflight = nil
	state.lastFingerprint = fp
	state.lastResolved = &loc
	t.mu.Unlock()
	call.loc = loc
	close(call.done)

	t.logger.Info("geolocation resolved", slog.String("entity", entityID),
		slog.Float64("lat", loc.Latitude), slog.Float64("lon", loc.Longitude),
		slog.Float64("accuracy", loc.Accuracy))
	t.publish(entityID)
	return Resolution{Location: loc, Fingerprint: fp}, nil
}

// await blocks until the in-flight call for an entity completes and shares its
// outcome.
func (t *Tracker) await(ctx context.Context, call *inflightCall) (Resolution, error) {
	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case <-call.done:
	}
	if call.err != nil {
		return Resolution{}, call.err
	}
	return Resolution{Location: call.loc, Fingerprint: call.fp, Shared: true}, nil
}

// SetGPS updates the GPS-sourced position of an entity and republishes its
// attributes. Zero coordinates count as "no GPS fix".
func (t *Tracker) SetGPS(entityID string, pos Position) {
	t.mu.Lock()
	state := t.state(entityID)
	state.gps = &pos
	t.mu.Unlock()
	t.publish(entityID)
}

// Attributes returns the currently published attributes of an entity. The
// second return value is false when the entity is unknown or has no location
// to publish yet.
func (t *Tracker) Attributes(entityID string) (Attributes, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.entities[entityID]
	if !ok {
		return Attributes{}, false
	}
	return Project(state.gps, state.lastResolved)
}

// Entities returns the IDs of all currently tracked entities.
func (t *Tracker) Entities() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.entities))
	for id := range t.entities {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe registers a subscriber for attribute updates of all tracked
// entities and returns the update channel plus an unsubscribe function.
func (t *Tracker) Subscribe(buffer int) (<-chan Update, func()) {
	ch := make(chan Update, buffer)
	t.subMu.Lock()
	t.subs[ch] = struct{}{}
	t.subMu.Unlock()

	unsub := func() {
		t.subMu.Lock()
		delete(t.subs, ch)
		t.subMu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// state returns the tracking state for an entity, creating it on first
// observation. The caller must hold t.mu.
func (t *Tracker) state(entityID string) *entityState {
	state, ok := t.entities[entityID]
	if !ok {
		state = &entityState{}
		t.entities[entityID] = state
	}
	return state
}

// publish projects the entity's current state into published attributes and
// broadcasts them to all subscribers. Slow subscribers are skipped rather than
// blocked on.
func (t *Tracker) publish(entityID string) {
	attrs, ok := t.Attributes(entityID)
	if !ok {
		return
	}
	update := Update{EntityID: entityID, Attributes: attrs}

	t.subMu.Lock()
	defer t.subMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- update:
		default:
		}
	}
}
