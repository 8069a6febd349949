// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geolocate defines the contract for external geolocation lookup
// services that resolve a set of observed WiFi access points into geographic
// coordinates. Every invocation of a resolver is assumed to carry a real-world
// cost (API billing), which is why results are cached by the caller.
package geolocate

import (
	"context"
	"errors"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
)

// Typed resolver failures. Providers wrap these sentinels so callers can
// classify failures with errors.Is without knowing the provider.
var (
	// ErrNoAccessPoints indicates an observation set that is empty after normalization.
	ErrNoAccessPoints = errors.New("no access points in observation set")
	// ErrAuth indicates a rejected or invalid API credential.
	ErrAuth = errors.New("geolocation API authentication failed")
	// ErrQuotaExceeded indicates the API usage quota has been exhausted.
	ErrQuotaExceeded = errors.New("geolocation API quota exceeded")
	// ErrNotFound indicates the API could not determine a location for the observation set.
	ErrNotFound = errors.New("no location found for observation set")
	// ErrNetwork indicates the API could not be reached or returned an unusable response.
	ErrNetwork = errors.New("geolocation API request failed")
)

// Location is a geographic position resolved from a set of access points.
// It is immutable once produced and identified by the fingerprint that
// produced it.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Resolver resolves a list of observed access points into a Location.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, observations []fingerprint.AccessPoint) (Location, error)
}
