// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package fingerprint derives a stable, order-independent identity from a set of
// observed WiFi access points. The fingerprint serves as the cache key for
// resolved geolocations: two observation lists that contain the same access
// points, in any order and at any signal strength, map to the same fingerprint.
package fingerprint

import (
	"sort"
	"strings"
)

// Delimiter joins the sorted MAC addresses of a fingerprint. A colon-separated
// MAC address can never contain it, so fingerprints are unambiguous.
const Delimiter = "|"

// Empty is the fingerprint of an observation list without any usable access
// points. It never collides with a real fingerprint since real fingerprints
// always carry at least one MAC address.
const Empty = Fingerprint("")

// Fingerprint is the canonical identity of a set of observed access points.
type Fingerprint string

// String satisfies the fmt.Stringer interface.
func (f Fingerprint) String() string {
	return string(f)
}

// IsEmpty reports whether the fingerprint is the empty sentinel.
func (f Fingerprint) IsEmpty() bool {
	return f == Empty
}

// AccessPoint is a single observed wireless access point. The JSON field names
// follow the wire format of the Ichnaea/Google geolocation APIs.
type AccessPoint struct {
	MACAddress     string `json:"macAddress"`
	SignalStrength int    `json:"signalStrength,omitempty"`
}

// Build derives the fingerprint for the given observation list. MAC addresses
// are upper-cased and de-duplicated, entries without a MAC address are dropped.
// Signal strengths and input order never influence the result.
func Build(observations []AccessPoint) Fingerprint {
	seen := make(map[string]struct{}, len(observations))
	macs := make([]string, 0, len(observations))
	for _, ap := range observations {
		mac := strings.ToUpper(strings.TrimSpace(ap.MACAddress))
		if mac == "" {
			continue
		}
		if _, ok := seen[mac]; ok {
			continue
		}
		seen[mac] = struct{}{}
		macs = append(macs, mac)
	}
	if len(macs) == 0 {
		return Empty
	}
	sort.Strings(macs)
	return Fingerprint(strings.Join(macs, Delimiter))
}
