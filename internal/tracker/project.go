// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package tracker

import "github.com/wneessen/wifi-geolocate/internal/geolocate"

// Location sources, in priority order.
const (
	SourceGPS      = "gps"
	SourceGeocoded = "geocoded"
)

// Position is a GPS-sourced coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Attributes are the published location attributes of a tracked entity. The
// geocoded_* fields carry the raw WiFi-resolved location whenever one exists,
// regardless of which source is active. They are pointers so a resolved
// coordinate of 0.0 survives marshaling while unresolved entities omit the
// fields entirely.
type Attributes struct {
	LocationSource    string   `json:"location_source"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Accuracy          float64  `json:"accuracy,omitempty"`
	GeocodedLatitude  *float64 `json:"geocoded_latitude,omitempty"`
	GeocodedLongitude *float64 `json:"geocoded_longitude,omitempty"`
	GeocodedAccuracy  *float64 `json:"geocoded_accuracy,omitempty"`
}

// Project merges a GPS-sourced position and a WiFi-resolved location into the
// attributes published for an entity. GPS wins whenever a non-zero fix is
// present. The second return value is false when there is no location to
// publish at all.
func Project(gps *Position, resolved *geolocate.Location) (Attributes, bool) {
	var attrs Attributes
	if resolved != nil {
		lat, lon, acc := resolved.Latitude, resolved.Longitude, resolved.Accuracy
		attrs.GeocodedLatitude = &lat
		attrs.GeocodedLongitude = &lon
		attrs.GeocodedAccuracy = &acc
	}

	switch {
	case gps != nil && (gps.Latitude != 0 || gps.Longitude != 0):
		attrs.LocationSource = SourceGPS
		attrs.Latitude = gps.Latitude
		attrs.Longitude = gps.Longitude
	case resolved != nil:
		attrs.LocationSource = SourceGeocoded
		attrs.Latitude = resolved.Latitude
		attrs.Longitude = resolved.Longitude
		attrs.Accuracy = resolved.Accuracy
	default:
		return Attributes{}, false
	}
	return attrs, true
}
