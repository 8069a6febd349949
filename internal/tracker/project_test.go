// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package tracker

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/wneessen/wifi-geolocate/internal/geolocate"
)

func TestProject(t *testing.T) {
	resolved := &geolocate.Location{Latitude: 37.7749, Longitude: -122.4194, Accuracy: 25.0}

	t.Run("GPS always wins when a fix is present", func(t *testing.T) {
		tests := []struct {
			name     string
			resolved *geolocate.Location
		}{
			{"with resolved location", resolved},
			{"without resolved location", nil},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				attrs, ok := Project(&Position{Latitude: 1, Longitude: 2}, tc.resolved)
				if !ok {
					t.Fatal("expected attributes to be published")
				}
				if attrs.LocationSource != SourceGPS {
					t.Errorf("expected source %q, got %q", SourceGPS, attrs.LocationSource)
				}
				if attrs.Latitude != 1 || attrs.Longitude != 2 {
					t.Errorf("expected GPS coordinates, got lat %f lon %f", attrs.Latitude, attrs.Longitude)
				}
			})
		}
	})
	t.Run("resolved location is used without GPS", func(t *testing.T) {
		attrs, ok := Project(nil, resolved)
		if !ok {
			t.Fatal("expected attributes to be published")
		}
		if attrs.LocationSource != SourceGeocoded {
			t.Errorf("expected source %q, got %q", SourceGeocoded, attrs.LocationSource)
		}
		if attrs.Latitude != resolved.Latitude || attrs.Longitude != resolved.Longitude {
			t.Errorf("expected resolved coordinates, got lat %f lon %f", attrs.Latitude, attrs.Longitude)
		}
		if attrs.Accuracy != resolved.Accuracy {
			t.Errorf("expected accuracy %f, got %f", resolved.Accuracy, attrs.Accuracy)
		}
	})
	t.Run("zero GPS coordinates count as no fix", func(t *testing.T) {
		attrs, ok := Project(&Position{}, resolved)
		if !ok {
			t.Fatal("expected attributes to be published")
		}
		if attrs.LocationSource != SourceGeocoded {
			t.Errorf("expected source %q, got %q", SourceGeocoded, attrs.LocationSource)
		}
	})
	t.Run("geocoded raw fields are exposed regardless of active source", func(t *testing.T) {
		attrs, ok := Project(&Position{Latitude: 1, Longitude: 2}, resolved)
		if !ok {
			t.Fatal("expected attributes to be published")
		}
		if attrs.GeocodedLatitude == nil || attrs.GeocodedLongitude == nil || attrs.GeocodedAccuracy == nil {
			t.Fatal("expected geocoded raw fields to be set")
		}
		if *attrs.GeocodedLatitude != resolved.Latitude || *attrs.GeocodedLongitude != resolved.Longitude ||
			*attrs.GeocodedAccuracy != resolved.Accuracy {
			t.Error("expected geocoded raw fields to carry the resolved location")
		}
	})
	t.Run("geocoded raw fields are omitted without a resolved location", func(t *testing.T) {
		attrs, ok := Project(&Position{Latitude: 1, Longitude: 2}, nil)
		if !ok {
			t.Fatal("expected attributes to be published")
		}
		if attrs.GeocodedLatitude != nil || attrs.GeocodedLongitude != nil || attrs.GeocodedAccuracy != nil {
			t.Error("expected geocoded raw fields to be unset")
		}
	})
	t.Run("zero geocoded coordinates survive marshaling", func(t *testing.T) {
		attrs, ok := Project(nil, &geolocate.Location{Latitude: 0, Longitude: -122.4194, Accuracy: 25.0})
		if !ok {
			t.Fatal("expected attributes to be published")
		}
		data, err := json.Marshal(attrs)
		if err != nil {
			t.Fatalf("failed to marshal attributes: %s", err)
		}
		if !strings.Contains(string(data), `"geocoded_latitude":0`) {
			t.Errorf("expected zero geocoded latitude to be marshaled, got: %s", data)
		}
	})
	t.Run("nothing to publish without any location", func(t *testing.T) {
		if _, ok := Project(nil, nil); ok {
			t.Error("expected no attributes to be published")
		}
	})
}
