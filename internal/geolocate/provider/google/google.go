// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package google implements a geolocate.Resolver backed by the Google
// Geolocation API.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
	"github.com/wneessen/wifi-geolocate/internal/geolocate"
	"github.com/wneessen/wifi-geolocate/internal/http"
)

const (
	apiEndpoint   = "https://www.googleapis.com/geolocation/v1/geolocate"
	lookupTimeout = time.Second * 10
	name          = "google"
)

type Provider struct {
	name     string
	http     *http.Client
	apiKey   string
	endpoint string
}

// APIResult is the subset of the Google Geolocation API response we care about.
// On failure the API responds with an error document instead of a location.
type APIResult struct {
	Location *struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64   `json:"accuracy"`
	Error    *APIError `json:"error"`
}

// APIError is the error document of the Google Geolocation API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  []struct {
		Reason string `json:"reason"`
	} `json:"errors"`
}

// New returns a new Google Geolocation API provider using the given HTTP client
// and API key.
func New(client *http.Client, apiKey string) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &Provider{
		name:     name,
		http:     client,
		apiKey:   apiKey,
		endpoint: apiEndpoint,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Resolve submits the observed access points to the Google Geolocation API and
// returns the resolved location. Failures are wrapped into the typed sentinels
// of the geolocate package.
func (p *Provider) Resolve(ctx context.Context, observations []fingerprint.AccessPoint) (geolocate.Location, error) {
	if len(observations) == 0 {
		return geolocate.Location{}, geolocate.ErrNoAccessPoints
	}

	type request struct {
		ConsiderIP   bool                      `json:"considerIp"`
		AccessPoints []fingerprint.AccessPoint `json:"wifiAccessPoints"`
	}
	req := request{
		ConsiderIP:   false,
		AccessPoints: observations,
	}
	bodyBuffer := bytes.NewBuffer(nil)
	if err := json.NewEncoder(bodyBuffer).Encode(req); err != nil {
		return geolocate.Location{}, fmt.Errorf("failed to encode access point list to JSON: %w", err)
	}

	result := new(APIResult)
	status, err := p.http.PostWithTimeout(ctx, p.url(), result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}, lookupTimeout)
	if err != nil {
		return geolocate.Location{}, fmt.Errorf("%w: %s", geolocate.ErrNetwork, err)
	}
	if err = classify(status, result.Error); err != nil {
		return geolocate.Location{}, err
	}
	if result.Location == nil {
		return geolocate.Location{}, fmt.Errorf("%w: no location in API response", geolocate.ErrNotFound)
	}

	return geolocate.Location{
		Latitude:  result.Location.Latitude,
		Longitude: result.Location.Longitude,
		Accuracy:  result.Accuracy,
	}, nil
}

// ValidateKey verifies the configured API key by submitting an empty request.
// The API rejects the request either way, but the error classification tells
// an invalid key apart from a merely unresolvable (empty) observation set.
func (p *Provider) ValidateKey(ctx context.Context) error {
	result := new(APIResult)
	status, err := p.http.PostWithTimeout(ctx, p.url(), result, strings.NewReader("{}"),
		map[string]string{"Content-Type": "application/json"}, lookupTimeout)
	if err != nil {
		return fmt.Errorf("%w: %s", geolocate.ErrNetwork, err)
	}
	if err = classify(status, result.Error); errors.Is(err, geolocate.ErrAuth) {
		return fmt.Errorf("API key validation failed: %w", err)
	}
	// Any non-auth response means the key itself is usable.
	return nil
}

func (p *Provider) url() string {
	query := url.Values{}
	query.Add("key", p.apiKey)
	return p.endpoint + "?" + query.Encode()
}

// classify maps an API response status and error document onto the typed
// resolver failures.
func classify(status int, apiErr *APIError) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var message string
	var reasons []string
	if apiErr != nil {
		message = apiErr.Message
		for _, e := range apiErr.Errors {
			reasons = append(reasons, e.Reason)
		}
	}

	switch status {
	case 400:
		if keyRelated(message, reasons) {
			return fmt.Errorf("%w: %s", geolocate.ErrAuth, message)
		}
		return fmt.Errorf("%w: invalid request (%s)", geolocate.ErrNetwork, message)
	case 401:
		return fmt.Errorf("%w: %s", geolocate.ErrAuth, message)
	case 403:
		if quotaRelated(reasons) {
			return fmt.Errorf("%w: %s", geolocate.ErrQuotaExceeded, message)
		}
		return fmt.Errorf("%w: %s", geolocate.ErrAuth, message)
	case 404:
		return fmt.Errorf("%w: %s", geolocate.ErrNotFound, message)
	case 429:
		return fmt.Errorf("%w: %s", geolocate.ErrQuotaExceeded, message)
	default:
		return fmt.Errorf("%w: unexpected API status %d (%s)", geolocate.ErrNetwork, status, message)
	}
}

func keyRelated(message string, reasons []string) bool {
	for _, reason := range reasons {
		if reason == "keyInvalid" || reason == "keyExpired" {
			return true
		}
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "invalid key")
}

func quotaRelated(reasons []string) bool {
	for _, reason := range reasons {
		switch reason {
		case "dailyLimitExceeded", "userRateLimitExceeded", "rateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}
