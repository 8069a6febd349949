// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package ichnaea implements a geolocate.Resolver backed by an Ichnaea-style
// geolocation service (beacondb.net by default). The service is keyless, which
// makes it a usable fallback when no Google API key is configured.
package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
	"github.com/wneessen/wifi-geolocate/internal/geolocate"
	"github.com/wneessen/wifi-geolocate/internal/http"
)

const (
	apiEndpoint   = "https://api.beacondb.net/v1/geolocate"
	lookupTimeout = time.Second * 5
	name          = "ichnaea"
)

type Provider struct {
	name     string
	http     *http.Client
	endpoint string
}

// APIResult is the subset of the Ichnaea geolocate response we care about.
type APIResult struct {
	Location *struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// New returns a new Ichnaea provider using the given HTTP client.
func New(client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Provider{
		name:     name,
		http:     client,
		endpoint: apiEndpoint,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Resolve submits the observed access points to the Ichnaea service and returns
// the resolved location. Failures are wrapped into the typed sentinels of the
// geolocate package.
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
	status, err := p.http.PostWithTimeout(ctx, p.endpoint, result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}, lookupTimeout)
	if err != nil {
		return geolocate.Location{}, fmt.Errorf("%w: %s", geolocate.ErrNetwork, err)
	}

	var message string
	if result.Error != nil {
		message = result.Error.Message
	}
	switch {
	case status == 400 || status == 401 || status == 403:
		return geolocate.Location{}, fmt.Errorf("%w: %s", geolocate.ErrAuth, message)
	case status == 404:
		return geolocate.Location{}, fmt.Errorf("%w: %s", geolocate.ErrNotFound, message)
	case status == 429:
		return geolocate.Location{}, fmt.Errorf("%w: %s", geolocate.ErrQuotaExceeded, message)
	case status < 200 || status >= 300:
		return geolocate.Location{}, fmt.Errorf("%w: unexpected API status %d (%s)", geolocate.ErrNetwork,
			status, message)
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
