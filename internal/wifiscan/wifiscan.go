// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package wifiscan produces access-point observations for the local entity by
// scanning the host's wireless station interfaces via netlink.
package wifiscan

import (
	"fmt"
	"strings"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/wifi-geolocate/internal/fingerprint"
)

// Scanner scans the host's WiFi interfaces for visible access points.
type Scanner struct {
	wlan *wifi.Client
}

// New returns a new Scanner. It fails when the host has no accessible
// nl80211 interface.
func New() (*Scanner, error) {
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}
	return &Scanner{wlan: wlan}, nil
}

// Scan returns the currently visible access points on all station interfaces.
// Hidden networks and networks opting out of location services (SSID suffix
// "_nomap") are skipped. Signal strengths are reported in dBm.
func (s *Scanner) Scan() ([]fingerprint.AccessPoint, error) {
	var checkIfaces []*wifi.Interface
	var list []fingerprint.AccessPoint

	ifaces, err := s.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		checkIfaces = append(checkIfaces, iface)
	}
	if len(checkIfaces) == 0 {
		return nil, nil
	}

	for _, iface := range checkIfaces {
		aps, err := s.wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			obs, ok := normalize(ap.SSID, ap.BSSID.String(), ap.Signal)
			if !ok {
				continue
			}
			list = append(list, obs)
		}
	}

	return list, nil
}

// normalize converts a scanned access point into an observation. Hidden
// networks and networks opting out of location services (SSID suffix
// "_nomap") report false. The signal strength arrives in mBm from nl80211 and
// is converted to dBm.
func normalize(ssid, bssid string, signal int32) (fingerprint.AccessPoint, bool) {
	if ssid == "" || ssid[0] == '\x00' || strings.HasSuffix(ssid, "_nomap") {
		return fingerprint.AccessPoint{}, false
	}
	return fingerprint.AccessPoint{
		MACAddress:     bssid,
		SignalStrength: int(signal / 100),
	}, true
}

// Close releases the underlying netlink client.
func (s *Scanner) Close() error {
	return s.wlan.Close()
}
