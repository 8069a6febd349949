// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package wifiscan

import "testing"

func TestNormalize(t *testing.T) {
	const testBSSID = "AA:BB:CC:DD:EE:FF"

	t.Run("visible network becomes an observation", func(t *testing.T) {
		obs, ok := normalize("HomeNet", testBSSID, -4500)
		if !ok {
			t.Fatal("expected access point to be included")
		}
		if obs.MACAddress != testBSSID {
			t.Errorf("expected MAC address %q, got %q", testBSSID, obs.MACAddress)
		}
	})
	t.Run("signal strength is converted from mBm to dBm", func(t *testing.T) {
		tests := []struct {
			name   string
			signal int32
			want   int
		}{
			{"strong signal", -4500, -45},
			{"weak signal", -8900, -89},
			{"zero signal", 0, 0},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				obs, ok := normalize("HomeNet", testBSSID, tc.signal)
				if !ok {
					t.Fatal("expected access point to be included")
				}
				if obs.SignalStrength != tc.want {
					t.Errorf("expected signal strength %d, got %d", tc.want, obs.SignalStrength)
				}
			})
		}
	})
	t.Run("skipped networks", func(t *testing.T) {
		tests := []struct {
			name string
			ssid string
		}{
			{"hidden network with empty SSID", ""},
			{"hidden network with null-prefixed SSID", "\x00\x00\x00"},
			{"network opting out of location services", "HomeNet_nomap"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				if _, ok := normalize(tc.ssid, testBSSID, -4500); ok {
					t.Errorf("expected SSID %q to be skipped", tc.ssid)
				}
			})
		}
	})
}
