// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared helpers for tests that need to mock out
// HTTP transports.
package testhelper

import "net/http"

// MockRoundTripper satisfies http.RoundTripper and delegates every request
// to Fn, allowing tests to serve canned responses without a network.
type MockRoundTripper struct {
	Fn func(req *http.Request) (*http.Response, error)
}

// RoundTrip implements the http.RoundTripper interface.
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}
