// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import "github.com/google/uuid"

// newRequestID returns a unique ID for correlating log entries of a single
// API request.
func newRequestID() string {
	return uuid.NewString()
}
