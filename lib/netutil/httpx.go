// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers for the chat client.
//
// All response bodies the client reads — room pages, the login page,
// and event JSON — are small. The bound on ReadResponse exists only to
// keep a misbehaving server from exhausting memory; it is generous
// enough to never interfere with legitimate responses.
package netutil

import (
	"io"
)

// MaxResponseSize bounds response body reads at 4 MB. Chat pages and
// event payloads are orders of magnitude smaller.
const MaxResponseSize int64 = 4 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an HTTP error response body for diagnostic messages.
// Read errors are ignored — a partial body is still useful in a log line.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}
