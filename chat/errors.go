// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "errors"

// Terminal error conditions. All are wrapped with context (room
// number, email) when returned — test with errors.Is:
//
//	if errors.Is(err, chat.ErrCannotPost) { ... }
var (
	// ErrRoomUnavailable means the room page returned 404: the room
	// does not exist or cannot be accessed at all.
	ErrRoomUnavailable = errors.New("room unavailable")

	// ErrCannotPost means the room exists but does not accept posts
	// from this account — it is inactive or protected.
	ErrCannotPost = errors.New("cannot post to room")

	// ErrFKeyNotFound means a page that should carry an fkey token
	// did not contain one. The page layout may have changed.
	ErrFKeyNotFound = errors.New("fkey not found on page")

	// ErrBadLogin means the login credentials were rejected.
	ErrBadLogin = errors.New("bad login")
)

// errUnavailable is the executor's terminal 404 outcome. The fkey and
// poller layers translate it to ErrRoomUnavailable with room context;
// the dispatcher logs it and drops the chunk.
var errUnavailable = errors.New("resource unavailable (404)")
