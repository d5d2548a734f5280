// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// The chat client sleeps in several places: the linear retry backoff,
// server-dictated 409 cooldowns, the malformed-JSON retry pause, and
// the bot's poll ticker. Code that sleeps through the standard time
// package is untestable without real waiting, so every such call site
// accepts a Clock instead.
//
// Production wires Real(). Tests wire Fake(initial) and advance it
// explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	client, err := chat.NewClient(chat.ClientConfig{Clock: c})
//	// ... trigger the code path that sleeps ...
//	c.WaitForTimers(1)        // block until the sleeper registers
//	c.Advance(2 * time.Second) // fire it deterministically
//
// WaitForTimers eliminates the race between a goroutine registering
// its timer and the test advancing the clock — the usual source of
// flakiness in sleep-based tests.
package clock
