// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat maintains a logical connection to Stack Overflow chat.
//
// The package provides one core type, [Client], composing four pieces
// of resilience machinery:
//
//   - A retrying request executor that tolerates transient transport
//     failures with a linear backoff (capped at 60 seconds), honors the
//     server's HTTP 409 rate-limit cooldowns by parsing the wait hint
//     out of the response body, and treats HTTP 404 as a terminal
//     "resource unusable" signal.
//   - A per-room session token ("fkey") cache. The anti-forgery token
//     is scraped once from the room page, which also reveals whether
//     the account may post there, and reused for the lifetime of the
//     connection.
//   - An asynchronous outbound dispatcher: [Client.SendMessage]
//     enqueues and returns immediately; a single background worker
//     drains the queue so posts reach the wire strictly in enqueue
//     order, chunk by chunk. Send failures are logged and the post is
//     dropped — a bad post never stops the worker. [Client.Flush]
//     drains the queue and stops the worker.
//   - A cursor-based incremental poller: [Client.GetNewMessages]
//     returns only the messages that arrived since the previous call
//     for that room, never duplicating and never dropping, widening
//     its fetch window as needed when many messages arrived at once.
//
// Terminal conditions are sentinel errors ([ErrRoomUnavailable],
// [ErrCannotPost], [ErrFKeyNotFound], [ErrBadLogin]) checkable with
// errors.Is. Read and login failures surface synchronously; sends are
// fire-and-forget, so their failures are observable only in the logs.
//
// All sleeps go through lib/clock, so tests drive retry and
// rate-limit behavior with a fake clock instead of waiting.
//
// See https://github.com/Zirak/SO-ChatBot/blob/master/source/adapter.js
// for a good description of how the chat protocol works.
package chat
