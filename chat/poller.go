// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// messageWindow is the step size of the widening fetch used by
// GetNewMessages: 5, then 10, 15, and so on until the window reaches
// back past the cursor. Growth is unbounded — a pathologically bursty
// room fetches a large page rather than dropping messages.
const messageWindow = 5

// GetMessages fetches the latest count messages from a room, oldest
// first. This is the raw primitive under GetNewMessages; it applies
// no cursor logic.
func (c *Client) GetMessages(ctx context.Context, room, count int) ([]ChatMessage, error) {
	key, err := c.fkey(ctx, room)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"mode":     {"messages"},
		"msgCount": {strconv.Itoa(count)},
		"fkey":     {key},
	}
	eventsURL := fmt.Sprintf("%s/chats/%d/events", c.chatURL, room)

	var events eventsResponse
	if err := c.executeJSON(ctx, request{method: http.MethodPost, url: eventsURL, form: form}, &events); err != nil {
		if errors.Is(err, errUnavailable) {
			return nil, fmt.Errorf("chat: room %d: %w", room, ErrRoomUnavailable)
		}
		return nil, fmt.Errorf("chat: fetching messages for room %d: %w", room, err)
	}

	messages := make([]ChatMessage, 0, len(events.Events))
	for _, event := range events.Events {
		messages = append(messages, event.message())
	}
	return messages, nil
}

// GetNewMessages returns the messages that arrived in the room since
// the previous GetNewMessages call, oldest first. The first call for
// a room primes its cursor at the current latest message and returns
// nothing; every later call returns exactly the messages with IDs
// above the cursor, then advances it. A message is never returned
// twice and never skipped.
//
// The cursor moves only forward. Poll a given room from a single
// goroutine — two concurrent polls of the same room would race to
// advance the same cursor.
func (c *Client) GetNewMessages(ctx context.Context, room int) ([]ChatMessage, error) {
	last, primed := c.cursor(room)
	if !primed {
		// Prime: record the latest existing message ID (0 if the
		// room is empty) without surfacing history.
		messages, err := c.GetMessages(ctx, room, 1)
		if err != nil {
			return nil, err
		}
		var id int64
		if len(messages) > 0 {
			id = messages[len(messages)-1].MessageID
		}
		c.setCursor(room, id)
		return nil, nil
	}

	// Widen the window until it reaches back past the cursor, so a
	// burst larger than one window is still captured completely. A
	// short response means the window already spans the room's whole
	// history, so widening further cannot reach any deeper.
	var messages []ChatMessage
	for count := messageWindow; ; count += messageWindow {
		var err error
		messages, err = c.GetMessages(ctx, room, count)
		if err != nil {
			return nil, err
		}
		if len(messages) == 0 || messages[0].MessageID <= last || len(messages) < count {
			break
		}
	}

	pos := -1
	for i, message := range messages {
		if message.MessageID > last {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, nil
	}

	c.setCursor(room, messages[len(messages)-1].MessageID)
	return messages[pos:], nil
}
