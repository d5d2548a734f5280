// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "time"

// ChatMessage is one message from a chat room. Message IDs are
// server-assigned, unique across the service, and monotonically
// increasing: within a room, a larger ID always means a later message.
type ChatMessage struct {
	// MessageID is the server-assigned message ID.
	MessageID int64

	// RoomID is the room the message was posted to.
	RoomID int

	// UserID is the author's account ID.
	UserID int

	// Username is the author's display name.
	Username string

	// Content is the message text.
	Content string

	// Edits is the number of times the message has been edited.
	Edits int

	// Timestamp is when the message was posted, in local time. Zero
	// if the event carried no timestamp.
	Timestamp time.Time
}

// eventsResponse is the body of the /chats/{room}/events endpoint.
// A missing "events" key decodes as a nil slice.
type eventsResponse struct {
	Events []wireEvent `json:"events"`
}

// wireEvent is one entry of the events list. Every field is optional
// on the wire; absent fields simply leave the zero value.
type wireEvent struct {
	Content   string `json:"content"`
	Edits     int    `json:"edits"`
	MessageID int64  `json:"message_id"`
	RoomID    int    `json:"room_id"`
	TimeStamp int64  `json:"time_stamp"`
	UserID    int    `json:"user_id"`
	UserName  string `json:"user_name"`
}

// message maps a wire event to a ChatMessage. time_stamp is Unix
// seconds; it converts to a local calendar timestamp.
func (e wireEvent) message() ChatMessage {
	m := ChatMessage{
		MessageID: e.MessageID,
		RoomID:    e.RoomID,
		UserID:    e.UserID,
		Username:  e.UserName,
		Content:   e.Content,
		Edits:     e.Edits,
	}
	if e.TimeStamp != 0 {
		m.Timestamp = time.Unix(e.TimeStamp, 0)
	}
	return m
}
