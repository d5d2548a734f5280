// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/stackchat/stackchat/lib/clock"
)

// Default endpoints and retry policy.
const (
	// DefaultChatURL is the base URL of the chat service.
	DefaultChatURL = "https://chat.stackoverflow.com"

	// DefaultLoginURL is the login page used to authorize credentials.
	DefaultLoginURL = "https://stackoverflow.com/users/login"

	// DefaultRetryPause is the base unit of the linear retry backoff.
	DefaultRetryPause = 5 * time.Second
)

// maxMessageLength is the service's limit on single-line posts.
// Messages containing a line break have no length limit.
const maxMessageLength = 500

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// ChatURL is the base URL of the chat service. Defaults to
	// DefaultChatURL.
	ChatURL string

	// LoginURL is the login page URL. Defaults to DefaultLoginURL.
	LoginURL string

	// HTTPClient is used for all requests. If nil, a client with a
	// cookie jar and redirect-following disabled is constructed. A
	// caller-supplied client must do the same: the login flow depends
	// on observing the 302 response, and the session is carried in
	// cookies set by the login POST.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Clock drives retry and rate-limit sleeps. If nil, the real
	// clock is used. Tests inject clock.Fake.
	Clock clock.Clock

	// RetryPause is the base unit of the linear retry backoff. If
	// zero, DefaultRetryPause is used.
	RetryPause time.Duration
}

// Client is a connection to the chat service. It serializes all
// outbound posts for the connection through one background worker;
// reads run on the calling goroutine. Safe for concurrent use, with
// one caveat: a given room should be polled from a single goroutine
// (see GetNewMessages).
type Client struct {
	chatURL    string
	loginURL   string
	httpClient *http.Client
	logger     *slog.Logger
	clock      clock.Clock
	retryPause time.Duration

	// fkeys caches the per-room anti-forgery token for the lifetime
	// of the connection.
	fkeyMu sync.Mutex
	fkeys  map[int]string

	// cursors holds the last message ID already delivered to the
	// caller per room. Presence in the map means the room is primed.
	cursorMu sync.Mutex
	cursors  map[int]int64

	sender *dispatcher
}

// NewClient creates a connection to the chat service and starts its
// outbound dispatcher. Call Flush to drain pending posts and stop the
// dispatcher when done.
func NewClient(config ClientConfig) (*Client, error) {
	chatURL := config.ChatURL
	if chatURL == "" {
		chatURL = DefaultChatURL
	}
	loginURL := config.LoginURL
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	for _, u := range []string{chatURL, loginURL} {
		if _, err := url.Parse(u); err != nil {
			return nil, fmt.Errorf("chat: invalid URL %q: %w", u, err)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("chat: creating cookie jar: %w", err)
		}
		httpClient = &http.Client{
			Jar: jar,
			// The login flow checks for a 302 response, so redirects
			// must surface rather than being followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	retryPause := config.RetryPause
	if retryPause == 0 {
		retryPause = DefaultRetryPause
	}

	client := &Client{
		chatURL:    strings.TrimRight(chatURL, "/"),
		loginURL:   loginURL,
		httpClient: httpClient,
		logger:     logger,
		clock:      clk,
		retryPause: retryPause,
		fkeys:      make(map[int]string),
		cursors:    make(map[int]int64),
	}
	client.sender = newDispatcher(client)
	return client, nil
}

// JoinRoom checks that the room exists and that the account can post
// to it, and primes the room's new-message cursor at the current
// latest message. There is no separate join call in the protocol —
// joining is entirely client-side state.
func (c *Client) JoinRoom(ctx context.Context, room int) error {
	_, err := c.GetNewMessages(ctx, room)
	return err
}

// SendMessage enqueues a message for the given room and returns
// immediately. The message is posted as a single chunk (SplitNone);
// use SendMessageSplit to break over-length single-line text into
// multiple posts. Delivery failures are logged, never returned —
// sends are fire-and-forget.
func (c *Client) SendMessage(room int, text string) {
	c.sender.enqueue(pendingPost{room: room, text: text, strategy: SplitNone})
}

// SendMessageSplit enqueues a message with an explicit split strategy
// for over-length single-line text. Chunks of one message are always
// delivered contiguously, in order, before the next queued post.
func (c *Client) SendMessageSplit(room int, text string, strategy SplitStrategy) {
	if strategy == nil {
		strategy = SplitNone
	}
	c.sender.enqueue(pendingPost{room: room, text: text, strategy: strategy})
}

// Flush stops accepting new posts, delivers everything queued, and
// waits for the dispatcher worker to exit. In-flight sends complete
// their own retry policy first; with the default unbounded policy and
// a persistently dead network this can block indefinitely.
func (c *Client) Flush() {
	c.sender.flush()
}

// cursor returns the room's poll cursor and whether it is primed.
func (c *Client) cursor(room int) (int64, bool) {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	id, ok := c.cursors[room]
	return id, ok
}

// setCursor records the last message ID delivered for the room.
func (c *Client) setCursor(room int, id int64) {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	c.cursors[room] = id
}
