// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/stackchat/stackchat/lib/netutil"
)

// fkeyPattern matches the anti-forgery token embedded in an HTML
// attribute: a 32-character lowercase hex value.
var fkeyPattern = regexp.MustCompile(`value="([0-9a-f]{32})"`)

// postMarker is the message input box. It is absent from the room
// page when the account cannot post there — the room is inactive, or
// protected and the account not approved.
const postMarker = `<textarea id="input">`

// fkey returns the room's anti-forgery token, fetching and caching it
// on first access. The fetch happens outside the cache lock so
// unrelated rooms never serialize behind one slow page load; a
// concurrent duplicate fetch for the same room is harmless, both
// callers store the same token.
//
// The cached token is never invalidated — the service keeps tokens
// valid for the lifetime of the login session.
func (c *Client) fkey(ctx context.Context, room int) (string, error) {
	c.fkeyMu.Lock()
	key, ok := c.fkeys[room]
	c.fkeyMu.Unlock()
	if ok {
		return key, nil
	}

	roomURL := fmt.Sprintf("%s/rooms/%d", c.chatURL, room)
	resp, err := c.execute(ctx, request{method: http.MethodGet, url: roomURL}, retryForever, expectStatusAny)
	if err != nil {
		if errors.Is(err, errUnavailable) {
			return "", fmt.Errorf("chat: room %d: %w", room, ErrRoomUnavailable)
		}
		return "", fmt.Errorf("chat: loading page for room %d: %w", room, err)
	}

	html := string(resp.body)
	if !strings.Contains(html, postMarker) {
		return "", fmt.Errorf("chat: room %d: %w", room, ErrCannotPost)
	}

	key, ok = parseFKey(html)
	if !ok {
		return "", fmt.Errorf("chat: room %d: %w", room, ErrFKeyNotFound)
	}

	c.fkeyMu.Lock()
	c.fkeys[room] = key
	c.fkeyMu.Unlock()
	return key, nil
}

// parseFKey extracts the fkey token from an HTML page.
func parseFKey(html string) (string, bool) {
	match := fkeyPattern.FindStringSubmatch(html)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Login authorizes the credentials against the login page. The
// session is carried in cookies set by the response, so the HTTP
// client's jar holds the resulting authentication state.
//
// Success is signaled by a redirect; any other outcome is ErrBadLogin.
func (c *Client) Login(ctx context.Context, email, password string) error {
	c.logger.Info("logging in", "email", email)

	resp, err := c.execute(ctx, request{method: http.MethodGet, url: c.loginURL}, retryForever, expectStatusAny)
	if err != nil {
		return fmt.Errorf("chat: loading login page: %w", err)
	}
	key, ok := parseFKey(string(resp.body))
	if !ok {
		return fmt.Errorf("chat: login page: %w", ErrFKeyNotFound)
	}

	// The credential POST is deliberately not retried: replaying
	// credentials against a flaky endpoint risks lockouts, and a
	// failed login is immediately visible to the caller anyway.
	form := url.Values{
		"email":    {email},
		"password": {password},
		"fkey":     {key},
	}
	httpReq, err := request{method: http.MethodPost, url: c.loginURL, form: form}.build(ctx)
	if err != nil {
		return err
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat: login request: %w", err)
	}

	if httpResp.StatusCode != http.StatusFound {
		c.logger.Error("login rejected",
			"email", email,
			"status", httpResp.StatusCode,
			"body", netutil.ErrorBody(httpResp.Body),
		)
		httpResp.Body.Close()
		return fmt.Errorf("chat: login as %s (status %d): %w", email, httpResp.StatusCode, ErrBadLogin)
	}
	httpResp.Body.Close()
	return nil
}
