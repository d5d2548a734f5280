// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/stackchat/stackchat/lib/netutil"
)

// Retry policy values for execute. retryForever is the deliberate
// unbounded policy used for reads and sends: the connection would
// rather wait out an outage than lose a message.
const (
	retryForever    = -1
	expectStatusAny = 0
)

// maxRetrySleep caps the linear backoff between attempts.
const maxRetrySleep = 60 * time.Second

// rateLimitFallback is the wait applied to a 409 response whose body
// carries no parsable wait hint.
const rateLimitFallback = 5 * time.Second

// rateLimitHint matches the wait-time hint embedded in a 409 body:
// "You can perform this action again in 2 seconds".
var rateLimitHint = regexp.MustCompile(`\d+`)

// request is a rebuildable HTTP request: method, URL, and optional
// form body. Go request bodies are single-use, so the executor
// constructs a fresh *http.Request for every attempt.
type request struct {
	method string
	url    string
	form   url.Values
}

func (r request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("chat: building request for %s: %w", r.url, err)
	}
	if r.form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return httpReq, nil
}

// response is the terminal outcome of execute: the final status code
// and the bounded response body.
type response struct {
	status int
	body   []byte
}

// execute performs the request, retrying until it succeeds, the
// attempt budget runs out, or a terminal outcome occurs.
//
// maxAttempts bounds the number of attempts; retryForever retries
// indefinitely. expectedStatus, when not expectStatusAny, causes any
// other status (except 409 and 404, which are handled first) to be
// logged and retried.
//
// The sleep before attempt N+1 grows linearly: (N+1) * retryPause,
// capped at maxRetrySleep. The first attempt never sleeps. A 409
// response overrides the next sleep with the server's wait hint.
// Transport failures are logged and retried. A 404 returns
// errUnavailable immediately. Context cancellation during a sleep or
// a request propagates as an error.
func (c *Client) execute(ctx context.Context, req request, maxAttempts int, expectedStatus int) (*response, error) {
	var attempts int
	var sleep time.Duration
	for maxAttempts == retryForever || attempts <= maxAttempts {
		attempts++
		if sleep > 0 {
			c.logger.Info("sleeping before resending request",
				"url", req.url,
				"sleep", sleep,
				"attempt", attempts,
			)
			select {
			case <-c.clock.After(sleep):
			case <-ctx.Done():
				return nil, fmt.Errorf("chat: interrupted waiting to retry %s: %w", req.url, ctx.Err())
			}
		}

		// Fix the next sleep now; a 409 below may override it.
		sleep = time.Duration(attempts+1) * c.retryPause
		if sleep > maxRetrySleep {
			sleep = maxRetrySleep
		}

		httpReq, err := req.build(ctx)
		if err != nil {
			return nil, err
		}
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("chat: request to %s: %w", req.url, ctx.Err())
			}
			c.logger.Error("request failed, will retry",
				"url", req.url,
				"attempt", attempts,
				"error", err,
			)
			continue
		}

		body, err := netutil.ReadResponse(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			c.logger.Error("reading response body failed, will retry",
				"url", req.url,
				"attempt", attempts,
				"error", err,
			)
			continue
		}

		if httpResp.StatusCode == http.StatusConflict {
			// Posting too fast. The body names the cooldown.
			wait, ok := parseRateLimit(body)
			if !ok {
				wait = rateLimitFallback
			}
			c.logger.Info("rate limited",
				"url", req.url,
				"wait", wait,
				"body", string(body),
			)
			sleep = wait
			continue
		}

		if httpResp.StatusCode == http.StatusNotFound {
			c.logger.Error("404 response", "url", req.url)
			return nil, errUnavailable
		}

		if expectedStatus != expectStatusAny && httpResp.StatusCode != expectedStatus {
			c.logger.Error("unexpected status, will retry",
				"url", req.url,
				"status", httpResp.StatusCode,
				"expected", expectedStatus,
			)
			continue
		}

		return &response{status: httpResp.StatusCode, body: body}, nil
	}
	return nil, fmt.Errorf("chat: request to %s failed after %d attempts", req.url, attempts)
}

// executeJSON performs the request with unbounded retry and decodes
// the response body into v. A body that is not valid JSON (the
// service occasionally returns an HTML error page with status 200) is
// logged and the whole request is retried after the base pause.
func (c *Client) executeJSON(ctx context.Context, req request, v any) error {
	for {
		resp, err := c.execute(ctx, req, retryForever, expectStatusAny)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(resp.body, v); err != nil {
			c.logger.Error("response is not valid JSON, retrying",
				"url", req.url,
				"retry_in", c.retryPause,
				"error", err,
			)
			select {
			case <-c.clock.After(c.retryPause):
			case <-ctx.Done():
				return fmt.Errorf("chat: interrupted waiting to retry %s: %w", req.url, ctx.Err())
			}
			continue
		}
		return nil
	}
}

// parseRateLimit extracts the wait hint from a 409 body: the first
// integer, interpreted as seconds.
func parseRateLimit(body []byte) (time.Duration, bool) {
	match := rateLimitHint.Find(body)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(string(match))
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
