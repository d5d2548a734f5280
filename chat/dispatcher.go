// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// pendingPost is one queued outbound message. It is destroyed once
// the worker has attempted delivery of all its chunks, whether or not
// they landed.
type pendingPost struct {
	room     int
	text     string
	strategy SplitStrategy
}

// dispatcher serializes all outbound posts for a connection. It is an
// unbounded FIFO queue drained by a single worker goroutine: posts
// hit the wire strictly in enqueue order, chunk by chunk, never
// interleaved.
//
// The notify channel (capacity 1) wakes the worker when the queue
// goes non-empty or when flush is requested. Shutdown is a
// "stop accepting, finish draining" signal, not an abort: flush marks
// the finishing flag and the worker exits only once the queue is
// empty.
type dispatcher struct {
	client *Client

	mu        sync.Mutex
	queue     []pendingPost
	finishing bool

	notify chan struct{}
	done   chan struct{}
}

// newDispatcher creates the dispatcher and starts its worker.
func newDispatcher(client *Client) *dispatcher {
	d := &dispatcher{
		client: client,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// enqueue appends a post and returns immediately. There is no
// backpressure limit. Posts enqueued after flush has begun are
// dropped with a log line — the connection is shutting down.
func (d *dispatcher) enqueue(post pendingPost) {
	d.mu.Lock()
	if d.finishing {
		d.mu.Unlock()
		d.client.logger.Error("dropping post, connection is flushing", "room", post.room)
		return
	}
	d.queue = append(d.queue, post)
	d.mu.Unlock()

	d.wake()
}

// flush stops accepting posts, waits for the worker to drain the
// queue completely, and returns once the worker has exited. Safe to
// call more than once.
func (d *dispatcher) flush() {
	d.mu.Lock()
	d.finishing = true
	d.mu.Unlock()

	d.wake()
	<-d.done
}

// wake signals the worker without blocking. A token already in the
// channel is enough — the worker re-checks the queue every pass.
func (d *dispatcher) wake() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// run is the worker loop. Any failure while processing one post is
// logged and the worker moves on — a single bad post must never stop
// the dispatcher.
func (d *dispatcher) run() {
	defer close(d.done)
	for {
		post, ok := d.next()
		if !ok {
			return
		}
		d.deliver(post)
	}
}

// next blocks until a post is available and pops it. Returns ok=false
// when the dispatcher is finishing and the queue is fully drained.
func (d *dispatcher) next() (pendingPost, bool) {
	for {
		d.mu.Lock()
		if len(d.queue) > 0 {
			post := d.queue[0]
			d.queue[0] = pendingPost{}
			d.queue = d.queue[1:]
			d.mu.Unlock()
			return post, true
		}
		finishing := d.finishing
		d.mu.Unlock()

		if finishing {
			return pendingPost{}, false
		}
		<-d.notify
	}
}

// deliver resolves the room's fkey, chunks the text, and posts each
// chunk in order. A chunk whose send fails terminally is logged and
// skipped; the remaining chunks still go out.
func (d *dispatcher) deliver(post pendingPost) {
	c := d.client

	// Sends carry no caller deadline: the post was accepted as
	// fire-and-forget, so delivery waits out whatever outage the
	// retry policy is riding.
	ctx := context.Background()

	key, err := c.fkey(ctx, post.room)
	if err != nil {
		c.logger.Error("dropping post, no fkey for room",
			"room", post.room,
			"error", err,
		)
		return
	}

	var chunks []string
	if strings.Contains(post.text, "\n") {
		// Multi-line posts have no length limit; sent whole.
		chunks = []string{post.text}
	} else {
		chunks = post.strategy.Split(post.text, maxMessageLength)
	}

	postURL := fmt.Sprintf("%s/chats/%d/messages/new", c.chatURL, post.room)
	for _, chunk := range chunks {
		c.logger.Info("posting message", "room", post.room, "length", len(chunk))
		form := url.Values{
			"text": {chunk},
			"fkey": {key},
		}
		_, err := c.execute(ctx, request{method: http.MethodPost, url: postURL, form: form}, retryForever, http.StatusOK)
		if err != nil {
			c.logger.Error("message chunk not delivered, skipping",
				"room", post.room,
				"error", err,
			)
			continue
		}
	}
}
