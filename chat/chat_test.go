// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stackchat/stackchat/lib/clock"
)

const testFKey = "0123456789abcdef0123456789abcdef"

// newTestClient creates a Client against a scripted transport with a
// discard logger and the given clock. The dispatcher is flushed on
// test cleanup.
func newTestClient(t *testing.T, transport http.RoundTripper, clk clock.Clock) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		ChatURL:    "http://chat.test",
		LoginURL:   "http://login.test/users/login",
		HTTPClient: &http.Client{Transport: transport},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      clk,
		RetryPause: time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Flush)
	return client
}

// transportStep is one scripted response: either an error or a status
// plus body.
type transportStep struct {
	err    error
	status int
	body   string
}

// scriptedTransport returns canned responses in order and records
// every request it sees. A request past the end of the script fails
// the round trip with a descriptive error.
type scriptedTransport struct {
	mu    sync.Mutex
	steps []transportStep
	calls []capturedRequest
}

type capturedRequest struct {
	method string
	url    string
	form   url.Values
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	captured := capturedRequest{method: req.Method, url: req.URL.String()}
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, err
		}
		captured.form = form
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, captured)

	if len(s.steps) == 0 {
		return nil, fmt.Errorf("scripted transport: no step for request %d (%s %s)", len(s.calls), req.Method, req.URL)
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.err != nil {
		return nil, step.err
	}
	return &http.Response{
		StatusCode: step.status,
		Body:       io.NopCloser(strings.NewReader(step.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedTransport) call(i int) capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

// fakeChatService is an httptest-backed chat server: room pages with
// fkey and postability markers, the events endpoint with msgCount
// windows, and the message post endpoint. Messages are held oldest
// first per room.
type fakeChatService struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	messages    map[int][]wireEvent
	protected   map[int]bool // room page lacks the input textarea
	missing     map[int]bool // room page 404s
	roomLoads   map[int]int  // GET /rooms/{id} count
	msgCounts   []int        // msgCount params seen, in order
	posted      []postedChunk
	rejectPosts int // next N posts answer 409 with a 2-second hint
}

type postedChunk struct {
	room int
	text string
}

func newFakeChatService(t *testing.T) *fakeChatService {
	t.Helper()
	f := &fakeChatService{
		t:         t,
		messages:  make(map[int][]wireEvent),
		protected: make(map[int]bool),
		missing:   make(map[int]bool),
		roomLoads: make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms/{room}", f.handleRoomPage)
	mux.HandleFunc("POST /chats/{room}/events", f.handleEvents)
	mux.HandleFunc("POST /chats/{room}/messages/new", f.handlePost)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// client creates a Client wired to the fake service with a real
// clock. Tests that exercise sleeps use scriptedTransport with a fake
// clock instead; against this fake everything answers immediately.
func (f *fakeChatService) client(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		ChatURL:    f.server.URL,
		LoginURL:   f.server.URL + "/users/login",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		RetryPause: time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Flush)
	return client
}

func (f *fakeChatService) roomFromRequest(r *http.Request) int {
	room, err := strconv.Atoi(r.PathValue("room"))
	if err != nil {
		f.t.Errorf("bad room in path %s: %v", r.URL.Path, err)
	}
	return room
}

func (f *fakeChatService) handleRoomPage(w http.ResponseWriter, r *http.Request) {
	room := f.roomFromRequest(r)

	f.mu.Lock()
	f.roomLoads[room]++
	missing := f.missing[room]
	protected := f.protected[room]
	f.mu.Unlock()

	if missing {
		http.NotFound(w, r)
		return
	}
	if protected {
		fmt.Fprintf(w, `<html><body><h1>room %d</h1><input value=%q></body></html>`, room, testFKey)
		return
	}
	fmt.Fprintf(w, `<html><body><h1>room %d</h1><textarea id="input"></textarea><input value=%q></body></html>`, room, testFKey)
}

func (f *fakeChatService) handleEvents(w http.ResponseWriter, r *http.Request) {
	room := f.roomFromRequest(r)
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("events: parsing form: %v", err)
	}
	if got := r.PostFormValue("fkey"); got != testFKey {
		f.t.Errorf("events: fkey = %q, want %q", got, testFKey)
	}
	if got := r.PostFormValue("mode"); got != "messages" {
		f.t.Errorf("events: mode = %q, want messages", got)
	}
	count, err := strconv.Atoi(r.PostFormValue("msgCount"))
	if err != nil {
		f.t.Errorf("events: bad msgCount %q", r.PostFormValue("msgCount"))
	}

	f.mu.Lock()
	f.msgCounts = append(f.msgCounts, count)
	all := f.messages[room]
	if count > len(all) {
		count = len(all)
	}
	window := append([]wireEvent(nil), all[len(all)-count:]...)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(eventsResponse{Events: window}); err != nil {
		f.t.Errorf("events: encoding response: %v", err)
	}
}

func (f *fakeChatService) handlePost(w http.ResponseWriter, r *http.Request) {
	room := f.roomFromRequest(r)
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("post: parsing form: %v", err)
	}
	if got := r.PostFormValue("fkey"); got != testFKey {
		f.t.Errorf("post: fkey = %q, want %q", got, testFKey)
	}

	f.mu.Lock()
	if f.rejectPosts > 0 {
		f.rejectPosts--
		f.mu.Unlock()
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, "You can perform this action again in 2 seconds")
		return
	}
	f.posted = append(f.posted, postedChunk{room: room, text: r.PostFormValue("text")})
	f.mu.Unlock()
}

// addMessage appends a message to the room's history.
func (f *fakeChatService) addMessage(room int, id int64, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[room] = append(f.messages[room], wireEvent{
		MessageID: id,
		RoomID:    room,
		UserID:    42,
		UserName:  "tester",
		Content:   content,
		TimeStamp: 1700000000 + id,
	})
}

func (f *fakeChatService) postedChunks() []postedChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postedChunk(nil), f.posted...)
}

func (f *fakeChatService) recordedCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.msgCounts...)
}

func (f *fakeChatService) roomLoadCount(room int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomLoads[room]
}
