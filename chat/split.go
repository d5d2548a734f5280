// Copyright 2026 The Stackchat Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "strings"

// SplitStrategy breaks a single-line message that exceeds the
// service's length limit into multiple postable chunks. Split must
// return an ordered, finite, non-empty sequence; the dispatcher sends
// the chunks contiguously in order. The strategy is only consulted
// for single-line text — messages containing a line break always go
// out whole.
type SplitStrategy interface {
	Split(text string, max int) []string
}

// ellipsis marks a chunk that continues in the next post.
const ellipsis = "..."

var (
	// SplitNone posts the text as a single chunk regardless of
	// length, leaving any over-length rejection to the service.
	SplitNone SplitStrategy = splitNone{}

	// SplitWord breaks over-length text at word boundaries, marking
	// continuation with a trailing ellipsis. Words longer than a
	// whole chunk are cut mid-word.
	SplitWord SplitStrategy = splitWord{}
)

type splitNone struct{}

func (splitNone) Split(text string, _ int) []string {
	return []string{text}
}

type splitWord struct{}

func (splitWord) Split(text string, max int) []string {
	runes := []rune(text)
	if len(runes) <= max {
		return []string{text}
	}

	// Reserve room for the continuation marker on every non-final
	// chunk. Degenerate limits fall back to hard cuts.
	limit := max - len(ellipsis)
	if limit < 1 {
		return hardCut(runes, max)
	}

	var chunks []string
	for len(runes) > max {
		cut := lastSpaceWithin(runes, limit)
		if cut <= 0 {
			cut = limit
		}
		chunk := strings.TrimRight(string(runes[:cut]), " ")
		chunks = append(chunks, chunk+ellipsis)

		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// lastSpaceWithin returns the index of the last space at or before
// limit, or -1 if there is none.
func lastSpaceWithin(runes []rune, limit int) int {
	for i := limit; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// hardCut splits into fixed-size chunks with no boundary awareness.
func hardCut(runes []rune, max int) []string {
	var chunks []string
	for len(runes) > max {
		chunks = append(chunks, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
