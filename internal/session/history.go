/*
 * This file is part of Mico (https://github.com/micolabs/mico).
 * Copyright (C) 2025 Mico Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package session

import (
	"sync"

	"github.com/micolabs/mico-voice/internal/events"
)

// History is the bounded transcript ring: single writer (the session),
// many readers (status polling). Oldest entries are evicted FIFO once
// capacity is reached; reads return snapshots and never block the writer
// for long.
type History struct {
	mu      sync.RWMutex
	entries []*events.Transcript
	head    int
	count   int
}

// NewHistory creates a ring holding up to capacity transcripts.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]*events.Transcript, capacity)}
}

// Push appends a transcript, evicting the oldest when full.
func (h *History) Push(tr *events.Transcript) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[(h.head+h.count)%len(h.entries)] = tr
	if h.count < len(h.entries) {
		h.count++
	} else {
		h.head = (h.head + 1) % len(h.entries)
	}
}

// Snapshot returns up to limit transcripts, most recent first. limit <= 0
// returns everything. The returned slice is a copy; entries themselves
// are immutable.
func (h *History) Snapshot(limit int) []*events.Transcript {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*events.Transcript, 0, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the newest entry.
		idx := (h.head + h.count - 1 - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Clear drops all transcripts.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		h.entries[i] = nil
	}
	h.head = 0
	h.count = 0
}

// Len returns the number of stored transcripts.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
