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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micolabs/mico-voice/internal/events"
)

func transcript(text string) *events.Transcript {
	tr := events.NewTranscript("vosk", "hey_mico", time.Second)
	tr.SetResult(text, 0.9, time.Millisecond)
	return tr
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(3)

	// Fill to capacity, then one more: the very first entry goes.
	for i := 1; i <= 4; i++ {
		h.Push(transcript(fmt.Sprintf("result %d", i)))
	}

	assert.Equal(t, 3, h.Len())

	got := h.Snapshot(0)
	require.Len(t, got, 3)
	assert.Equal(t, "result 4", got[0].Text)
	assert.Equal(t, "result 3", got[1].Text)
	assert.Equal(t, "result 2", got[2].Text)
	for _, tr := range got {
		assert.NotEqual(t, "result 1", tr.Text)
	}
}

func TestHistorySnapshotLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 1; i <= 5; i++ {
		h.Push(transcript(fmt.Sprintf("result %d", i)))
	}

	got := h.Snapshot(2)
	require.Len(t, got, 2)
	assert.Equal(t, "result 5", got[0].Text)
	assert.Equal(t, "result 4", got[1].Text)

	// A limit past the stored count returns everything.
	assert.Len(t, h.Snapshot(100), 5)
	assert.Len(t, h.Snapshot(-1), 5)
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(3)
	h.Push(transcript("one"))
	h.Push(transcript("two"))

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Snapshot(0))

	// Usable again after clearing.
	h.Push(transcript("three"))
	got := h.Snapshot(0)
	require.Len(t, got, 1)
	assert.Equal(t, "three", got[0].Text)
}

func TestHistoryMinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	h.Push(transcript("only"))
	h.Push(transcript("newer"))

	got := h.Snapshot(0)
	require.Len(t, got, 1)
	assert.Equal(t, "newer", got[0].Text)
}
