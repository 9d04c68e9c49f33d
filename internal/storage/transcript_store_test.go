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

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micolabs/mico-voice/internal/events"
)

func testStore(t *testing.T) *TranscriptStore {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewTranscriptStore(db)
}

func makeTranscript(text string, ts time.Time) *events.Transcript {
	tr := events.NewTranscript("vosk", "hey_mico", 2*time.Second)
	tr.SetResult(text, 0.85, 40*time.Millisecond)
	tr.Timestamp = ts
	return tr
}

func TestInsertAndGetTranscript(t *testing.T) {
	store := testStore(t)

	tr := makeTranscript("turn on the lights", time.Now().UTC())
	require.NoError(t, store.Insert(tr))

	got, err := store.GetByUUID(tr.UUID)
	require.NoError(t, err)
	assert.Equal(t, tr.UUID, got.UUID)
	assert.Equal(t, "turn on the lights", got.Text)
	assert.Equal(t, "hey_mico", got.WakeWord)
	assert.Equal(t, "vosk", got.Engine)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.InDelta(t, 2.0, got.AudioDuration, 1e-9)
	assert.True(t, got.Success)
}

func TestInsertRejectsInvalidTranscript(t *testing.T) {
	store := testStore(t)

	err := store.Insert(&events.Transcript{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transcript")

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInsertRejectsDuplicateUUID(t *testing.T) {
	store := testStore(t)

	tr := makeTranscript("once", time.Now().UTC())
	require.NoError(t, store.Insert(tr))
	assert.Error(t, store.Insert(tr))
}

func TestFailedTranscriptRoundTrip(t *testing.T) {
	store := testStore(t)

	tr := events.NewTranscript("whisper", "", time.Second)
	tr.SetError(assert.AnError)
	require.NoError(t, store.Insert(tr))

	got, err := store.GetByUUID(tr.UUID)
	require.NoError(t, err)
	assert.False(t, got.Success)
	assert.NotEmpty(t, got.ErrorMessage)
	assert.Empty(t, got.WakeWord)
}

func TestListRecentOrdering(t *testing.T) {
	store := testStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		tr := makeTranscript(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Insert(tr))
	}

	got, err := store.ListRecent(3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "e", got[0].Text)
	assert.Equal(t, "d", got[1].Text)
	assert.Equal(t, "c", got[2].Text)
}

func TestGetByUUIDNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.GetByUUID("no-such-uuid")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDeleteOlderThan(t *testing.T) {
	store := testStore(t)

	now := time.Now().UTC()
	require.NoError(t, store.Insert(makeTranscript("old", now.Add(-48*time.Hour))))
	require.NoError(t, store.Insert(makeTranscript("fresh", now)))

	removed, err := store.DeleteOlderThan(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	count, err := store.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := store.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}
