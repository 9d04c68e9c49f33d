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

package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscriptDefaults(t *testing.T) {
	tr := NewTranscript("vosk", "hey_mico", 1500*time.Millisecond)

	assert.NotEmpty(t, tr.UUID)
	assert.Equal(t, "vosk", tr.Engine)
	assert.Equal(t, "hey_mico", tr.WakeWord)
	assert.InDelta(t, 1.5, tr.AudioDuration, 1e-9)
	assert.False(t, tr.Timestamp.IsZero())
	require.NoError(t, tr.IsValid())
}

func TestTranscriptResultAndError(t *testing.T) {
	tr := NewTranscript("whisper", "", time.Second)

	tr.SetResult("what time is it", 0.8, 120*time.Millisecond)
	assert.True(t, tr.Success)
	assert.Equal(t, "what time is it", tr.Text)
	assert.EqualValues(t, 120, tr.ProcessingMs)
	require.NoError(t, tr.IsValid())

	tr.SetError(errors.New("decoder failed"))
	assert.False(t, tr.Success)
	assert.Equal(t, "decoder failed", tr.ErrorMessage)
	require.NoError(t, tr.IsValid())
}

func TestTranscriptValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transcript)
	}{
		{"missing uuid", func(tr *Transcript) { tr.UUID = "" }},
		{"missing engine", func(tr *Transcript) { tr.Engine = "" }},
		{"zero timestamp", func(tr *Transcript) { tr.Timestamp = time.Time{} }},
		{"failure without message", func(tr *Transcript) { tr.Success = false; tr.ErrorMessage = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranscript("vosk", "hey_mico", time.Second)
			tt.mutate(tr)
			assert.Error(t, tr.IsValid())
		})
	}
}

func TestNewWakeEvent(t *testing.T) {
	ev := NewWakeEvent("hey_mico", 0.93)
	assert.NotEmpty(t, ev.UUID)
	assert.Equal(t, "hey_mico", ev.WakeWord)
	assert.InDelta(t, 0.93, ev.Confidence, 1e-9)
	assert.False(t, ev.Timestamp.IsZero())

	// UUIDs are unique per event.
	assert.NotEqual(t, ev.UUID, NewWakeEvent("hey_mico", 0.93).UUID)
}
