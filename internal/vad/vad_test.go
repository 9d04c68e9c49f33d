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

package vad

import (
	"math"
	"testing"

	"github.com/micolabs/mico-voice/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toneChunk builds a 20ms 16kHz chunk carrying a sine at the given
// normalized amplitude.
func toneChunk(amplitude float64) *audio.Chunk {
	samples := make([]int16, 320)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return &audio.Chunk{Seq: 1, SampleRate: 16000, Samples: samples}
}

func silentChunk() *audio.Chunk {
	return &audio.Chunk{Seq: 1, SampleRate: 16000, Samples: make([]int16, 320)}
}

func TestNewRejectsInvalidAggressiveness(t *testing.T) {
	for _, level := range []int{-1, 4, 99} {
		_, err := New(level)
		assert.Error(t, err, "level %d", level)
	}
	for level := 0; level <= 3; level++ {
		d, err := New(level)
		require.NoError(t, err)
		assert.Equal(t, level, d.Aggressiveness())
	}
}

func TestClassifySpeechVsSilence(t *testing.T) {
	d, err := New(2)
	require.NoError(t, err)

	class, err := d.Classify(toneChunk(0.5))
	require.NoError(t, err)
	assert.Equal(t, Speech, class)

	class, err = d.Classify(silentChunk())
	require.NoError(t, err)
	assert.Equal(t, Silence, class)
}

func TestAggressivenessOrdering(t *testing.T) {
	// A quiet tone that level 0 accepts should be rejected by level 3.
	quiet := toneChunk(0.02)

	relaxed, err := New(0)
	require.NoError(t, err)
	strict, err := New(3)
	require.NoError(t, err)

	classRelaxed, err := relaxed.Classify(quiet)
	require.NoError(t, err)
	classStrict, err := strict.Classify(quiet)
	require.NoError(t, err)

	assert.Equal(t, Speech, classRelaxed)
	assert.Equal(t, Silence, classStrict)
}

func TestClassifyStateless(t *testing.T) {
	d, err := New(2)
	require.NoError(t, err)

	// The same chunk classifies identically regardless of what came
	// before it.
	loud := toneChunk(0.5)
	sequences := [][]*audio.Chunk{
		{loud},
		{silentChunk(), silentChunk(), loud},
		{toneChunk(0.9), loud},
	}

	for _, seq := range sequences {
		var last Class
		for _, c := range seq {
			last, err = d.Classify(c)
			require.NoError(t, err)
		}
		assert.Equal(t, Speech, last)
	}
}

func TestClassifyErrors(t *testing.T) {
	d, err := New(1)
	require.NoError(t, err)

	tests := []struct {
		name  string
		chunk *audio.Chunk
	}{
		{name: "nil chunk", chunk: nil},
		{name: "empty samples", chunk: &audio.Chunk{SampleRate: 16000}},
		{name: "invalid rate", chunk: &audio.Chunk{SampleRate: 0, Samples: make([]int16, 320)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, err := d.Classify(tt.chunk)
			assert.Error(t, err)
			// Degraded classification is always Silence.
			assert.Equal(t, Silence, class)
		})
	}
}

func TestClassifyShortChunk(t *testing.T) {
	d, err := New(2)
	require.NoError(t, err)

	// 5ms chunk, shorter than one 10ms sub-frame.
	short := &audio.Chunk{SampleRate: 16000, Samples: make([]int16, 80)}
	class, err := d.Classify(short)
	require.NoError(t, err)
	assert.Equal(t, Silence, class)
}

func TestClassStrings(t *testing.T) {
	assert.Equal(t, "speech", Speech.String())
	assert.Equal(t, "silence", Silence.String())
}
