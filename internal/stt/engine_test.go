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

package stt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/micolabs/mico-voice/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsEngine(t *testing.T) {
	tests := []struct {
		name      string
		engine    string
		wantErr   bool
		streaming bool
	}{
		{name: "vosk", engine: EngineVosk, streaming: true},
		{name: "whisper", engine: EngineWhisper, streaming: false},
		{name: "unknown", engine: "deepgram", wantErr: true},
		{name: "empty", engine: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := New(tt.engine)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.engine, engine.Name())
			assert.Equal(t, tt.streaming, engine.SupportsStreaming())
			assert.False(t, engine.Loaded())
		})
	}
}

func TestErrorTypes(t *testing.T) {
	inner := errors.New("no such file")

	loadErr := &ModelLoadError{Engine: EngineVosk, Path: "/models/x", Err: inner}
	assert.Contains(t, loadErr.Error(), "vosk")
	assert.Contains(t, loadErr.Error(), "/models/x")
	assert.ErrorIs(t, loadErr, inner)

	txErr := &TranscriptionError{Engine: EngineWhisper, Err: inner}
	assert.Contains(t, txErr.Error(), "whisper")
	assert.ErrorIs(t, txErr, inner)

	var asLoad *ModelLoadError
	assert.True(t, errors.As(error(loadErr), &asLoad))
}

// The stub engines (untagged builds) must refuse work with typed errors
// rather than panicking or silently returning empty text.
func TestStubEnginesFailLoudly(t *testing.T) {
	for _, name := range []string{EngineVosk, EngineWhisper} {
		t.Run(name, func(t *testing.T) {
			engine, err := New(name)
			require.NoError(t, err)

			err = engine.Load("/models/anything")
			var loadErr *ModelLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, name, loadErr.Engine)
			assert.False(t, engine.Loaded())

			utt := audio.NewUtterance(time.Second)
			_, err = engine.TranscribeBatch(context.Background(), utt)
			var txErr *TranscriptionError
			require.ErrorAs(t, err, &txErr)
			assert.Equal(t, name, txErr.Engine)

			assert.NoError(t, engine.Close())
		})
	}
}

func TestPrepareAudio(t *testing.T) {
	utt := audio.NewUtterance(time.Second)
	samples := make([]int16, 160) // 20ms at 8kHz
	for i := range samples {
		samples[i] = 16384
	}
	require.NoError(t, utt.Append(&audio.Chunk{Seq: 1, SampleRate: 8000, Samples: samples}))

	out := prepareAudio(utt, 16000)
	// Resampled 8k -> 16k roughly doubles the sample count.
	assert.InDelta(t, 320, len(out), 2)
	for _, s := range out {
		assert.InDelta(t, 0.5, float64(s), 1e-3)
	}

	// Empty utterance yields empty audio, not a panic.
	empty := audio.NewUtterance(time.Second)
	assert.Empty(t, prepareAudio(empty, 16000))
}
