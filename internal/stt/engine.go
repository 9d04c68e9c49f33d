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

// Package stt abstracts the speech-to-text backends. Two engines are
// provided: Vosk (streaming, incremental partials) and Whisper
// (batch-only). Real inference sits behind build tags, mirroring how the
// model libraries link via cgo; untagged builds get stubs that fail
// loudly at Load time.
package stt

import (
	"context"
	"fmt"
	"time"

	"github.com/micolabs/mico-voice/internal/audio"
)

// Engine names accepted by New.
const (
	EngineVosk    = "vosk"
	EngineWhisper = "whisper"
)

// Result is the raw output of one inference run. The session wraps it
// into a transcript record with identity, wake word and timestamps.
type Result struct {
	Text           string
	Confidence     float64
	Engine         string
	ProcessingTime time.Duration
}

// ModelLoadError reports a missing or corrupt model artifact. Recoverable
// by reconfiguring with a valid path; the engine's previously loaded
// model, if any, stays usable.
type ModelLoadError struct {
	Engine string
	Path   string
	Err    error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("%s: loading model %q: %v", e.Engine, e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// TranscriptionError reports an inference failure. Captured inside the
// transcript record; never fatal to the session.
type TranscriptionError struct {
	Engine string
	Err    error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("%s: transcription failed: %v", e.Engine, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Engine is a pluggable speech-to-text backend.
type Engine interface {
	// Name returns the engine identifier ("vosk", "whisper").
	Name() string

	// Load loads the model artifact at the given path. On failure the
	// engine state is unchanged: a previously loaded model remains
	// usable. Returns *ModelLoadError.
	Load(modelPath string) error

	// Loaded reports whether a model is ready for inference.
	Loaded() bool

	// SupportsStreaming reports whether OpenStream is available.
	SupportsStreaming() bool

	// TranscribeBatch runs full-utterance inference. The utterance audio
	// is normalized and resampled to the engine's expected rate before
	// inference. Failures return *TranscriptionError; the call never
	// panics.
	TranscribeBatch(ctx context.Context, utt *audio.Utterance) (*Result, error)

	// Close releases model resources.
	Close() error
}

// StreamingEngine is implemented by engines with incremental decoding.
type StreamingEngine interface {
	Engine

	// OpenStream starts an incremental decode session.
	OpenStream(ctx context.Context) (Stream, error)
}

// Stream is one incremental decode session. Feed chunks as they arrive,
// then Finalize exactly once; the partial sequence is finite and ends
// with Finalize.
type Stream interface {
	// Feed pushes one chunk into the decoder.
	Feed(chunk *audio.Chunk) error

	// Partial returns the latest interim hypothesis, if any.
	Partial() (string, bool)

	// Finalize flushes the decoder and returns the final result.
	Finalize() (*Result, error)

	// Close releases the decode session without finalizing.
	Close() error
}

// New constructs the engine selected by name. The model is not loaded
// yet; call Load.
func New(name string) (Engine, error) {
	switch name {
	case EngineVosk:
		return NewVoskEngine(), nil
	case EngineWhisper:
		return NewWhisperEngine(), nil
	default:
		return nil, fmt.Errorf("stt: unknown engine %q", name)
	}
}

// prepareAudio normalizes utterance PCM to float32 [-1, 1] at the target
// sample rate.
func prepareAudio(utt *audio.Utterance, targetRate int) []float32 {
	samples := audio.Int16ToFloat32(utt.Samples())
	if rate := utt.SampleRate(); rate > 0 && rate != targetRate {
		samples = audio.Resample(samples, rate, targetRate)
	}
	return samples
}
