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

//go:build whisper

package stt

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/micolabs/mico-voice/internal/audio"
)

// whisperSampleRate is the rate whisper.cpp expects.
const whisperSampleRate = 16000

// WhisperEngine is the batch-only whisper.cpp backend. Higher accuracy
// than Vosk at the cost of latency; inference runs once per finalized
// utterance.
type WhisperEngine struct {
	mu        sync.Mutex
	model     whisper.Model
	modelPath string
}

// NewWhisperEngine creates an unloaded Whisper engine.
func NewWhisperEngine() *WhisperEngine {
	return &WhisperEngine{}
}

func (e *WhisperEngine) Name() string { return EngineWhisper }

func (e *WhisperEngine) SupportsStreaming() bool { return false }

// Load loads a ggml model file. The previous model stays active if
// loading fails.
func (e *WhisperEngine) Load(modelPath string) error {
	if _, err := os.Stat(modelPath); err != nil {
		return &ModelLoadError{Engine: EngineWhisper, Path: modelPath, Err: err}
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return &ModelLoadError{Engine: EngineWhisper, Path: modelPath, Err: err}
	}

	e.mu.Lock()
	old := e.model
	e.model = model
	e.modelPath = modelPath
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

func (e *WhisperEngine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model != nil
}

// TranscribeBatch runs full-utterance Whisper inference.
func (e *WhisperEngine) TranscribeBatch(ctx context.Context, utt *audio.Utterance) (*Result, error) {
	e.mu.Lock()
	model := e.model
	e.mu.Unlock()

	if model == nil {
		return nil, &TranscriptionError{Engine: EngineWhisper, Err: fmt.Errorf("model not loaded")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TranscriptionError{Engine: EngineWhisper, Err: err}
	}

	start := time.Now()

	wctx, err := model.NewContext()
	if err != nil {
		return nil, &TranscriptionError{Engine: EngineWhisper, Err: fmt.Errorf("creating context: %w", err)}
	}

	samples := prepareAudio(utt, whisperSampleRate)
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, &TranscriptionError{Engine: EngineWhisper, Err: fmt.Errorf("processing audio: %w", err)}
	}

	var transcript strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		transcript.WriteString(segment.Text)
	}

	return &Result{
		Text:           strings.TrimSpace(transcript.String()),
		Confidence:     0, // whisper.cpp exposes no utterance-level confidence
		Engine:         EngineWhisper,
		ProcessingTime: time.Since(start),
	}, nil
}

func (e *WhisperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}
