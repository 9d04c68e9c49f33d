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

//go:build !whisper

package stt

import (
	"context"
	"fmt"

	"github.com/micolabs/mico-voice/internal/audio"
)

// WhisperEngine stub implementation when whisper is disabled
type WhisperEngine struct {
	modelPath string
}

// NewWhisperEngine creates a stub engine when whisper is disabled
func NewWhisperEngine() *WhisperEngine {
	return &WhisperEngine{}
}

func (e *WhisperEngine) Name() string { return EngineWhisper }

func (e *WhisperEngine) SupportsStreaming() bool { return false }

// Load stub implementation always fails
func (e *WhisperEngine) Load(modelPath string) error {
	return &ModelLoadError{
		Engine: EngineWhisper,
		Path:   modelPath,
		Err:    fmt.Errorf("whisper disabled (build with -tags whisper to enable)"),
	}
}

func (e *WhisperEngine) Loaded() bool { return false }

// TranscribeBatch stub implementation returns an error
func (e *WhisperEngine) TranscribeBatch(ctx context.Context, utt *audio.Utterance) (*Result, error) {
	return nil, &TranscriptionError{
		Engine: EngineWhisper,
		Err:    fmt.Errorf("whisper disabled (build with -tags whisper to enable)"),
	}
}

// Close stub implementation
func (e *WhisperEngine) Close() error {
	// Nothing to clean up in stub
	return nil
}
