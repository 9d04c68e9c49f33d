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

//go:build !vosk

package stt

import (
	"context"
	"fmt"

	"github.com/micolabs/mico-voice/internal/audio"
)

// VoskEngine stub implementation when the Vosk binding is disabled
type VoskEngine struct {
	modelPath string
}

// NewVoskEngine creates a stub engine when the Vosk binding is disabled
func NewVoskEngine() *VoskEngine {
	return &VoskEngine{}
}

func (e *VoskEngine) Name() string { return EngineVosk }

func (e *VoskEngine) SupportsStreaming() bool { return true }

// Load stub implementation always fails
func (e *VoskEngine) Load(modelPath string) error {
	return &ModelLoadError{
		Engine: EngineVosk,
		Path:   modelPath,
		Err:    fmt.Errorf("vosk disabled (build with -tags vosk to enable)"),
	}
}

func (e *VoskEngine) Loaded() bool { return false }

// TranscribeBatch stub implementation returns an error
func (e *VoskEngine) TranscribeBatch(ctx context.Context, utt *audio.Utterance) (*Result, error) {
	return nil, &TranscriptionError{
		Engine: EngineVosk,
		Err:    fmt.Errorf("vosk disabled (build with -tags vosk to enable)"),
	}
}

// OpenStream stub implementation returns an error
func (e *VoskEngine) OpenStream(ctx context.Context) (Stream, error) {
	return nil, &TranscriptionError{
		Engine: EngineVosk,
		Err:    fmt.Errorf("vosk disabled (build with -tags vosk to enable)"),
	}
}

// Close stub implementation
func (e *VoskEngine) Close() error {
	// Nothing to clean up in stub
	return nil
}
