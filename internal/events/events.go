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

// Package events defines the records the voice pipeline emits: wake
// detections and finalized transcripts.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WakeEvent is emitted when the wake word detector triggers.
type WakeEvent struct {
	UUID       string    `json:"uuid"`
	WakeWord   string    `json:"wake_word"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewWakeEvent creates a wake event with a generated UUID.
func NewWakeEvent(wakeWord string, confidence float64) *WakeEvent {
	return &WakeEvent{
		UUID:       uuid.NewString(),
		WakeWord:   wakeWord,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}
}

// Transcript is one finalized transcription: the outcome of exactly one
// utterance, successful or not. Immutable once the session publishes it.
type Transcript struct {
	UUID          string    `json:"uuid"`
	Text          string    `json:"text"`
	Confidence    float64   `json:"confidence"`
	WakeWord      string    `json:"wake_word,omitempty"`
	Engine        string    `json:"engine"`
	Timestamp     time.Time `json:"timestamp"`
	AudioDuration float64   `json:"audio_duration"` // seconds
	ProcessingMs  int64     `json:"processing_ms"`
	Success       bool      `json:"success"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// NewTranscript creates a transcript shell for an utterance about to be
// processed. The engine fills in text or error via SetResult/SetError.
func NewTranscript(engine, wakeWord string, audioDuration time.Duration) *Transcript {
	return &Transcript{
		UUID:          uuid.NewString(),
		WakeWord:      wakeWord,
		Engine:        engine,
		Timestamp:     time.Now(),
		AudioDuration: audioDuration.Seconds(),
		Success:       true,
	}
}

// SetResult records a successful transcription.
func (tr *Transcript) SetResult(text string, confidence float64, processing time.Duration) {
	tr.Text = text
	tr.Confidence = confidence
	tr.ProcessingMs = processing.Milliseconds()
	tr.Success = true
	tr.ErrorMessage = ""
}

// SetError marks the transcript as failed. The record still enters the
// history so callers can observe the failure.
func (tr *Transcript) SetError(err error) {
	tr.Success = false
	tr.ErrorMessage = err.Error()
}

// IsValid checks the invariants a transcript must satisfy before it is
// persisted or published.
func (tr *Transcript) IsValid() error {
	if tr.UUID == "" {
		return fmt.Errorf("transcript missing UUID")
	}
	if tr.Engine == "" {
		return fmt.Errorf("transcript missing engine name")
	}
	if tr.Timestamp.IsZero() {
		return fmt.Errorf("transcript missing timestamp")
	}
	if !tr.Success && tr.ErrorMessage == "" {
		return fmt.Errorf("failed transcript missing error message")
	}
	return nil
}
