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

//go:build vosk

package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/micolabs/mico-voice/internal/audio"
)

// voskSampleRate is the rate the bundled Kaldi models expect.
const voskSampleRate = 16000

// VoskEngine is the streaming Kaldi-based backend. Fast enough for
// real-time decoding on Pi-class hardware.
type VoskEngine struct {
	mu        sync.Mutex
	model     *vosk.VoskModel
	modelPath string
}

// NewVoskEngine creates an unloaded Vosk engine.
func NewVoskEngine() *VoskEngine {
	vosk.SetLogLevel(-1) // suppress Kaldi chatter
	return &VoskEngine{}
}

func (e *VoskEngine) Name() string { return EngineVosk }

func (e *VoskEngine) SupportsStreaming() bool { return true }

// Load loads a Vosk model directory. The previous model stays active if
// loading fails.
func (e *VoskEngine) Load(modelPath string) error {
	if _, err := os.Stat(modelPath); err != nil {
		return &ModelLoadError{Engine: EngineVosk, Path: modelPath, Err: err}
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return &ModelLoadError{Engine: EngineVosk, Path: modelPath, Err: err}
	}

	e.mu.Lock()
	old := e.model
	e.model = model
	e.modelPath = modelPath
	e.mu.Unlock()

	if old != nil {
		old.Free()
	}
	return nil
}

func (e *VoskEngine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model != nil
}

// TranscribeBatch decodes a full utterance in one pass.
func (e *VoskEngine) TranscribeBatch(ctx context.Context, utt *audio.Utterance) (*Result, error) {
	e.mu.Lock()
	model := e.model
	e.mu.Unlock()

	if model == nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: fmt.Errorf("model not loaded")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: err}
	}

	start := time.Now()

	rec, err := vosk.NewRecognizer(model, float64(voskSampleRate))
	if err != nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: err}
	}
	defer rec.Free()

	samples := prepareAudio(utt, voskSampleRate)
	rec.AcceptWaveform(pcmBytes(samples))

	var final struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(rec.FinalResult()), &final); err != nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: fmt.Errorf("parsing result: %w", err)}
	}

	return &Result{
		Text:           final.Text,
		Confidence:     1.0, // Vosk reports no utterance-level confidence
		Engine:         EngineVosk,
		ProcessingTime: time.Since(start),
	}, nil
}

// OpenStream starts an incremental decode session.
func (e *VoskEngine) OpenStream(ctx context.Context) (Stream, error) {
	e.mu.Lock()
	model := e.model
	e.mu.Unlock()

	if model == nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: fmt.Errorf("model not loaded")}
	}

	rec, err := vosk.NewRecognizer(model, float64(voskSampleRate))
	if err != nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: err}
	}

	return &voskStream{ctx: ctx, rec: rec, start: time.Now()}, nil
}

func (e *VoskEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

type voskStream struct {
	ctx     context.Context
	rec     *vosk.VoskRecognizer
	start   time.Time
	partial string
	closed  bool
}

func (s *voskStream) Feed(chunk *audio.Chunk) error {
	if s.closed {
		return &TranscriptionError{Engine: EngineVosk, Err: fmt.Errorf("stream closed")}
	}
	if err := s.ctx.Err(); err != nil {
		return &TranscriptionError{Engine: EngineVosk, Err: err}
	}

	samples := audio.Int16ToFloat32(chunk.Samples)
	if chunk.SampleRate != voskSampleRate {
		samples = audio.Resample(samples, chunk.SampleRate, voskSampleRate)
	}
	s.rec.AcceptWaveform(pcmBytes(samples))

	var p struct {
		Partial string `json:"partial"`
	}
	if err := json.Unmarshal([]byte(s.rec.PartialResult()), &p); err == nil && p.Partial != "" {
		s.partial = p.Partial
	}
	return nil
}

func (s *voskStream) Partial() (string, bool) {
	return s.partial, s.partial != ""
}

func (s *voskStream) Finalize() (*Result, error) {
	if s.closed {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: fmt.Errorf("stream closed")}
	}
	defer s.Close()

	var final struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(s.rec.FinalResult()), &final); err != nil {
		return nil, &TranscriptionError{Engine: EngineVosk, Err: fmt.Errorf("parsing result: %w", err)}
	}

	return &Result{
		Text:           final.Text,
		Confidence:     1.0,
		Engine:         EngineVosk,
		ProcessingTime: time.Since(s.start),
	}, nil
}

func (s *voskStream) Close() error {
	if !s.closed {
		s.rec.Free()
		s.closed = true
	}
	return nil
}

// pcmBytes converts normalized samples to little-endian PCM16 bytes for
// the Kaldi recognizer.
func pcmBytes(samples []float32) []byte {
	pcm := audio.Float32ToInt16(samples)
	buf := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(s >> 8)
	}
	return buf
}
