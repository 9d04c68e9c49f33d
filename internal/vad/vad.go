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

// Package vad classifies audio chunks as speech or silence using frame
// energy. The detector is stateless across calls: classification of one
// chunk never depends on earlier chunks, so it can be swapped or
// reconfigured without resetting the rest of the pipeline.
package vad

import (
	"fmt"
	"time"

	"github.com/micolabs/mico-voice/internal/audio"
)

// Class is the per-chunk classification result.
type Class int

const (
	Silence Class = iota
	Speech
)

func (c Class) String() string {
	if c == Speech {
		return "speech"
	}
	return "silence"
}

// frameDuration is the sub-frame size for the majority vote. A chunk is
// speech when more than half of its 10ms sub-frames carry energy above the
// aggressiveness threshold.
const frameDuration = 10 * time.Millisecond

// rmsThresholds maps aggressiveness 0-3 to normalized RMS levels. Higher
// aggressiveness rejects more borderline audio as silence (fewer false
// positives, more false negatives).
var rmsThresholds = [4]float64{0.005, 0.010, 0.020, 0.040}

// Detector is an energy-based voice activity detector.
type Detector struct {
	threshold float64
	level     int
}

// New creates a detector with the given aggressiveness (0-3).
func New(aggressiveness int) (*Detector, error) {
	if aggressiveness < 0 || aggressiveness >= len(rmsThresholds) {
		return nil, fmt.Errorf("vad: aggressiveness must be 0-3, got %d", aggressiveness)
	}
	return &Detector{
		threshold: rmsThresholds[aggressiveness],
		level:     aggressiveness,
	}, nil
}

// Aggressiveness returns the configured level.
func (d *Detector) Aggressiveness() int { return d.level }

// Classify labels a chunk as Speech or Silence. An error marks the chunk
// as unclassifiable; callers degrade to Silence and keep the pipeline
// alive.
func (d *Detector) Classify(chunk *audio.Chunk) (Class, error) {
	if chunk == nil || len(chunk.Samples) == 0 {
		return Silence, fmt.Errorf("vad: empty chunk")
	}
	if chunk.SampleRate <= 0 {
		return Silence, fmt.Errorf("vad: invalid sample rate %d", chunk.SampleRate)
	}

	frameLen := int(time.Duration(chunk.SampleRate) * frameDuration / time.Second)
	if frameLen <= 0 || frameLen > len(chunk.Samples) {
		// Chunk shorter than one sub-frame: classify it whole.
		if audio.RMS(chunk.Samples) > d.threshold {
			return Speech, nil
		}
		return Silence, nil
	}

	speechFrames := 0
	totalFrames := 0
	for i := 0; i+frameLen <= len(chunk.Samples); i += frameLen {
		if audio.RMS(chunk.Samples[i:i+frameLen]) > d.threshold {
			speechFrames++
		}
		totalFrames++
	}

	if speechFrames*2 > totalFrames {
		return Speech, nil
	}
	return Silence, nil
}
