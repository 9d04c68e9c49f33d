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

// Package wake scores incoming audio against a wake phrase model. The
// detector keeps a rolling envelope window (the model context); the
// session owns it and is the only mutator.
package wake

import (
	"fmt"
	"math"
	"time"

	"github.com/micolabs/mico-voice/internal/audio"
)

// Score is the per-chunk detection result.
type Score struct {
	Confidence float64 // in [0, 1]
	Triggered  bool    // confidence >= threshold and outside cooldown
	Timestamp  time.Time
}

// Detector matches the rolling audio envelope against a wake model.
type Detector struct {
	model     *Model
	threshold float64
	cooldown  time.Duration

	window   []float64 // rolling per-frame RMS envelope
	filled   int
	residual []int16 // partial frame carried to the next chunk

	lastTrigger time.Time
	now         func() time.Time
}

// NewDetector creates a detector without a model. Detect reports zero
// confidence until LoadModel succeeds.
func NewDetector(threshold float64, cooldown time.Duration) *Detector {
	return &Detector{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// LoadModel loads a wake model artifact. On failure the previously loaded
// model, if any, remains active.
func (d *Detector) LoadModel(path string) error {
	model, err := LoadModel(path)
	if err != nil {
		return err
	}
	d.model = model
	d.window = make([]float64, model.Frames())
	d.filled = 0
	d.residual = nil
	return nil
}

// ModelLoaded reports whether a wake model is active.
func (d *Detector) ModelLoaded() bool { return d.model != nil }

// Threshold returns the current trigger threshold.
func (d *Detector) Threshold() float64 { return d.threshold }

// SetThreshold updates the trigger threshold.
func (d *Detector) SetThreshold(v float64) { d.threshold = v }

// SetCooldown updates the post-trigger suppression window.
func (d *Detector) SetCooldown(v time.Duration) { d.cooldown = v }

// Detect feeds one chunk into the rolling window and scores it. A
// confidence exactly equal to the threshold counts as a trigger; triggers
// inside the cooldown window are suppressed.
func (d *Detector) Detect(chunk *audio.Chunk) (Score, error) {
	ts := d.now()

	if d.model == nil {
		return Score{Timestamp: ts}, fmt.Errorf("wake: no model loaded")
	}
	if chunk == nil || len(chunk.Samples) == 0 {
		return Score{Timestamp: ts}, fmt.Errorf("wake: empty chunk")
	}
	if chunk.SampleRate != d.model.SampleRate {
		return Score{Timestamp: ts}, fmt.Errorf("wake: chunk rate %d does not match model rate %d",
			chunk.SampleRate, d.model.SampleRate)
	}

	d.push(chunk.Samples)

	confidence := d.score()
	triggered := false
	if confidence >= d.threshold {
		if d.lastTrigger.IsZero() || ts.Sub(d.lastTrigger) >= d.cooldown {
			triggered = true
			d.lastTrigger = ts
		}
	}

	return Score{Confidence: confidence, Triggered: triggered, Timestamp: ts}, nil
}

// Reset clears the rolling window, discarding all model context. Called
// when a listening session ends.
func (d *Detector) Reset() {
	for i := range d.window {
		d.window[i] = 0
	}
	d.filled = 0
	d.residual = nil
}

// push slices samples into model frames, appending each frame's RMS to the
// rolling window. Leftover samples carry over to the next chunk.
func (d *Detector) push(samples []int16) {
	buf := samples
	if len(d.residual) > 0 {
		buf = append(d.residual, samples...)
	}

	frameLen := d.model.FrameLen
	i := 0
	for ; i+frameLen <= len(buf); i += frameLen {
		d.appendFrame(audio.RMS(buf[i : i+frameLen]))
	}

	if i < len(buf) {
		d.residual = append([]int16(nil), buf[i:]...)
	} else {
		d.residual = nil
	}
}

func (d *Detector) appendFrame(rms float64) {
	if d.filled < len(d.window) {
		d.window[d.filled] = rms
		d.filled++
		return
	}
	copy(d.window, d.window[1:])
	d.window[len(d.window)-1] = rms
}

// score computes the normalized cross-correlation between the window
// envelope and the model template, clamped to [0, 1].
func (d *Detector) score() float64 {
	if d.filled < len(d.window) {
		return 0
	}

	var meanW, meanT float64
	for i, w := range d.window {
		meanW += w
		meanT += float64(d.model.Template[i])
	}
	n := float64(len(d.window))
	meanW /= n
	meanT /= n

	var dot, normW, normT float64
	for i, w := range d.window {
		dw := w - meanW
		dt := float64(d.model.Template[i]) - meanT
		dot += dw * dt
		normW += dw * dw
		normT += dt * dt
	}

	const eps = 1e-9
	if normW < eps || normT < eps {
		return 0
	}

	ncc := dot / math.Sqrt(normW*normT)
	if ncc < 0 {
		return 0
	}
	if ncc > 1 {
		return 1
	}
	return ncc
}
