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

package audio

import (
	"errors"
	"time"
)

// ErrUtteranceFull is returned by Append once the hard duration cap is
// reached. The caller finalizes the utterance at that point.
var ErrUtteranceFull = errors.New("utterance: max duration reached")

// Utterance accumulates the chunks of one speech segment, from wake
// detection (plus pre-roll) through end of speech. The invariant
// duration <= maxDuration holds at all times: Append refuses chunks that
// would exceed the cap. Exactly one Utterance is live at a time; the
// session owns it.
type Utterance struct {
	chunks          []*Chunk
	startedAt       time.Time
	duration        time.Duration
	maxDuration     time.Duration
	trailingSilence time.Duration
}

// NewUtterance creates an empty utterance with the given hard cap.
func NewUtterance(maxDuration time.Duration) *Utterance {
	return &Utterance{
		startedAt:   time.Now(),
		maxDuration: maxDuration,
	}
}

// Append adds a chunk. It returns ErrUtteranceFull if the chunk would push
// the utterance past its cap; the chunk is not added in that case.
func (u *Utterance) Append(c *Chunk) error {
	d := c.Duration()
	if u.duration+d > u.maxDuration {
		return ErrUtteranceFull
	}
	u.chunks = append(u.chunks, c)
	u.duration += d
	return nil
}

// Duration returns the accumulated audio duration.
func (u *Utterance) Duration() time.Duration { return u.duration }

// Full reports whether another chunk of the given duration would exceed
// the cap.
func (u *Utterance) Full(next time.Duration) bool {
	return u.duration+next > u.maxDuration
}

// Len returns the number of buffered chunks.
func (u *Utterance) Len() int { return len(u.chunks) }

// StartedAt returns the utterance creation time.
func (u *Utterance) StartedAt() time.Time { return u.startedAt }

// AddSilence accumulates trailing silence observed by the VAD.
func (u *Utterance) AddSilence(d time.Duration) { u.trailingSilence += d }

// ResetSilence clears the trailing-silence counter after a speech chunk.
func (u *Utterance) ResetSilence() { u.trailingSilence = 0 }

// TrailingSilence returns the accumulated consecutive silence.
func (u *Utterance) TrailingSilence() time.Duration { return u.trailingSilence }

// Samples concatenates all buffered chunks into a single PCM16 slice.
func (u *Utterance) Samples() []int16 {
	var n int
	for _, c := range u.chunks {
		n += len(c.Samples)
	}
	out := make([]int16, 0, n)
	for _, c := range u.chunks {
		out = append(out, c.Samples...)
	}
	return out
}

// Chunks returns the buffered chunks oldest-first. The returned slice is
// shared; callers must not mutate it.
func (u *Utterance) Chunks() []*Chunk { return u.chunks }

// SampleRate returns the sample rate of the buffered audio, or 0 when
// empty.
func (u *Utterance) SampleRate() int {
	if len(u.chunks) == 0 {
		return 0
	}
	return u.chunks[0].SampleRate
}
