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

// Package audio holds the capture-side primitives of the voice pipeline:
// fixed-duration PCM chunks, the microphone source contract, the pre-roll
// ring and the capped utterance buffer.
package audio

import "time"

// Chunk is a fixed-duration block of mono PCM16 samples. Chunks are
// immutable once produced; the pipeline shares them by pointer.
type Chunk struct {
	Seq        uint64
	SampleRate int
	Samples    []int16
	Timestamp  time.Time
}

// Duration returns the play time of the chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
