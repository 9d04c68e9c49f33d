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

// PreRoll is a fixed-capacity ring of the most recent chunks, retained
// while idle so speech onset is not clipped when the wake word triggers.
// Not safe for concurrent use; the session owns it on the tick goroutine.
type PreRoll struct {
	chunks []*Chunk
	head   int
	count  int
}

// NewPreRoll creates a pre-roll ring holding up to capacity chunks.
func NewPreRoll(capacity int) *PreRoll {
	if capacity < 1 {
		capacity = 1
	}
	return &PreRoll{chunks: make([]*Chunk, capacity)}
}

// Push appends a chunk, evicting the oldest when full.
func (p *PreRoll) Push(c *Chunk) {
	p.chunks[(p.head+p.count)%len(p.chunks)] = c
	if p.count < len(p.chunks) {
		p.count++
	} else {
		p.head = (p.head + 1) % len(p.chunks)
	}
}

// Drain returns the buffered chunks oldest-first and clears the ring.
func (p *PreRoll) Drain() []*Chunk {
	out := make([]*Chunk, 0, p.count)
	for i := 0; i < p.count; i++ {
		out = append(out, p.chunks[(p.head+i)%len(p.chunks)])
	}
	p.Clear()
	return out
}

// Clear drops all buffered chunks.
func (p *PreRoll) Clear() {
	for i := range p.chunks {
		p.chunks[i] = nil
	}
	p.head = 0
	p.count = 0
}

// Len returns the number of buffered chunks.
func (p *PreRoll) Len() int { return p.count }
