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
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrTimeout is returned by Source.Pull when no chunk arrived within the
// timeout. A single timeout is not fatal; the session retries up to a
// bounded count before giving up on the source.
var ErrTimeout = errors.New("audio source: pull timed out")

// SourceError reports a capture device that stopped delivering audio after
// the retry budget was exhausted.
type SourceError struct {
	Timeouts int
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("audio source failed after %d consecutive timeouts: %v", e.Timeouts, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source delivers fixed-duration mono PCM chunks from the device
// microphone. Pull blocks until a chunk is ready, the timeout elapses
// (ErrTimeout) or the context is cancelled.
type Source interface {
	Pull(ctx context.Context, timeout time.Duration) (*Chunk, error)
}

// ReaderSource adapts a raw PCM16 little-endian byte stream (a pipe from
// arecord, a test fixture file) into the Source contract. It exists so the
// pipeline can run end to end without a platform audio driver; the real
// microphone driver lives outside this module.
type ReaderSource struct {
	r          io.Reader
	sampleRate int
	chunkLen   int // samples per chunk

	mu  sync.Mutex
	seq uint64
	buf []byte
}

// NewReaderSource creates a source producing chunks of chunkDuration from r.
func NewReaderSource(r io.Reader, sampleRate int, chunkDuration time.Duration) *ReaderSource {
	chunkLen := int(time.Duration(sampleRate) * chunkDuration / time.Second)
	return &ReaderSource{
		r:          r,
		sampleRate: sampleRate,
		chunkLen:   chunkLen,
		buf:        make([]byte, chunkLen*2),
	}
}

// Pull reads the next chunk from the underlying stream. io.EOF is returned
// verbatim when the stream ends so callers can distinguish a finished
// fixture from a dead device.
func (s *ReaderSource) Pull(ctx context.Context, timeout time.Duration) (*Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading PCM stream: %w", err)
	}

	samples := make([]int16, s.chunkLen)
	for i := range samples {
		samples[i] = int16(s.buf[2*i]) | int16(s.buf[2*i+1])<<8
	}

	s.seq++
	return &Chunk{
		Seq:        s.seq,
		SampleRate: s.sampleRate,
		Samples:    samples,
		Timestamp:  time.Now(),
	}, nil
}
