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
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunk(seq uint64, sampleRate int, n int) *Chunk {
	return &Chunk{
		Seq:        seq,
		SampleRate: sampleRate,
		Samples:    make([]int16, n),
		Timestamp:  time.Now(),
	}
}

func TestChunkDuration(t *testing.T) {
	c := makeChunk(1, 16000, 320) // 20ms at 16kHz
	assert.Equal(t, 20*time.Millisecond, c.Duration())

	empty := &Chunk{SampleRate: 0}
	assert.Equal(t, time.Duration(0), empty.Duration())
}

func TestUtteranceCapInvariant(t *testing.T) {
	// 100ms cap, 20ms chunks: exactly 5 fit, the 6th is refused.
	u := NewUtterance(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, u.Append(makeChunk(uint64(i), 16000, 320)))
		assert.LessOrEqual(t, u.Duration(), 100*time.Millisecond)
	}

	err := u.Append(makeChunk(6, 16000, 320))
	assert.ErrorIs(t, err, ErrUtteranceFull)
	assert.Equal(t, 5, u.Len())
	assert.Equal(t, 100*time.Millisecond, u.Duration())
	assert.True(t, u.Full(20*time.Millisecond))
}

func TestUtteranceTrailingSilence(t *testing.T) {
	u := NewUtterance(time.Second)
	u.AddSilence(20 * time.Millisecond)
	u.AddSilence(20 * time.Millisecond)
	assert.Equal(t, 40*time.Millisecond, u.TrailingSilence())

	u.ResetSilence()
	assert.Equal(t, time.Duration(0), u.TrailingSilence())
}

func TestUtteranceSamplesConcatenation(t *testing.T) {
	u := NewUtterance(time.Second)

	c1 := &Chunk{Seq: 1, SampleRate: 16000, Samples: []int16{1, 2, 3}}
	c2 := &Chunk{Seq: 2, SampleRate: 16000, Samples: []int16{4, 5}}
	require.NoError(t, u.Append(c1))
	require.NoError(t, u.Append(c2))

	assert.Equal(t, []int16{1, 2, 3, 4, 5}, u.Samples())
	assert.Equal(t, 16000, u.SampleRate())
}

func TestPreRollEvictionOrder(t *testing.T) {
	p := NewPreRoll(3)

	for i := 1; i <= 5; i++ {
		p.Push(makeChunk(uint64(i), 16000, 320))
	}
	require.Equal(t, 3, p.Len())

	drained := p.Drain()
	require.Len(t, drained, 3)
	// Oldest two were evicted; remaining come out oldest-first.
	assert.Equal(t, uint64(3), drained[0].Seq)
	assert.Equal(t, uint64(4), drained[1].Seq)
	assert.Equal(t, uint64(5), drained[2].Seq)
	assert.Equal(t, 0, p.Len())
}

func TestPreRollClear(t *testing.T) {
	p := NewPreRoll(4)
	p.Push(makeChunk(1, 16000, 320))
	p.Push(makeChunk(2, 16000, 320))
	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Drain())
}

func TestInt16Float32Conversion(t *testing.T) {
	in := []int16{0, 16384, -16384, 32767, -32768}
	f := Int16ToFloat32(in)

	assert.InDelta(t, 0.0, float64(f[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(f[1]), 1e-3)
	assert.InDelta(t, -0.5, float64(f[2]), 1e-3)

	back := Float32ToInt16(f)
	for i := range in {
		assert.InDelta(t, float64(in[i]), float64(back[i]), 2)
	}
}

func TestFloat32ToInt16Clamps(t *testing.T) {
	out := Float32ToInt16([]float32{1.5, -1.5})
	assert.Equal(t, int16(32767), out[0])
	assert.Equal(t, int16(-32768), out[1])
}

func TestResample(t *testing.T) {
	// One second of a 100Hz sine at 8kHz resampled to 16kHz keeps the
	// duration and stays in range.
	in := make([]float32, 8000)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 100 * float64(i) / 8000))
	}

	out := Resample(in, 8000, 16000)
	assert.InDelta(t, 16000, len(out), 2)
	for _, s := range out {
		assert.LessOrEqual(t, float64(s), 1.0)
		assert.GreaterOrEqual(t, float64(s), -1.0)
	}

	// Same-rate input passes through untouched.
	same := Resample(in, 8000, 8000)
	assert.Equal(t, len(in), len(same))
}

func TestRMS(t *testing.T) {
	silence := make([]int16, 320)
	assert.Equal(t, 0.0, RMS(silence))

	loud := make([]int16, 320)
	for i := range loud {
		loud[i] = 16384
	}
	assert.InDelta(t, 0.5, RMS(loud), 1e-3)

	assert.Equal(t, 0.0, RMS(nil))
}

func TestReaderSource(t *testing.T) {
	// 3 chunks of 20ms at 16kHz = 3*320 samples.
	var buf bytes.Buffer
	for i := 0; i < 3*320; i++ {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, int16(i)))
	}

	src := NewReaderSource(&buf, 16000, 20*time.Millisecond)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		chunk, err := src.Pull(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, chunk.Seq)
		assert.Len(t, chunk.Samples, 320)
		assert.Equal(t, 16000, chunk.SampleRate)
	}

	// First sample of first chunk decodes little-endian.
	_, err := src.Pull(ctx, time.Second)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReaderSourceContextCancelled(t *testing.T) {
	src := NewReaderSource(bytes.NewReader(nil), 16000, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Pull(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourceError(t *testing.T) {
	err := &SourceError{Timeouts: 5, Err: ErrTimeout}
	assert.Contains(t, err.Error(), "5 consecutive timeouts")
	assert.ErrorIs(t, err, ErrTimeout)
}
