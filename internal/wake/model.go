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

package wake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Wake models are opaque pre-trained artifacts: a per-frame RMS envelope
// template of the wake phrase. Layout, little-endian:
//
//	magic "MWW1" | uint32 sample rate | uint32 frame samples |
//	uint32 frame count | frame count * float32 envelope
//
// Training and download of these artifacts happen outside this module.
var modelMagic = [4]byte{'M', 'W', 'W', '1'}

var (
	ErrBadModelMagic = errors.New("wake: not a wake model file")
	ErrCorruptModel  = errors.New("wake: corrupt wake model")
)

// Model is a loaded wake phrase template.
type Model struct {
	SampleRate int
	FrameLen   int       // samples per envelope frame
	Template   []float32 // per-frame RMS envelope of the wake phrase
}

// Frames returns the number of envelope frames in the template.
func (m *Model) Frames() int { return len(m.Template) }

// LoadModel reads a wake model artifact from disk.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wake: open model %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("wake: read model header: %w", err)
	}
	if magic != modelMagic {
		return nil, fmt.Errorf("%w: %s", ErrBadModelMagic, path)
	}

	var header struct {
		SampleRate uint32
		FrameLen   uint32
		FrameCount uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("wake: read model header: %w", err)
	}

	if header.SampleRate == 0 || header.FrameLen == 0 {
		return nil, fmt.Errorf("%w: zero sample rate or frame length", ErrCorruptModel)
	}
	// 10s of 10ms frames is far beyond any real wake phrase; anything
	// larger means a damaged file, not a long phrase.
	if header.FrameCount == 0 || header.FrameCount > 1000 {
		return nil, fmt.Errorf("%w: implausible frame count %d", ErrCorruptModel, header.FrameCount)
	}

	template := make([]float32, header.FrameCount)
	if err := binary.Read(f, binary.LittleEndian, template); err != nil {
		return nil, fmt.Errorf("%w: truncated template: %v", ErrCorruptModel, err)
	}
	for _, v := range template {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite template value", ErrCorruptModel)
		}
	}

	return &Model{
		SampleRate: int(header.SampleRate),
		FrameLen:   int(header.FrameLen),
		Template:   template,
	}, nil
}
