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

package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/micolabs/mico-voice/internal/config"
	"github.com/micolabs/mico-voice/internal/events"
)

func TestPublishWithoutConnection(t *testing.T) {
	ns := NewNATSService(config.NATSConfig{URL: "nats://localhost:4222"})

	err := ns.PublishWake(events.NewWakeEvent("hey_mico", 0.9))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not established")

	assert.False(t, ns.Connected())

	// Close without a connection is safe.
	ns.Close()
}

func TestPublishTranscriptValidation(t *testing.T) {
	ns := NewNATSService(config.NATSConfig{URL: "nats://localhost:4222"})

	// Invalid transcripts are rejected before any network work.
	err := ns.PublishTranscript(&events.Transcript{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transcript")

	// Valid transcripts fail only on the missing connection.
	tr := events.NewTranscript("vosk", "hey_mico", time.Second)
	tr.SetResult("turn on the lights", 0.9, time.Millisecond)
	err = ns.PublishTranscript(tr)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}
