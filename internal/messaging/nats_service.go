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

// Package messaging publishes pipeline events over NATS so other parts
// of the robot (motion, face, skills) can react to wake triggers and
// finished transcriptions.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/micolabs/mico-voice/internal/config"
	"github.com/micolabs/mico-voice/internal/events"
	"github.com/micolabs/mico-voice/internal/logging"
)

// NATS subjects for pipeline events.
const (
	SubjectWakeEvents  = "mico.voice.wake"
	SubjectTranscripts = "mico.voice.transcripts"
)

// NATSService publishes voice events to a NATS server. Satisfies
// session.Publisher.
type NATSService struct {
	conn *nats.Conn
	cfg  config.NATSConfig
}

// NewNATSService creates an unconnected service.
func NewNATSService(cfg config.NATSConfig) *NATSService {
	return &NATSService{cfg: cfg}
}

// Connect establishes the NATS connection with reconnect handling.
func (ns *NATSService) Connect() error {
	logging.Sugar.Infow("🔌 Connecting to NATS", "url", ns.cfg.URL)

	opts := []nats.Option{
		nats.Name("mico-voice"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("⚠️  NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔄 NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Info("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.Sugar.Infow("✅ Connected to NATS", "url", conn.ConnectedUrl())
	return nil
}

// PublishWake publishes a wake detection event.
func (ns *NATSService) PublishWake(ev *events.WakeEvent) error {
	if err := ns.publish(SubjectWakeEvents, ev); err != nil {
		return err
	}
	logging.Sugar.Infow("📤 Published wake event",
		"wake_word", ev.WakeWord, "confidence", ev.Confidence)
	return nil
}

// PublishTranscript publishes a finalized transcript.
func (ns *NATSService) PublishTranscript(tr *events.Transcript) error {
	if err := tr.IsValid(); err != nil {
		return fmt.Errorf("refusing to publish invalid transcript: %w", err)
	}
	if err := ns.publish(SubjectTranscripts, tr); err != nil {
		return err
	}
	logging.Sugar.Infow("📤 Published transcript",
		"uuid", tr.UUID, "engine", tr.Engine, "success", tr.Success)
	return nil
}

func (ns *NATSService) publish(subject string, payload interface{}) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Connected reports whether the underlying connection is up.
func (ns *NATSService) Connected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// Close flushes pending messages and closes the connection.
func (ns *NATSService) Close() {
	if ns.conn == nil {
		return
	}
	if err := ns.conn.FlushTimeout(2 * time.Second); err != nil {
		logging.LogWarn("flushing NATS on close", zap.Error(err))
	}
	ns.conn.Close()
	ns.conn = nil
}
