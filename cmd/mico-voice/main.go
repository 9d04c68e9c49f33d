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

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/micolabs/mico-voice/internal/audio"
	"github.com/micolabs/mico-voice/internal/config"
	"github.com/micolabs/mico-voice/internal/logging"
	"github.com/micolabs/mico-voice/internal/messaging"
	"github.com/micolabs/mico-voice/internal/session"
	"github.com/micolabs/mico-voice/internal/storage"
	"github.com/micolabs/mico-voice/internal/wake"
)

func main() {
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.Sugar.Infow("🤖 mico-voice starting",
		"wake_word", cfg.Wake.Word,
		"engine", cfg.STT.Engine,
		"sample_rate", cfg.Audio.SampleRate,
	)

	deps := session.Deps{
		Wake: buildWakeDetector(cfg),
	}

	if cfg.Storage.DBPath != "" {
		db, err := storage.NewDatabase(cfg.Storage.DBPath)
		if err != nil {
			logging.LogError(err, "Failed to open transcript archive")
			log.Fatalf("Failed to open transcript archive: %v", err)
		}
		defer db.Close()
		deps.Store = storage.NewTranscriptStore(db)
	}

	if cfg.NATS.Enabled {
		nats := messaging.NewNATSService(cfg.NATS)
		if err := nats.Connect(); err != nil {
			logging.LogError(err, "Failed to connect to NATS")
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nats.Close()
		deps.Publisher = nats
	}

	manager, err := session.New(session.FromConfig(cfg), deps)
	if err != nil {
		logging.LogError(err, "Failed to build session manager")
		log.Fatalf("Failed to build session manager: %v", err)
	}
	defer manager.Close()

	// Audio comes in as raw mono PCM16 on stdin, typically piped from
	// arecord or a socat bridge to the mic daemon:
	//
	//   arecord -f S16_LE -r 16000 -c 1 -t raw | mico-voice
	source := audio.NewReaderSource(os.Stdin, cfg.Audio.SampleRate, cfg.Audio.ChunkDuration)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = manager.Run(ctx, source)
	switch {
	case err == nil || errors.Is(err, context.Canceled):
		logging.Sugar.Info("👋 mico-voice shutting down")
	default:
		logging.LogError(err, "Voice pipeline stopped")
		logging.Close()
		os.Exit(1)
	}
}

// buildWakeDetector loads the wake model if configured. A missing or
// broken model is not fatal: the pipeline starts, stays Idle, and
// reports the problem through its status until a valid model shows up.
func buildWakeDetector(cfg *config.Config) *wake.Detector {
	detector := wake.NewDetector(cfg.Wake.Threshold, cfg.Wake.Cooldown)
	if cfg.Wake.ModelPath == "" {
		logging.LogWarn("No wake model configured, wake detection disabled")
		return detector
	}
	if err := detector.LoadModel(cfg.Wake.ModelPath); err != nil {
		logging.LogError(err, "Failed to load wake model, wake detection disabled")
		return detector
	}
	logging.Sugar.Infow("👂 Wake model loaded",
		"path", cfg.Wake.ModelPath,
		"threshold", cfg.Wake.Threshold,
	)
	return detector
}
