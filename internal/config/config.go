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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Mico voice pipeline
type Config struct {
	Audio   AudioConfig
	Wake    WakeConfig
	VAD     VADConfig
	STT     STTConfig
	Session SessionConfig
	NATS    NATSConfig
	Storage StorageConfig
	Logging LoggingConfig
}

// AudioConfig holds microphone capture configuration
type AudioConfig struct {
	SampleRate     int           // Hz, mono PCM16
	ChunkDuration  time.Duration // duration of one capture chunk (one tick)
	PullTimeout    time.Duration // per-chunk pull timeout
	MaxPullRetries int           // consecutive timeouts tolerated before the source is declared dead
}

// WakeConfig holds wake word detection configuration
type WakeConfig struct {
	ModelPath string        // path to the wake model artifact
	Word      string        // wake word label reported in events
	Threshold float64       // trigger at confidence >= threshold
	Cooldown  time.Duration // suppression window after a trigger
}

// VADConfig holds voice activity detection configuration
type VADConfig struct {
	Aggressiveness int // 0-3, higher rejects more borderline audio as silence
}

// STTConfig holds speech-to-text engine configuration
type STTConfig struct {
	Engine            string // "vosk" or "whisper"
	VoskModelPath     string
	WhisperModelPath  string
	ProcessingTimeout time.Duration // hard ceiling on one utterance inference
}

// SessionConfig holds session state machine configuration
type SessionConfig struct {
	EndpointSilence time.Duration // trailing silence that finalizes an utterance
	PreRoll         time.Duration // audio retained before wake detection
	MaxUtterance    time.Duration // hard cap on utterance duration
	HistorySize     int           // transcript ring capacity
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	Enabled       bool
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// StorageConfig holds the optional transcript archive configuration.
// An empty DBPath disables persistence entirely.
type StorageConfig struct {
	DBPath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Audio: AudioConfig{
			SampleRate:     getEnvInt("MICO_SAMPLE_RATE", 16000),
			ChunkDuration:  getEnvDuration("MICO_CHUNK_DURATION", 20*time.Millisecond),
			PullTimeout:    getEnvDuration("MICO_PULL_TIMEOUT", 500*time.Millisecond),
			MaxPullRetries: getEnvInt("MICO_PULL_RETRIES", 5),
		},
		Wake: WakeConfig{
			ModelPath: getEnvString("MICO_WAKE_MODEL", ""),
			Word:      getEnvString("MICO_WAKE_WORD", "hey_mico"),
			Threshold: getEnvFloat64("MICO_WAKE_THRESHOLD", 0.5),
			Cooldown:  getEnvDuration("MICO_WAKE_COOLDOWN", 500*time.Millisecond),
		},
		VAD: VADConfig{
			Aggressiveness: getEnvInt("MICO_VAD_AGGRESSIVENESS", 2),
		},
		STT: STTConfig{
			Engine:            getEnvString("MICO_STT_ENGINE", "vosk"),
			VoskModelPath:     getEnvString("MICO_VOSK_MODEL", ""),
			WhisperModelPath:  getEnvString("MICO_WHISPER_MODEL", ""),
			ProcessingTimeout: getEnvDuration("MICO_STT_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			EndpointSilence: getEnvDuration("MICO_ENDPOINT_SILENCE", 700*time.Millisecond),
			PreRoll:         getEnvDuration("MICO_PREROLL", 300*time.Millisecond),
			MaxUtterance:    getEnvDuration("MICO_MAX_UTTERANCE", 10*time.Second),
			HistorySize:     getEnvInt("MICO_HISTORY_SIZE", 50),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("MICO_NATS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("MICO_DB_PATH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}

	if c.Audio.ChunkDuration < 10*time.Millisecond || c.Audio.ChunkDuration > 100*time.Millisecond {
		return fmt.Errorf("chunk duration out of range: %s", c.Audio.ChunkDuration)
	}

	if c.Audio.MaxPullRetries <= 0 {
		return fmt.Errorf("pull retries must be positive: %d", c.Audio.MaxPullRetries)
	}

	if c.Wake.Threshold <= 0 || c.Wake.Threshold > 1 {
		return fmt.Errorf("wake threshold must be in (0, 1]: %f", c.Wake.Threshold)
	}

	if c.VAD.Aggressiveness < 0 || c.VAD.Aggressiveness > 3 {
		return fmt.Errorf("VAD aggressiveness must be 0-3: %d", c.VAD.Aggressiveness)
	}

	if c.STT.Engine != "vosk" && c.STT.Engine != "whisper" {
		return fmt.Errorf("unknown STT engine: %q", c.STT.Engine)
	}

	if c.Session.EndpointSilence <= 0 {
		return fmt.Errorf("endpoint silence must be positive: %s", c.Session.EndpointSilence)
	}

	if c.Session.MaxUtterance <= c.Session.PreRoll {
		return fmt.Errorf("max utterance (%s) must exceed pre-roll (%s)",
			c.Session.MaxUtterance, c.Session.PreRoll)
	}

	if c.Session.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive: %d", c.Session.HistorySize)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
