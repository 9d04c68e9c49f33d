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

package storage

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/micolabs/mico-voice/internal/events"
	"github.com/micolabs/mico-voice/internal/logging"
)

// TranscriptStore handles database operations for the transcript
// archive. Satisfies session.Store.
type TranscriptStore struct {
	db *Database
}

// NewTranscriptStore creates a store backed by the given database.
func NewTranscriptStore(db *Database) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// Insert stores a finalized transcript.
func (s *TranscriptStore) Insert(tr *events.Transcript) error {
	if err := tr.IsValid(); err != nil {
		return fmt.Errorf("invalid transcript: %w", err)
	}

	query := `
		INSERT INTO transcripts (
			uuid, text, confidence, wake_word, engine,
			timestamp, audio_duration, processing_ms, success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().Exec(query,
		tr.UUID, tr.Text, tr.Confidence, tr.WakeWord, tr.Engine,
		tr.Timestamp, tr.AudioDuration, tr.ProcessingMs, tr.Success, tr.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	logging.LogStorageOperation("insert", "transcripts",
		zap.String("uuid", tr.UUID),
		zap.String("engine", tr.Engine),
		zap.Bool("success", tr.Success))
	return nil
}

// GetByUUID retrieves a transcript by its UUID.
func (s *TranscriptStore) GetByUUID(uuid string) (*events.Transcript, error) {
	query := `
		SELECT uuid, text, confidence, wake_word, engine,
			   timestamp, audio_duration, processing_ms, success, error_message
		FROM transcripts
		WHERE uuid = ?`

	return scanTranscript(s.db.DB().QueryRow(query, uuid))
}

// ListRecent retrieves up to limit transcripts, most recent first.
func (s *TranscriptStore) ListRecent(limit int) ([]*events.Transcript, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT uuid, text, confidence, wake_word, engine,
			   timestamp, audio_duration, processing_ms, success, error_message
		FROM transcripts
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var out []*events.Transcript
	for rows.Next() {
		tr, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcripts: %w", err)
	}
	return out, nil
}

// Count returns the number of archived transcripts.
func (s *TranscriptStore) Count() (int64, error) {
	var count int64
	err := s.db.DB().QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transcripts: %w", err)
	}
	return count, nil
}

// DeleteOlderThan prunes archive entries with a timestamp before the
// cutoff. Returns the number of rows removed.
func (s *TranscriptStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.DB().Exec("DELETE FROM transcripts WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transcripts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if n > 0 {
		logging.LogStorageOperation("prune", "transcripts", zap.Int64("removed", n))
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTranscript(row scanner) (*events.Transcript, error) {
	var tr events.Transcript
	err := row.Scan(
		&tr.UUID, &tr.Text, &tr.Confidence, &tr.WakeWord, &tr.Engine,
		&tr.Timestamp, &tr.AudioDuration, &tr.ProcessingMs, &tr.Success, &tr.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transcript not found")
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}
