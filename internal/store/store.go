// Package store is the durable sink for finalized audio segments and their
// transcripts, one SQLite database per user. The pipeline writes to it
// fire-and-forget; nothing in memory depends on these writes succeeding.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/greffier/greffier/internal/audio"
	"github.com/greffier/greffier/internal/transcriber"
)

// AudioRecord is one stored audio segment.
type AudioRecord struct {
	ID         string
	SessionID  string
	ClientID   string
	Origin     string
	SourceFile string
	DurationS  float64
	SampleRate int
	WAV        []byte
	CreatedAt  time.Time
}

// TranscriptRecord is one stored transcription result.
type TranscriptRecord struct {
	ID        string
	SessionID string
	ClientID  string
	SegmentID string
	Text      string
	Spans     []transcriber.Segment
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// DefaultPath returns the database location under the user cache dir.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "greffier", "greffier.db"), nil
}

// Open opens (creating if needed) the database at path in WAL mode.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audio_segments (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		origin TEXT NOT NULL,
		source_file TEXT NOT NULL DEFAULT '',
		duration_s REAL NOT NULL,
		sample_rate INTEGER NOT NULL,
		wav BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		segment_id TEXT NOT NULL,
		text TEXT NOT NULL,
		spans_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (segment_id) REFERENCES audio_segments(id)
	);

	CREATE INDEX IF NOT EXISTS idx_audio_session ON audio_segments(session_id);
	CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StoreAudioSegment persists one encoded segment and returns its id.
func (s *Store) StoreAudioSegment(ctx context.Context, wav []byte, seg audio.Segment, sessionID, clientID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_segments (id, session_id, client_id, origin, source_file, duration_s, sample_rate, wav)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, clientID, string(seg.Origin), seg.SourceFile, seg.Duration(), seg.SampleRate, wav)
	if err != nil {
		return "", fmt.Errorf("insert audio segment: %w", err)
	}
	return id, nil
}

// StoreTranscript persists one accepted transcription result.
func (s *Store) StoreTranscript(ctx context.Context, segmentID, text string, spans []transcriber.Segment, sessionID, clientID string) (string, error) {
	spansJSON, err := json.Marshal(spans)
	if err != nil {
		return "", fmt.Errorf("marshal spans: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, session_id, client_id, segment_id, text, spans_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, clientID, segmentID, text, string(spansJSON))
	if err != nil {
		return "", fmt.Errorf("insert transcript: %w", err)
	}
	return id, nil
}

// SessionTranscripts returns the stored transcripts of a session in insertion
// order.
func (s *Store) SessionTranscripts(ctx context.Context, sessionID string) ([]TranscriptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, client_id, segment_id, text, spans_json, created_at
		FROM transcripts WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var records []TranscriptRecord
	for rows.Next() {
		var rec TranscriptRecord
		var spansJSON string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ClientID, &rec.SegmentID, &rec.Text, &spansJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		if err := json.Unmarshal([]byte(spansJSON), &rec.Spans); err != nil {
			return nil, fmt.Errorf("decode spans: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SessionAudio returns stored audio metadata (without blobs) for a session.
func (s *Store) SessionAudio(ctx context.Context, sessionID string) ([]AudioRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, client_id, origin, source_file, duration_s, sample_rate, created_at
		FROM audio_segments WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audio segments: %w", err)
	}
	defer rows.Close()

	var records []AudioRecord
	for rows.Next() {
		var rec AudioRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ClientID, &rec.Origin, &rec.SourceFile, &rec.DurationS, &rec.SampleRate, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audio segment: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AudioBlob loads one stored WAV payload by segment id.
func (s *Store) AudioBlob(ctx context.Context, id string) ([]byte, error) {
	var wav []byte
	err := s.db.QueryRowContext(ctx, `SELECT wav FROM audio_segments WHERE id = ?`, id).Scan(&wav)
	if err != nil {
		return nil, fmt.Errorf("load audio blob: %w", err)
	}
	return wav, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
