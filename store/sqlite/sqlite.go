// Package sqlite provides the SQLite-backed transcript store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ragchat/chatstream/store"
	"github.com/ragchat/chatstream/transcript"
)

// SqliteTranscriptStore implements store.TranscriptStore using SQLite.
type SqliteTranscriptStore struct {
	db        *sql.DB
	tableName string
}

var _ store.TranscriptStore = (*SqliteTranscriptStore)(nil)

// SqliteOptions configuration for the SQLite connection.
type SqliteOptions struct {
	Path      string
	TableName string // Default "transcripts"
}

// NewSqliteTranscriptStore creates a new SQLite transcript store.
func NewSqliteTranscriptStore(opts SqliteOptions) (*SqliteTranscriptStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "transcripts"
	}

	s := &SqliteTranscriptStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist.
func (s *SqliteTranscriptStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chat_id TEXT PRIMARY KEY,
			bot_id TEXT NOT NULL,
			transcript TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_bot_id ON %s (bot_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteTranscriptStore) Close() error {
	return s.db.Close()
}

// Save stores a snapshot, replacing any previous one for the chat.
func (s *SqliteTranscriptStore) Save(ctx context.Context, rec *store.Record) error {
	data, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (chat_id, bot_id, transcript, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			bot_id = excluded.bot_id,
			transcript = excluded.transcript,
			updated_at = excluded.updated_at
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query, rec.ChatID, rec.BotID, string(data), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a chat.
func (s *SqliteTranscriptStore) Load(ctx context.Context, chatID string) (*store.Record, error) {
	query := fmt.Sprintf(`
		SELECT chat_id, bot_id, transcript, updated_at
		FROM %s
		WHERE chat_id = ?
	`, s.tableName)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, chatID)
		}
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return rec, nil
}

// List returns all snapshots for a bot, oldest first.
func (s *SqliteTranscriptStore) List(ctx context.Context, botID string) ([]*store.Record, error) {
	query := fmt.Sprintf(`
		SELECT chat_id, bot_id, transcript, updated_at
		FROM %s
		WHERE bot_id = ?
		ORDER BY updated_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var records []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transcript rows: %w", err)
	}
	return records, nil
}

// Delete removes the snapshot for a chat.
func (s *SqliteTranscriptStore) Delete(ctx context.Context, chatID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE chat_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// Clear removes every snapshot for a bot.
func (s *SqliteTranscriptStore) Clear(ctx context.Context, botID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE bot_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, botID); err != nil {
		return fmt.Errorf("failed to clear transcripts: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.Record, error) {
	var rec store.Record
	var data string
	if err := row.Scan(&rec.ChatID, &rec.BotID, &data, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Transcript = transcript.New()
	if err := json.Unmarshal([]byte(data), rec.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &rec, nil
}
