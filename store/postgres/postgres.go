// Package postgres provides the Postgres-backed transcript store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragchat/chatstream/store"
	"github.com/ragchat/chatstream/transcript"
)

// DBPool defines the interface for the database connection pool. Satisfied
// by pgxpool.Pool and by pgxmock in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresTranscriptStore implements store.TranscriptStore using PostgreSQL.
type PostgresTranscriptStore struct {
	pool      DBPool
	tableName string
}

var _ store.TranscriptStore = (*PostgresTranscriptStore)(nil)

// PostgresOptions configuration for the Postgres connection.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "transcripts"
}

// NewPostgresTranscriptStore creates a new Postgres transcript store.
func NewPostgresTranscriptStore(ctx context.Context, opts PostgresOptions) (*PostgresTranscriptStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "transcripts"
	}
	return &PostgresTranscriptStore{pool: pool, tableName: tableName}, nil
}

// NewPostgresTranscriptStoreWithPool creates a store over an existing pool.
// Useful for testing with mocks.
func NewPostgresTranscriptStoreWithPool(pool DBPool, tableName string) *PostgresTranscriptStore {
	if tableName == "" {
		tableName = "transcripts"
	}
	return &PostgresTranscriptStore{pool: pool, tableName: tableName}
}

// InitSchema creates the necessary table if it doesn't exist.
func (s *PostgresTranscriptStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chat_id TEXT PRIMARY KEY,
			bot_id TEXT NOT NULL,
			transcript JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_bot_id ON %s (bot_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresTranscriptStore) Close() {
	s.pool.Close()
}

// Save stores a snapshot, replacing any previous one for the chat.
func (s *PostgresTranscriptStore) Save(ctx context.Context, rec *store.Record) error {
	data, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (chat_id, bot_id, transcript, updated_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (chat_id) DO UPDATE SET bot_id = excluded.bot_id, transcript = excluded.transcript, updated_at = excluded.updated_at",
		s.tableName)

	if _, err := s.pool.Exec(ctx, query, rec.ChatID, rec.BotID, data, rec.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a chat.
func (s *PostgresTranscriptStore) Load(ctx context.Context, chatID string) (*store.Record, error) {
	query := fmt.Sprintf(
		"SELECT chat_id, bot_id, transcript, updated_at FROM %s WHERE chat_id = $1",
		s.tableName)

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, chatID)
		}
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return rec, nil
}

// List returns all snapshots for a bot, oldest first.
func (s *PostgresTranscriptStore) List(ctx context.Context, botID string) ([]*store.Record, error) {
	query := fmt.Sprintf(
		"SELECT chat_id, bot_id, transcript, updated_at FROM %s WHERE bot_id = $1 ORDER BY updated_at ASC",
		s.tableName)

	rows, err := s.pool.Query(ctx, query, botID)
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
func (s *PostgresTranscriptStore) Delete(ctx context.Context, chatID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE chat_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// Clear removes every snapshot for a bot.
func (s *PostgresTranscriptStore) Clear(ctx context.Context, botID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE bot_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, botID); err != nil {
		return fmt.Errorf("failed to clear transcripts: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.Record, error) {
	var rec store.Record
	var data []byte
	if err := row.Scan(&rec.ChatID, &rec.BotID, &data, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Transcript = transcript.New()
	if err := json.Unmarshal(data, rec.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &rec, nil
}
