// Package store defines transcript persistence. Backends live in the
// subpackages: in-memory for tests and ephemeral clients, Redis, SQLite and
// Postgres for durable history.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ragchat/chatstream/transcript"
)

// ErrNotFound is returned when no transcript is stored under a chat id.
var ErrNotFound = errors.New("store: transcript not found")

// Record is one persisted transcript snapshot.
type Record struct {
	ChatID     string                 `json:"chat_id"`
	BotID      string                 `json:"bot_id"`
	Transcript *transcript.Transcript `json:"transcript"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// TranscriptStore persists transcript snapshots keyed by chat id and indexed
// by bot id.
type TranscriptStore interface {
	// Save stores a snapshot, replacing any previous one for the chat.
	Save(ctx context.Context, rec *Record) error

	// Load retrieves the snapshot for a chat.
	Load(ctx context.Context, chatID string) (*Record, error)

	// List returns all snapshots for a bot, oldest first.
	List(ctx context.Context, botID string) ([]*Record, error)

	// Delete removes the snapshot for a chat.
	Delete(ctx context.Context, chatID string) error

	// Clear removes every snapshot for a bot.
	Clear(ctx context.Context, botID string) error
}
