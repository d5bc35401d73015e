// Package memory provides the in-memory transcript store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ragchat/chatstream/store"
)

// MemoryTranscriptStore implements store.TranscriptStore in process memory.
// Safe for concurrent use.
type MemoryTranscriptStore struct {
	mu      sync.RWMutex
	records map[string]*store.Record // chat id -> record
}

var _ store.TranscriptStore = (*MemoryTranscriptStore)(nil)

// NewMemoryTranscriptStore creates an empty in-memory store.
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{records: make(map[string]*store.Record)}
}

// Save stores a snapshot, replacing any previous one for the chat.
func (s *MemoryTranscriptStore) Save(_ context.Context, rec *store.Record) error {
	if rec == nil || rec.ChatID == "" {
		return fmt.Errorf("store: record must carry a chat id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ChatID] = &cp
	return nil
}

// Load retrieves the snapshot for a chat.
func (s *MemoryTranscriptStore) Load(_ context.Context, chatID string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, chatID)
	}
	cp := *rec
	return &cp, nil
}

// List returns all snapshots for a bot, oldest first.
func (s *MemoryTranscriptStore) List(_ context.Context, botID string) ([]*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Record
	for _, rec := range s.records {
		if rec.BotID == botID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// Delete removes the snapshot for a chat.
func (s *MemoryTranscriptStore) Delete(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, chatID)
	return nil
}

// Clear removes every snapshot for a bot.
func (s *MemoryTranscriptStore) Clear(_ context.Context, botID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.records {
		if rec.BotID == botID {
			delete(s.records, id)
		}
	}
	return nil
}
