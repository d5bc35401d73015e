// Package redis provides the Redis-backed transcript store.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ragchat/chatstream/store"
)

// RedisTranscriptStore implements store.TranscriptStore using Redis. Each
// transcript is stored as a JSON value keyed by chat id, with a set per bot
// acting as the index.
type RedisTranscriptStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.TranscriptStore = (*RedisTranscriptStore)(nil)

// RedisOptions configuration for the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "chatstream:"
	TTL      time.Duration // Expiration for transcripts, default 0 (no expiration)
}

// NewRedisTranscriptStore creates a new Redis transcript store.
func NewRedisTranscriptStore(opts RedisOptions) *RedisTranscriptStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "chatstream:"
	}

	return &RedisTranscriptStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisTranscriptStore) chatKey(chatID string) string {
	return fmt.Sprintf("%stranscript:%s", s.prefix, chatID)
}

func (s *RedisTranscriptStore) botKey(botID string) string {
	return fmt.Sprintf("%sbot:%s:chats", s.prefix, botID)
}

// Save stores a snapshot and indexes it under its bot.
func (s *RedisTranscriptStore) Save(ctx context.Context, rec *store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.chatKey(rec.ChatID), data, s.ttl)
	if rec.BotID != "" {
		botKey := s.botKey(rec.BotID)
		pipe.SAdd(ctx, botKey, rec.ChatID)
		if s.ttl > 0 {
			pipe.Expire(ctx, botKey, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save transcript to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for a chat.
func (s *RedisTranscriptStore) Load(ctx context.Context, chatID string) (*store.Record, error) {
	data, err := s.client.Get(ctx, s.chatKey(chatID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, chatID)
		}
		return nil, fmt.Errorf("failed to load transcript from redis: %w", err)
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript record: %w", err)
	}
	return &rec, nil
}

// List returns all snapshots for a bot, oldest first.
func (s *RedisTranscriptStore) List(ctx context.Context, botID string) ([]*store.Record, error) {
	chatIDs, err := s.client.SMembers(ctx, s.botKey(botID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts for bot %s: %w", botID, err)
	}
	if len(chatIDs) == 0 {
		return []*store.Record{}, nil
	}

	keys := make([]string, 0, len(chatIDs))
	for _, id := range chatIDs {
		keys = append(keys, s.chatKey(id))
	}

	// MGet returns nil for keys that expired out from under the index.
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcripts: %w", err)
	}

	var records []*store.Record
	for _, result := range results {
		if result == nil {
			continue
		}
		strData, ok := result.(string)
		if !ok {
			continue
		}
		var rec store.Record
		if err := json.Unmarshal([]byte(strData), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.Before(records[j].UpdatedAt) })
	return records, nil
}

// Delete removes the snapshot for a chat.
func (s *RedisTranscriptStore) Delete(ctx context.Context, chatID string) error {
	rec, err := s.Load(ctx, chatID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.chatKey(chatID))
	if rec.BotID != "" {
		pipe.SRem(ctx, s.botKey(rec.BotID), chatID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// Clear removes every snapshot for a bot.
func (s *RedisTranscriptStore) Clear(ctx context.Context, botID string) error {
	botKey := s.botKey(botID)
	chatIDs, err := s.client.SMembers(ctx, botKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get transcripts for clearing: %w", err)
	}
	if len(chatIDs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range chatIDs {
		pipe.Del(ctx, s.chatKey(id))
	}
	pipe.Del(ctx, botKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear transcripts: %w", err)
	}
	return nil
}
