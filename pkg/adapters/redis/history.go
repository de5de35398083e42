// Package redis provides a HistoryStore backed by a Redis list, for panels
// that want run history to survive restarts or be shared across hosts.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// Store implements ports.HistoryStore using a Redis list. Entries are
// LPUSHed as JSON, so index 0 is always the newest run; the list is trimmed
// to a configurable cap.
type Store struct {
	client *backend.Client
	key    string
	cap    int64
}

// Option configures the Store.
type Option func(*Store)

// WithKey sets the Redis key holding the history list.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithCap bounds how many entries the list retains.
func WithCap(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// New creates a Redis history store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis history store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    "scriptdeck:history",
		cap:    512,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append pushes the entry and trims the list to the cap.
func (s *Store) Append(ctx context.Context, entry domain.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, s.cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			// A corrupt entry should not hide the rest of the history.
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var _ ports.HistoryStore = (*Store)(nil)
