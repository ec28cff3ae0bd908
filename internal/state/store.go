// Package state is a generic keyed value store used to pass ancillary
// data between workflow phases. Last write wins; no history is kept.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Entry wraps a stored value with its write timestamp.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is a Redis-backed shared state store.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, prefix: "state:"}
}

// Set overwrites the value for key.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state value: %w", err)
	}
	entry, err := json.Marshal(Entry{Value: raw, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal state entry: %w", err)
	}
	return s.client.Set(ctx, s.prefix+key, entry, 0).Err()
}

// Get unmarshals the value for key into dest. Returns false (and leaves
// dest untouched) when the key is absent; callers keep their default.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get state: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false, fmt.Errorf("failed to unmarshal state entry: %w", err)
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal state value: %w", err)
	}
	return true, nil
}

// UpdatedAt reports when key was last written; zero time if absent.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return time.Time{}, nil
	} else if err != nil {
		return time.Time{}, fmt.Errorf("failed to get state: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return time.Time{}, fmt.Errorf("failed to unmarshal state entry: %w", err)
	}
	return entry.UpdatedAt, nil
}
