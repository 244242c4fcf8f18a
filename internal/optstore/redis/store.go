// Package redis stores the walker option cache in a single Redis key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/dgallion1/layertree/internal/walker"
)

// DefaultKey holds the options JSON.
const DefaultKey = "layertree:options"

// Store implements optstore.Store using Redis.
type Store struct {
	client *backend.Client
	key    string
}

// New creates a store with its own client. An empty key uses DefaultKey.
func New(address, password string, db int, key string) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, key)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Load retrieves the saved options; false when the key does not exist.
func (s *Store) Load(ctx context.Context) (walker.Options, bool, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return walker.Options{}, false, nil
		}
		return walker.Options{}, false, fmt.Errorf("failed to get from redis: %w", err)
	}

	var opts walker.Options
	if err := json.Unmarshal(val, &opts); err != nil {
		return walker.Options{}, false, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return opts, true, nil
}

// Save persists the options without expiry.
func (s *Store) Save(ctx context.Context, opts walker.Options) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
