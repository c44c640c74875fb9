package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/shrek82/jrecord/core"
)

// Store implements core.Store using Redis.
// Each document is a JSON string at prefix+collection+":"+id; ids come from
// INCR on prefix+collection+":seq".
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for documents.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for documents.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "jrecord:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(collection string, id any) string {
	return fmt.Sprintf("%s%s:%v", s.prefix, collection, id)
}

func (s *Store) seqKey(collection string) string {
	return s.prefix + collection + ":seq"
}

// Insert allocates the next id and writes the document.
func (s *Store) Insert(ctx context.Context, collection string, fields *core.Fields) (any, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	id, err := s.client.Incr(ctx, s.seqKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate id: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(collection, id), data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to save to redis: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateKey, s.key(collection, id))
	}
	return id, nil
}

// Update overwrites an existing document only.
func (s *Store) Update(ctx context.Context, collection string, id any, fields *core.Fields) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.key(collection, id), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if !ok {
		return core.ErrRecordNotFound
	}
	return nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, collection string, id any) error {
	n, err := s.client.Del(ctx, s.key(collection, id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// Find retrieves the document.
func (s *Store) Find(ctx context.Context, collection string, id any) (*core.Fields, error) {
	val, err := s.client.Get(ctx, s.key(collection, id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, core.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	fields := &core.Fields{}
	if err := json.Unmarshal([]byte(val), fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return fields, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
