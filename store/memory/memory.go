// Package memory provides an in-process core.Store.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shrek82/jrecord/core"
)

// Store keeps documents per collection in memory with sequential int64 ids.
type Store struct {
	mu          sync.Mutex
	seq         map[string]int64
	collections map[string]map[int64]*core.Fields
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		seq:         make(map[string]int64),
		collections: make(map[string]map[int64]*core.Fields),
	}
}

func (s *Store) Insert(_ context.Context, collection string, fields *core.Fields) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[collection]++
	id := s.seq[collection]
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[int64]*core.Fields)
		s.collections[collection] = docs
	}
	docs[id] = fields.Clone()
	return id, nil
}

func (s *Store) Update(_ context.Context, collection string, id any, fields *core.Fields) error {
	key, err := normalizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	if _, ok := docs[key]; !ok {
		return core.ErrRecordNotFound
	}
	docs[key] = fields.Clone()
	return nil
}

func (s *Store) Delete(_ context.Context, collection string, id any) error {
	key, err := normalizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	if _, ok := docs[key]; !ok {
		return core.ErrRecordNotFound
	}
	delete(docs, key)
	return nil
}

func (s *Store) Find(_ context.Context, collection string, id any) (*core.Fields, error) {
	key, err := normalizeID(id)
	if err != nil {
		return nil, core.ErrRecordNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	return doc.Clone(), nil
}

// Len returns the number of documents in collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

func normalizeID(id any) (int64, error) {
	switch v := id.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("memory: unsupported id %v (%T)", id, id)
}
