package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shrek82/jrecord/core"
)

// MemoryCacheMiddleware caches find results in memory.
// Updates and deletes evict the cached document of the record they touch.
type MemoryCacheMiddleware struct {
	items      map[string]memoryCacheEntry
	mu         sync.RWMutex
	stopClean  chan struct{}
	stopOnce   sync.Once
	DefaultTTL time.Duration
}

type memoryCacheEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

func NewMemoryCache(defaultTTL ...time.Duration) *MemoryCacheMiddleware {
	ttl := 5 * time.Minute
	if len(defaultTTL) > 0 {
		ttl = defaultTTL[0]
	}
	return &MemoryCacheMiddleware{
		items:      make(map[string]memoryCacheEntry),
		stopClean:  make(chan struct{}),
		DefaultTTL: ttl,
	}
}

func (m *MemoryCacheMiddleware) Name() string {
	return "MemoryCache"
}

func (m *MemoryCacheMiddleware) Init(e *core.Engine) error {
	go m.cleanupLoop()
	return nil
}

func (m *MemoryCacheMiddleware) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryCacheMiddleware) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, v := range m.items {
		if !v.ExpiresAt.IsZero() && now.After(v.ExpiresAt) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryCacheMiddleware) Shutdown() error {
	m.stopOnce.Do(func() { close(m.stopClean) })
	return nil
}

// Len returns the number of cached documents, expired ones included.
func (m *MemoryCacheMiddleware) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func cacheKey(collection string, id any) string {
	return fmt.Sprintf("jrecord:cache:%s:%v", collection, id)
}

func (m *MemoryCacheMiddleware) Process(ctx context.Context, op *core.Operation, next core.OpFunc) (*core.OpResult, error) {
	switch op.Kind {
	case core.OpUpdate, core.OpDelete:
		m.mu.Lock()
		delete(m.items, cacheKey(op.Collection, op.ID))
		m.mu.Unlock()
		return next(ctx, op)
	case core.OpFind:
	default:
		return next(ctx, op)
	}

	key := cacheKey(op.Collection, op.ID)

	m.mu.RLock()
	entry, found := m.items[key]
	m.mu.RUnlock()

	if found {
		if entry.ExpiresAt.IsZero() || time.Now().Before(entry.ExpiresAt) {
			fields := &core.Fields{}
			if err := json.Unmarshal(entry.Data, fields); err == nil {
				return &core.OpResult{ID: op.ID, Fields: fields}, nil
			}
		}
		// expired or unreadable
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
	}

	res, err := next(ctx, op)
	if err != nil {
		return res, err
	}

	if res != nil && res.Fields != nil {
		if data, err := json.Marshal(res.Fields); err == nil {
			var exp time.Time
			if m.DefaultTTL > 0 {
				exp = time.Now().Add(m.DefaultTTL)
			}
			m.mu.Lock()
			m.items[key] = memoryCacheEntry{Data: data, ExpiresAt: exp}
			m.mu.Unlock()
		}
	}

	return res, nil
}
