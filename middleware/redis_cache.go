package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrek82/jrecord/core"
)

// RedisCacheMiddleware caches find results in Redis.
// Updates and deletes evict the cached document of the record they touch.
type RedisCacheMiddleware struct {
	Client *redis.Client
	TTL    time.Duration // 0 keeps entries until evicted
	owned  bool
}

// NewRedisCache creates a cache with its own client, closed on Shutdown.
func NewRedisCache(opt *redis.Options, ttl time.Duration) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{
		Client: redis.NewClient(opt),
		TTL:    ttl,
		owned:  true,
	}
}

// NewRedisCacheFromClient creates a cache on a shared client, left open on Shutdown.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCacheMiddleware {
	return &RedisCacheMiddleware{Client: client, TTL: ttl}
}

func (m *RedisCacheMiddleware) Name() string {
	return "RedisCache"
}

func (m *RedisCacheMiddleware) Init(e *core.Engine) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx).Err()
}

func (m *RedisCacheMiddleware) Shutdown() error {
	if m.owned {
		return m.Client.Close()
	}
	return nil
}

func (m *RedisCacheMiddleware) Process(ctx context.Context, op *core.Operation, next core.OpFunc) (*core.OpResult, error) {
	switch op.Kind {
	case core.OpUpdate, core.OpDelete:
		// eviction errors are ignored
		m.Client.Del(ctx, cacheKey(op.Collection, op.ID))
		return next(ctx, op)
	case core.OpFind:
	default:
		return next(ctx, op)
	}

	key := cacheKey(op.Collection, op.ID)

	val, err := m.Client.Get(ctx, key).Bytes()
	if err == nil {
		fields := &core.Fields{}
		if err := json.Unmarshal(val, fields); err == nil {
			return &core.OpResult{ID: op.ID, Fields: fields}, nil
		}
	}

	res, err := next(ctx, op)
	if err != nil {
		return res, err
	}

	if res != nil && res.Fields != nil {
		if data, err := json.Marshal(res.Fields); err == nil {
			m.Client.Set(ctx, key, data, m.TTL)
		}
	}

	return res, nil
}
