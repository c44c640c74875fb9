package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/logger"
	"github.com/shrek82/jrecord/middleware"
	"github.com/shrek82/jrecord/store/memory"
)

// flakyStore fails every call while down is set and counts finds.
type flakyStore struct {
	core.Store
	down  bool
	finds int
}

var errDown = errors.New("store down")

func (s *flakyStore) Insert(ctx context.Context, c string, f *core.Fields) (any, error) {
	if s.down {
		return nil, errDown
	}
	return s.Store.Insert(ctx, c, f)
}

func (s *flakyStore) Update(ctx context.Context, c string, id any, f *core.Fields) error {
	if s.down {
		return errDown
	}
	return s.Store.Update(ctx, c, id, f)
}

func (s *flakyStore) Find(ctx context.Context, c string, id any) (*core.Fields, error) {
	s.finds++
	if s.down {
		return nil, errDown
	}
	return s.Store.Find(ctx, c, id)
}

func newEngine(t *testing.T) (*core.Engine, *flakyStore, *core.Class) {
	t.Helper()
	store := &flakyStore{Store: memory.New()}
	reg := core.NewRegistry()
	engine := core.New(store, &core.Options{Registry: reg, Logger: logger.NewNopLogger()})
	t.Cleanup(func() { _ = engine.Close() })
	return engine, store, reg.Define("Track", nil)
}

func TestSlowLog(t *testing.T) {
	engine, _, track := newEngine(t)
	buf := new(bytes.Buffer)
	slowLog := middleware.NewSlowLog(0, "") // Threshold 0 to log everything
	slowLog.SetOutput(buf)
	if err := engine.Use(slowLog); err != nil {
		t.Fatal(err)
	}

	if err := engine.Save(context.Background(), track.New("song", "Europa")); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "[SLOW STORE]") || !strings.Contains(out, "op=insert") || !strings.Contains(out, "id=1") {
		t.Errorf("SlowLog should have logged the insert: %s", out)
	}

	slowLog.Threshold = time.Hour
	buf.Reset()
	if err := engine.Save(context.Background(), track.New("song", "Samba Pa Ti")); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("fast operation logged: %s", buf.String())
	}
}

func TestSlowLogFile(t *testing.T) {
	engine, _, track := newEngine(t)
	path := t.TempDir() + "/slow.log"
	slowLog := middleware.NewSlowLog(0, path)
	if err := engine.Use(slowLog); err != nil {
		t.Fatal(err)
	}
	if err := engine.Save(context.Background(), track.New("song", "Europa")); err != nil {
		t.Fatal(err)
	}
	if err := slowLog.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestCircuitBreaker(t *testing.T) {
	engine, store, track := newEngine(t)
	cb := middleware.NewCircuitBreaker(2, 100*time.Millisecond)
	if err := engine.Use(cb); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// missing records do not trip the breaker
	for i := 0; i < 3; i++ {
		if _, err := engine.Find(ctx, track, int64(42)); !errors.Is(err, core.ErrRecordNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if cb.State() != middleware.StateClosed {
		t.Fatalf("breaker opened on not found")
	}

	store.down = true
	for i := 0; i < 2; i++ {
		if err := engine.Save(ctx, track.New("song", "x")); !errors.Is(err, errDown) {
			t.Fatalf("expected store error, got %v", err)
		}
	}
	if cb.State() != middleware.StateOpen {
		t.Fatalf("breaker state = %v, want open", cb.State())
	}

	err := engine.Save(ctx, track.New("song", "x"))
	if !errors.Is(err, middleware.ErrCircuitOpen) || !errors.Is(err, core.ErrPersistenceFailure) {
		t.Fatalf("Expected ErrCircuitOpen as a persistence failure, got %v", err)
	}

	store.down = false
	time.Sleep(150 * time.Millisecond)
	if err := engine.Save(ctx, track.New("song", "probe")); err != nil {
		t.Errorf("Expected success after timeout, got %v", err)
	}
	if cb.State() != middleware.StateClosed {
		t.Errorf("breaker state = %v, want closed", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailure(t *testing.T) {
	engine, store, track := newEngine(t)
	cb := middleware.NewCircuitBreaker(1, 50*time.Millisecond)
	if err := engine.Use(cb); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	store.down = true
	_ = engine.Save(ctx, track.New("song", "x"))
	time.Sleep(80 * time.Millisecond)

	// the probe fails and the breaker opens again
	if err := engine.Save(ctx, track.New("song", "x")); !errors.Is(err, errDown) {
		t.Fatalf("expected the probe to reach the store, got %v", err)
	}
	if cb.State() != middleware.StateOpen {
		t.Errorf("breaker state = %v, want open", cb.State())
	}
}

func TestMemoryCache(t *testing.T) {
	engine, store, track := newEngine(t)
	cache := middleware.NewMemoryCache(time.Minute)
	if err := engine.Use(cache); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	r := track.New("song", "Europa", "track", 7)
	if err := engine.Save(ctx, r); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		found, err := engine.Find(ctx, track, r.ID())
		if err != nil {
			t.Fatal(err)
		}
		if found.Int("track") != 7 {
			t.Errorf("track = %d", found.Int("track"))
		}
	}
	if store.finds != 1 {
		t.Errorf("store finds = %d, want 1 (cache hits)", store.finds)
	}
	if cache.Len() != 1 {
		t.Errorf("cache size = %d", cache.Len())
	}

	r.Set("track", 9)
	if err := engine.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 0 {
		t.Error("update did not evict the cached document")
	}
	found, err := engine.Find(ctx, track, r.ID())
	if err != nil {
		t.Fatal(err)
	}
	if found.Int("track") != 9 || store.finds != 2 {
		t.Errorf("stale read: track=%d finds=%d", found.Int("track"), store.finds)
	}

	// cached results are copies
	found.Set("track", 100)
	again, _ := engine.Find(ctx, track, r.ID())
	if again.Int("track") != 9 {
		t.Error("cached document mutated through a found record")
	}

	if err := engine.Destroy(ctx, found); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Find(ctx, track, r.ID()); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("Find after destroy = %v", err)
	}
}

func TestRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	engine, store, track := newEngine(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := middleware.NewRedisCacheFromClient(client, time.Minute)
	if err := engine.Use(cache); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	r := track.New("song", "Europa", "track", 7)
	if err := engine.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Find(ctx, track, r.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Find(ctx, track, r.ID()); err != nil {
		t.Fatal(err)
	}
	if store.finds != 1 {
		t.Errorf("store finds = %d, want 1", store.finds)
	}

	data, err := mr.Get("jrecord:cache:tracks:1")
	if err != nil {
		t.Fatalf("cached document missing: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(data), &doc); err != nil || doc["song"] != "Europa" {
		t.Errorf("cached document = %s", data)
	}
	if ttl := mr.TTL("jrecord:cache:tracks:1"); ttl != time.Minute {
		t.Errorf("ttl = %v", ttl)
	}

	if err := engine.Destroy(ctx, r); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("jrecord:cache:tracks:1") {
		t.Error("destroy did not evict the cached document")
	}
}

func TestRedisCacheInitFails(t *testing.T) {
	engine, _, _ := newEngine(t)
	cache := middleware.NewRedisCache(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}, time.Minute)
	defer cache.Shutdown()
	if err := engine.Use(cache); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestTracing(t *testing.T) {
	engine, store, track := newEngine(t)
	buf := new(bytes.Buffer)
	l := logger.NewStdLogger()
	l.SetOutput(buf)
	l.SetFormat(logger.LogFormatJSON)

	tracing := middleware.NewTracing()
	tracing.SetLogger(l)
	if err := engine.Use(tracing); err != nil {
		t.Fatal(err)
	}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	if err := engine.Save(ctx, track.New("song", "Europa")); err != nil {
		t.Fatal(err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal JSON output: %v", err)
	}
	if entry["request_id"] != "req-123" || entry["op"] != "insert" || entry["collection"] != "tracks" || entry["level"] != "INFO" {
		t.Errorf("Unexpected trace entry: %v", entry)
	}

	buf.Reset()
	store.down = true
	_ = engine.Save(ctx, track.New("song", "x"))
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("failure not logged as warning: %s", buf.String())
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}

	store := &flakyStore{Store: memory.New()}
	registry := core.NewRegistry()
	engine := core.New(store, &core.Options{Registry: registry, Logger: logger.NewNopLogger(), Observer: metrics})
	if err := engine.Use(metrics); err != nil {
		t.Fatal(err)
	}
	track := registry.Define("Track", nil)
	track.BeforeSave(core.Notify(func(*core.Record) {}))
	ctx := context.Background()

	r := track.New("song", "Europa")
	if err := engine.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	_, _ = engine.Find(ctx, track, int64(99))

	if got := testutil.ToFloat64(metrics.Operations.WithLabelValues("insert", "tracks", "ok")); got != 1 {
		t.Errorf("insert ok = %v", got)
	}
	if got := testutil.ToFloat64(metrics.Operations.WithLabelValues("find", "tracks", "not_found")); got != 1 {
		t.Errorf("find not_found = %v", got)
	}
	if got := testutil.ToFloat64(metrics.Callbacks.WithLabelValues("before_save", "Track", "continue")); got != 1 {
		t.Errorf("before_save callbacks = %v", got)
	}
	if n := testutil.CollectAndCount(metrics.Duration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}

	if _, err := middleware.NewMetrics(reg); err == nil {
		t.Error("expected duplicate registration error")
	}
}
