package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/logger"
	"github.com/shrek82/jrecord/middleware"
	"github.com/shrek82/jrecord/store/memory"
	"github.com/shrek82/jrecord/store/redisstore"
	"github.com/shrek82/jrecord/store/sqlstore"
)

// app is everything one command needs: the engine, the demo classes and their journal.
type app struct {
	engine  *core.Engine
	track1  *core.Class
	journal *journal
	metrics *prometheus.Registry
	traces  *core.Recorder
}

func newLogger(cfg logConfig, w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l := logger.NewStdLogger()
	l.SetOutput(w)
	l.SetLevel(level)
	switch cfg.Format {
	case "", "text":
		l.SetFormat(logger.LogFormatText)
	case "json":
		l.SetFormat(logger.LogFormatJSON)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return l, nil
}

func openStore(cfg config, l logger.Logger) (core.Store, error) {
	switch cfg.Store {
	case "memory":
		return memory.New(), nil
	case "sqlite3":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		opts := &sqlstore.Options{MaxIdleConns: cfg.Pool.MaxIdle, ConnMaxLifetime: cfg.Pool.MaxLifetime, Logger: l}
		// a :memory: database lives in a single connection
		opts.MaxOpenConns = 1
		return sqlstore.Open(cfg.Store, dsn, opts)
	case "mysql", "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("a dsn is required for %s", cfg.Store)
		}
		return sqlstore.Open(cfg.Store, cfg.DSN, &sqlstore.Options{
			MaxOpenConns:    cfg.Pool.MaxOpen,
			MaxIdleConns:    cfg.Pool.MaxIdle,
			ConnMaxLifetime: cfg.Pool.MaxLifetime,
			Logger:          l,
		})
	case "redis":
		return redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Redis.TTL),
		), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// newApp opens the store and installs the configured middleware, outermost first:
// metrics, tracing, slow log, circuit breaker, cache.
func newApp(cfg config, logOut io.Writer) (*app, error) {
	l, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{journal: &journal{}, metrics: prometheus.NewRegistry(), traces: &core.Recorder{}}
	metrics, err := middleware.NewMetrics(a.metrics)
	if err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	_, a.track1 = defineTracks(reg, a.journal)
	a.engine = core.New(store, &core.Options{
		Registry: reg,
		Logger:   l,
		Observer: core.Observers(a.traces, metrics),
	})

	mws := []core.StoreMiddleware{metrics, middleware.NewTracing()}
	if cfg.Slow > 0 {
		mws = append(mws, middleware.NewSlowLog(cfg.Slow, ""))
	}
	if cfg.Breaker.Threshold > 0 {
		mws = append(mws, middleware.NewCircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.Reset))
	}
	switch cfg.Cache.Kind {
	case "":
	case "memory":
		mws = append(mws, middleware.NewMemoryCache(cfg.Cache.TTL))
	case "redis":
		mws = append(mws, middleware.NewRedisCache(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Cache.TTL))
	default:
		_ = a.engine.Close()
		return nil, fmt.Errorf("unknown cache %q", cfg.Cache.Kind)
	}
	if err := a.engine.Use(mws...); err != nil {
		_ = a.engine.Close()
		return nil, err
	}
	return a, nil
}
