package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	// Drivers for the registered dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/dialect"
	"github.com/shrek82/jrecord/logger"
	"github.com/shrek82/jrecord/pool"
)

// Options defines the configuration for the store connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logger.Logger
}

// Store keeps record documents in SQL tables, one table per collection.
type Store struct {
	pool    pool.Pool
	dialect dialect.Dialect
	logger  logger.Logger
	tables  sync.Map // collection -> struct{}, tables already ensured
}

// Open initializes a new Store with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*Store, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %s", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	p := pool.NewStdPool(sqlDB)
	var l logger.Logger
	if opts != nil {
		(&pool.Options{
			MaxOpenConns:    opts.MaxOpenConns,
			MaxIdleConns:    opts.MaxIdleConns,
			ConnMaxLifetime: opts.ConnMaxLifetime,
		}).Apply(p)
		l = opts.Logger
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.PingContext(ctx); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return newStore(p, d, l), nil
}

// New wraps an already opened *sql.DB using the dialect registered for driver.
func New(db *sql.DB, driver string, l logger.Logger) (*Store, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %s", driver)
	}
	return newStore(pool.NewStdPool(db), d, l), nil
}

func newStore(p pool.Pool, d dialect.Dialect, l logger.Logger) *Store {
	if l == nil {
		l = logger.NewStdLogger()
	}
	return &Store{pool: p, dialect: d, logger: l}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.pool.Close()
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(l logger.Logger) {
	s.logger = l
}

// Dialect returns the dialect in use.
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

func (s *Store) exec(ctx context.Context, sqlStr string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.pool.ExecContext(ctx, sqlStr, args...)
	s.logger.SQL(sqlStr, time.Since(start), args...)
	return res, s.wrap(err)
}

func (s *Store) queryRow(ctx context.Context, sqlStr string, args ...any) *sql.Row {
	start := time.Now()
	row := s.pool.QueryRowContext(ctx, sqlStr, args...)
	s.logger.SQL(sqlStr, time.Since(start), args...)
	return row
}

func (s *Store) wrap(err error) error {
	if err == nil {
		return nil
	}
	if s.dialect.IsDuplicateKey(err) {
		return fmt.Errorf("%w: %v", core.ErrDuplicateKey, err)
	}
	return err
}

// ensure creates the collection table once per store.
func (s *Store) ensure(ctx context.Context, collection string) error {
	if _, ok := s.tables.Load(collection); ok {
		return nil
	}
	if err := dialect.ValidTable(collection); err != nil {
		return err
	}
	if _, err := s.exec(ctx, s.dialect.CreateCollectionSQL(collection)); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	s.tables.Store(collection, struct{}{})
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, fields *core.Fields) (any, error) {
	if err := s.ensure(ctx, collection); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	sqlStr := s.dialect.InsertSQL(collection)
	if s.dialect.Returning() {
		var id int64
		if err := s.queryRow(ctx, sqlStr, string(doc)).Scan(&id); err != nil {
			return nil, s.wrap(err)
		}
		return id, nil
	}

	res, err := s.exec(ctx, sqlStr, string(doc))
	if err != nil {
		return nil, err
	}
	return res.LastInsertId()
}

// Update rewrites the document. MySQL DSNs should set clientFoundRows=true so
// that rewriting an unchanged document is not reported as a missing row.
func (s *Store) Update(ctx context.Context, collection string, id any, fields *core.Fields) error {
	if err := s.ensure(ctx, collection); err != nil {
		return err
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	res, err := s.exec(ctx, s.dialect.UpdateSQL(collection), string(doc), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Store) Delete(ctx context.Context, collection string, id any) error {
	if err := s.ensure(ctx, collection); err != nil {
		return err
	}
	res, err := s.exec(ctx, s.dialect.DeleteSQL(collection), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Store) Find(ctx context.Context, collection string, id any) (*core.Fields, error) {
	if err := s.ensure(ctx, collection); err != nil {
		return nil, err
	}
	var doc string
	if err := s.queryRow(ctx, s.dialect.FindSQL(collection), id).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrRecordNotFound
		}
		return nil, err
	}
	fields := &core.Fields{}
	if err := json.Unmarshal([]byte(doc), fields); err != nil {
		return nil, fmt.Errorf("decode document %s/%v: %w", collection, id, err)
	}
	return fields, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}
