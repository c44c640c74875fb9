package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shrek82/jrecord/logger"
)

// Options configures an Engine. Nil fields get defaults.
type Options struct {
	Registry *Registry
	Logger   logger.Logger
	Observer Observer
}

// Engine runs the save and destroy lifecycles of records against a store.
// It is the main entry point of the package.
type Engine struct {
	store       Store
	registry    *Registry
	logger      logger.Logger
	observer    Observer
	mu          sync.RWMutex
	middlewares []StoreMiddleware
}

// New creates an Engine writing through store.
func New(store Store, opts *Options) *Engine {
	e := &Engine{
		store:    store,
		registry: DefaultRegistry,
		logger:   logger.NewStdLogger(),
	}
	if opts != nil {
		if opts.Registry != nil {
			e.registry = opts.Registry
		}
		if opts.Logger != nil {
			e.logger = opts.Logger
		}
		e.observer = opts.Observer
	}
	return e
}

// Registry returns the registry used to define classes for this engine.
func (e *Engine) Registry() *Registry { return e.registry }

// Logger returns the engine logger.
func (e *Engine) Logger() logger.Logger { return e.logger }

// SetLogger sets a custom logger for the engine.
func (e *Engine) SetLogger(l logger.Logger) { e.logger = l }

// Store returns the underlying store.
func (e *Engine) Store() Store { return e.store }

// Use installs store middleware; the first installed runs outermost.
func (e *Engine) Use(mws ...StoreMiddleware) error {
	for _, mw := range mws {
		if err := mw.Init(e); err != nil {
			return fmt.Errorf("init middleware %s: %w", mw.Name(), err)
		}
		e.mu.Lock()
		e.middlewares = append(e.middlewares, mw)
		e.mu.Unlock()
	}
	return nil
}

// Close shuts down middleware in reverse order and closes the store when it is an io.Closer.
func (e *Engine) Close() error {
	e.mu.Lock()
	mws := e.middlewares
	e.middlewares = nil
	e.mu.Unlock()

	var errs []error
	for i := len(mws) - 1; i >= 0; i-- {
		if err := mws[i].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown middleware %s: %w", mws[i].Name(), err))
		}
	}
	if c, ok := e.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) executor() *Executor {
	return &Executor{Logger: e.logger, Observer: e.observer}
}

func (e *Engine) dispatch(ctx context.Context, op *Operation) (*OpResult, error) {
	e.mu.RLock()
	mws := e.middlewares
	e.mu.RUnlock()
	return chainMiddleware(mws, storeCall(e.store))(ctx, op)
}

// Save persists r, running before_save, before_create or before_update, the
// store write, after_create or after_update, and after_save in that order.
//
// A halt in a before chain returns a *HaltError and issues no write. Mutations
// made by chains that already ran are kept. A failed write returns a
// *PersistenceError and runs no after chain.
func (e *Engine) Save(ctx context.Context, r *Record) error {
	if r == nil || r.class == nil {
		return ErrInvalidRecord
	}
	if r.IsDestroyed() {
		return &StateError{Op: "save", State: r.state}
	}

	x := e.executor()
	plan := PlanSave(r)
	class := r.class
	collection := class.Collection()

	for _, ev := range plan.Before() {
		if err := x.Run(ctx, r, class.Resolve(ev, Before)); err != nil {
			e.logAbort("save", class, err)
			return err
		}
	}

	op := &Operation{Kind: plan.Write, Collection: collection, Fields: r.fields.Clone()}
	if plan.Write == OpUpdate {
		op.ID = r.id
	}
	res, err := e.dispatch(ctx, op)
	if err != nil {
		e.logger.Error("%s %s/%v failed: %v", plan.Write, collection, op.ID, err)
		return &PersistenceError{Op: plan.Write, Collection: collection, ID: op.ID, Err: err}
	}
	if plan.Write == OpInsert {
		r.id = res.ID
		r.state = StatePersisted
	}
	e.logger.Debug("%s %s/%v", plan.Write, collection, r.id)

	for _, ev := range plan.After() {
		if err := x.Run(ctx, r, class.Resolve(ev, After)); err != nil {
			e.logAbort("save", class, err)
			return err
		}
	}
	return nil
}

// Destroy deletes a persisted record, running before_destroy, the store
// delete and after_destroy. Records that are not persisted are rejected with
// a *StateError before any callback runs.
func (e *Engine) Destroy(ctx context.Context, r *Record) error {
	if r == nil || r.class == nil {
		return ErrInvalidRecord
	}
	if !r.IsPersisted() {
		return &StateError{Op: "destroy", State: r.state}
	}

	x := e.executor()
	plan := PlanDestroy()
	class := r.class
	collection := class.Collection()

	for _, ev := range plan.Before() {
		if err := x.Run(ctx, r, class.Resolve(ev, Before)); err != nil {
			e.logAbort("destroy", class, err)
			return err
		}
	}

	if _, err := e.dispatch(ctx, &Operation{Kind: OpDelete, Collection: collection, ID: r.id}); err != nil {
		e.logger.Error("delete %s/%v failed: %v", collection, r.id, err)
		return &PersistenceError{Op: OpDelete, Collection: collection, ID: r.id, Err: err}
	}
	r.state = StateDestroyed
	e.logger.Debug("delete %s/%v", collection, r.id)

	for _, ev := range plan.After() {
		if err := x.Run(ctx, r, class.Resolve(ev, After)); err != nil {
			e.logAbort("destroy", class, err)
			return err
		}
	}
	return nil
}

// Find loads the record identified by id from the class collection.
// The returned record is persisted; no callbacks run.
func (e *Engine) Find(ctx context.Context, class *Class, id any) (*Record, error) {
	if class == nil {
		return nil, ErrInvalidRecord
	}
	collection := class.Collection()
	res, err := e.dispatch(ctx, &Operation{Kind: OpFind, Collection: collection, ID: id})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: OpFind, Collection: collection, ID: id, Err: err}
	}
	if res == nil || res.Fields == nil {
		return nil, ErrRecordNotFound
	}
	return &Record{class: class, id: id, fields: res.Fields.Clone(), state: StatePersisted}, nil
}

func (e *Engine) logAbort(op string, class *Class, err error) {
	var halt *HaltError
	if errors.As(err, &halt) {
		e.logger.Info("%s %s aborted: %v", op, class.Name(), err)
		return
	}
	e.logger.Warn("%s %s aborted: %v", op, class.Name(), err)
}
