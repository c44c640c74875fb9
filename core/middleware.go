package core

import (
	"context"
)

// Component is the base interface for all engine components/middleware.
type Component interface {
	Name() string
	Init(e *Engine) error
	Shutdown() error
}

// OpKind is the store call an Operation performs.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
	OpFind   OpKind = "find"
)

// Operation is one store call travelling through the middleware chain.
type Operation struct {
	Kind       OpKind
	Collection string
	ID         any
	Fields     *Fields
}

// OpResult is the outcome of an Operation.
// ID is set by inserts, Fields by finds.
type OpResult struct {
	ID     any
	Fields *Fields
}

// OpFunc is the function type for the next step in the middleware chain.
type OpFunc func(ctx context.Context, op *Operation) (*OpResult, error)

// StoreMiddleware is the interface for store call interceptors.
type StoreMiddleware interface {
	Component
	Process(ctx context.Context, op *Operation, next OpFunc) (*OpResult, error)
}

// storeCall performs op against the store itself.
func storeCall(s Store) OpFunc {
	return func(ctx context.Context, op *Operation) (*OpResult, error) {
		switch op.Kind {
		case OpInsert:
			id, err := s.Insert(ctx, op.Collection, op.Fields)
			return &OpResult{ID: id}, err
		case OpUpdate:
			return &OpResult{ID: op.ID}, s.Update(ctx, op.Collection, op.ID, op.Fields)
		case OpDelete:
			return &OpResult{ID: op.ID}, s.Delete(ctx, op.Collection, op.ID)
		case OpFind:
			f, err := s.Find(ctx, op.Collection, op.ID)
			return &OpResult{ID: op.ID, Fields: f}, err
		}
		return &OpResult{}, ErrInvalidRecord
	}
}

// chainMiddleware wraps final so that mws[0] runs outermost.
func chainMiddleware(mws []StoreMiddleware, final OpFunc) OpFunc {
	h := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], h
		h = func(ctx context.Context, op *Operation) (*OpResult, error) {
			return mw.Process(ctx, op, next)
		}
	}
	return h
}
