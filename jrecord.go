package jrecord

import (
	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/validator"
)

// Re-export core types and functions
type (
	Engine          = core.Engine
	Options         = core.Options
	Registry        = core.Registry
	Class           = core.Class
	Record          = core.Record
	Fields          = core.Fields
	Store           = core.Store
	Callback        = core.Callback
	CallbackFunc    = core.CallbackFunc
	Result          = core.Result
	Event           = core.Event
	Phase           = core.Phase
	State           = core.State
	Plan            = core.Plan
	Trace           = core.Trace
	Observer        = core.Observer
	Recorder        = core.Recorder
	StoreMiddleware = core.StoreMiddleware

	HaltError        = core.HaltError
	StateError       = core.StateError
	PersistenceError = core.PersistenceError
	CallbackError    = core.CallbackError
)

const (
	Continue = core.Continue
	Halt     = core.Halt

	Before = core.Before
	After  = core.After

	EventCreate  = core.EventCreate
	EventUpdate  = core.EventUpdate
	EventSave    = core.EventSave
	EventDestroy = core.EventDestroy
)

var (
	New         = core.New
	NewRegistry = core.NewRegistry
	NewFields   = core.NewFields
	Notify      = core.Notify
	Gate        = core.Gate
	Observers   = core.Observers

	ErrHalted                 = core.ErrHalted
	ErrInvalidStateTransition = core.ErrInvalidStateTransition
	ErrPersistenceFailure     = core.ErrPersistenceFailure
	ErrRecordNotFound         = core.ErrRecordNotFound
	ErrInvalidRecord          = core.ErrInvalidRecord
	ErrDuplicateKey           = core.ErrDuplicateKey
)

// Re-export validator types and functions
type (
	Rules            = validator.Rules
	Rule             = validator.Rule
	ValidationErrors = validator.ValidationErrors
)

var (
	Validates = validator.Callback

	Required = validator.Required
	Email    = validator.Email
	Numeric  = validator.Numeric
	MinLen   = validator.MinLen
	MaxLen   = validator.MaxLen
	Range    = validator.Range
	In       = validator.In
	Regexp   = validator.Regexp
)
