package core

import (
	"errors"
	"fmt"
)

var (
	// ErrHalted is returned when a before_* callback signals Halt and the pending operation is aborted.
	ErrHalted = errors.New("halted by callback")
	// ErrInvalidStateTransition is returned when a lifecycle call is not valid for the record's current state.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrPersistenceFailure is returned when the store rejects an insert, update or delete.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrRecordNotFound is returned when the store holds no document for the requested id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidRecord is returned when a record cannot be handled at all (nil record, record without class).
	ErrInvalidRecord = errors.New("invalid record")
	// ErrDuplicateKey is returned by stores when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key")
)

// HaltError reports which before_* entry stopped a lifecycle call.
// Index is the entry's position in the resolved chain.
type HaltError struct {
	Event Event
	Phase Phase
	Index int
	Name  string
}

func (e *HaltError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s_%s entry %d (%s)", ErrHalted, e.Phase, e.Event, e.Index, e.Name)
	}
	return fmt.Sprintf("%s: %s_%s entry %d", ErrHalted, e.Phase, e.Event, e.Index)
}

func (e *HaltError) Is(target error) bool { return target == ErrHalted }

// StateError reports a lifecycle call made on a record in the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: cannot %s a %s record", ErrInvalidStateTransition, e.Op, e.State)
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidStateTransition }

// PersistenceError wraps a failed store call.
type PersistenceError struct {
	Op         OpKind
	Collection string
	ID         any
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s: %s %s/%v: %v", ErrPersistenceFailure, e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrPersistenceFailure, e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistenceFailure }

func (e *PersistenceError) Unwrap() error { return e.Err }

// CallbackError wraps an error returned by a callback entry.
// The rest of the chain, and every later chain of the same call, is skipped.
type CallbackError struct {
	Event Event
	Phase Phase
	Index int
	Name  string
	Err   error
}

func (e *CallbackError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("callback %s_%s entry %d (%s): %v", e.Phase, e.Event, e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("callback %s_%s entry %d: %v", e.Phase, e.Event, e.Index, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
