package core

import "context"

// Event names a lifecycle transition that callbacks can attach to.
type Event string

const (
	EventCreate  Event = "create"
	EventUpdate  Event = "update"
	EventSave    Event = "save"
	EventDestroy Event = "destroy"
)

// Phase places a callback relative to the store write.
type Phase string

const (
	Before Phase = "before"
	After  Phase = "after"
)

// Label returns the conventional chain name, e.g. "before_save".
func Label(event Event, phase Phase) string {
	return string(phase) + "_" + string(event)
}

// Result is what a callback tells the executor to do next.
// Halt is only honored in the before phase.
type Result int

const (
	Continue Result = iota
	Halt
)

func (r Result) String() string {
	if r == Halt {
		return "halt"
	}
	return "continue"
}

// Callback is a unit of caller-registered behavior.
// A non-nil error aborts the chain and every chain after it.
type Callback interface {
	Call(ctx context.Context, r *Record) (Result, error)
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(ctx context.Context, r *Record) (Result, error)

func (f CallbackFunc) Call(ctx context.Context, r *Record) (Result, error) {
	return f(ctx, r)
}

// Notify wraps fn as a callback that always continues.
func Notify(fn func(r *Record)) Callback {
	return CallbackFunc(func(_ context.Context, r *Record) (Result, error) {
		fn(r)
		return Continue, nil
	})
}

// Gate wraps fn as a callback that halts when fn returns false.
func Gate(fn func(r *Record) bool) Callback {
	return CallbackFunc(func(_ context.Context, r *Record) (Result, error) {
		if fn(r) {
			return Continue, nil
		}
		return Halt, nil
	})
}

// Entry is one registered callback.
type Entry struct {
	Event    Event
	Phase    Phase
	Index    int    // declaration order within the declaring class
	Name     string // optional label used in traces and errors
	Class    string // declaring class
	Callback Callback
}

// Chain is the resolved, ordered sequence of entries for one (event, phase).
type Chain struct {
	Event   Event
	Phase   Phase
	Entries []Entry
}

// Len returns the number of entries in the chain.
func (c Chain) Len() int { return len(c.Entries) }
