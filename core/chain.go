package core

import (
	"context"
	"sync"
	"time"

	"github.com/shrek82/jrecord/logger"
)

// Trace describes one callback invocation.
type Trace struct {
	Event    Event
	Phase    Phase
	Index    int
	Name     string
	Class    string
	Result   Result
	Duration time.Duration
	Err      error
}

// Label returns the chain name of the traced entry, e.g. "after_create".
func (t Trace) Label() string { return Label(t.Event, t.Phase) }

// Observer receives a Trace after every callback invocation.
type Observer interface {
	Observe(t Trace)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t Trace)

func (f ObserverFunc) Observe(t Trace) { f(t) }

// Observers fans every trace out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) Observe(t Trace) {
	for _, o := range m {
		o.Observe(t)
	}
}

// Recorder is an Observer that keeps every trace it sees.
type Recorder struct {
	mu     sync.Mutex
	traces []Trace
}

func (rec *Recorder) Observe(t Trace) {
	rec.mu.Lock()
	rec.traces = append(rec.traces, t)
	rec.mu.Unlock()
}

// Traces returns a copy of the recorded traces.
func (rec *Recorder) Traces() []Trace {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Trace(nil), rec.traces...)
}

// Chains returns the chain labels in the order they were entered,
// collapsing consecutive entries of the same chain.
func (rec *Recorder) Chains() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var labels []string
	for _, t := range rec.traces {
		l := t.Label()
		if len(labels) == 0 || labels[len(labels)-1] != l {
			labels = append(labels, l)
		}
	}
	return labels
}

// Reset drops all recorded traces.
func (rec *Recorder) Reset() {
	rec.mu.Lock()
	rec.traces = nil
	rec.mu.Unlock()
}

// Executor runs resolved chains against a record. It performs no I/O itself.
type Executor struct {
	Logger   logger.Logger
	Observer Observer
}

// Run invokes every entry of chain in order.
//
// In the before phase a Halt stops the chain and Run returns a *HaltError.
// In the after phase Halt is ignored. A callback error stops the chain and is
// returned as a *CallbackError.
func (x *Executor) Run(ctx context.Context, r *Record, chain Chain) error {
	label := Label(chain.Event, chain.Phase)
	for pos, e := range chain.Entries {
		start := time.Now()
		res, err := e.Callback.Call(ctx, r)
		d := time.Since(start)

		if x.Observer != nil {
			x.Observer.Observe(Trace{
				Event:    chain.Event,
				Phase:    chain.Phase,
				Index:    e.Index,
				Name:     e.Name,
				Class:    e.Class,
				Result:   res,
				Duration: d,
				Err:      err,
			})
		}

		if err != nil {
			x.log().Hook(label, e.Name, d, "error")
			return &CallbackError{Event: chain.Event, Phase: chain.Phase, Index: pos, Name: e.Name, Err: err}
		}
		x.log().Hook(label, e.Name, d, res.String())

		if res == Halt {
			if chain.Phase == Before {
				return &HaltError{Event: chain.Event, Phase: chain.Phase, Index: pos, Name: e.Name}
			}
			x.log().Debug("%s entry %d returned halt, ignored in after phase", label, pos)
		}
	}
	return nil
}

func (x *Executor) log() logger.Logger {
	if x.Logger == nil {
		return nopLogger
	}
	return x.Logger
}

var nopLogger = logger.NewNopLogger()
