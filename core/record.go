package core

import (
	"fmt"

	"github.com/shrek82/jrecord/model"
)

// State is the tri-state lifecycle flag of a record.
type State int

const (
	StateNew State = iota
	StatePersisted
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Record is an instance of a persistence-enabled class.
// A record is owned by its caller; the engine never keeps it past a lifecycle call.
// Operations on one record must not run concurrently.
type Record struct {
	class  *Class
	id     any
	fields *Fields
	state  State
}

// New creates a record of class c in the new state from name/value pairs.
func (c *Class) New(pairs ...any) *Record {
	return &Record{class: c, fields: NewFields(pairs...)}
}

// NewFrom creates a new record whose fields are taken from a struct value.
func (c *Class) NewFrom(value any) (*Record, error) {
	cols, err := model.Columns(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	r := &Record{class: c, fields: &Fields{}}
	for _, col := range cols {
		r.fields.Set(col.Name, col.Value)
	}
	return r, nil
}

// Class returns the record's class.
func (r *Record) Class() *Class { return r.class }

// ID returns the store identifier, nil until the record is persisted.
func (r *Record) ID() any { return r.id }

// State returns the lifecycle flag.
func (r *Record) State() State { return r.state }

func (r *Record) IsNew() bool       { return r.state == StateNew }
func (r *Record) IsPersisted() bool { return r.state == StatePersisted }
func (r *Record) IsDestroyed() bool { return r.state == StateDestroyed }

// Get returns the value of a field.
func (r *Record) Get(name string) (any, bool) { return r.fields.Get(name) }

// Has reports whether the field is set.
func (r *Record) Has(name string) bool {
	_, ok := r.fields.Get(name)
	return ok
}

// Set assigns a field and returns r for chaining.
func (r *Record) Set(name string, value any) *Record {
	if r.fields == nil {
		r.fields = &Fields{}
	}
	r.fields.Set(name, value)
	return r
}

// Int returns a field as int64, or 0 when missing or not numeric.
func (r *Record) Int(name string) int64 {
	v, _ := r.fields.Get(name)
	i, _ := toInt(v)
	return i
}

// Float returns a field as float64, or 0 when missing or not numeric.
func (r *Record) Float(name string) float64 {
	v, _ := r.fields.Get(name)
	fl, _ := toFloat(v)
	return fl
}

// String returns a field formatted as a string, or "" when missing.
func (r *Record) String(name string) string {
	v, ok := r.fields.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Fields returns a copy of the record's fields.
func (r *Record) Fields() *Fields { return r.fields.Clone() }

// Bind copies the record's fields into the struct pointed to by dst.
func (r *Record) Bind(dst any) error {
	return model.Bind(r.fields.Get, dst)
}
