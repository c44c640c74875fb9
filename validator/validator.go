package validator

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/shrek82/jrecord/core"
)

// ValidationErrors is a map of field names to their validation errors.
type ValidationErrors map[string][]error

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var sb strings.Builder
	for _, field := range fields {
		for _, err := range v[field] {
			if sb.Len() > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", field, err))
		}
	}
	return sb.String()
}

// Rule is the interface for a single validation rule.
type Rule interface {
	Validate(value any) error
	Msg(msg string) Rule
	Optional() Rule
	When(fn func(value any) bool) Rule
}

// FieldSource exposes record fields to the validator. *core.Record satisfies it.
type FieldSource interface {
	Get(name string) (any, bool)
}

// Rules is a map of field names to validation rules.
type Rules map[string][]Rule

// Validate runs every rule against the matching field of src.
// Missing fields are validated as nil.
func (r Rules) Validate(src FieldSource) error {
	if src == nil {
		return nil
	}

	errs := make(ValidationErrors)
	for field, rules := range r {
		val, _ := src.Get(field)
		for _, rule := range rules {
			if err := rule.Validate(val); err != nil {
				errs[field] = append(errs[field], err)
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Callback returns a callback, usually registered as before_save, that fails
// the lifecycle call with the ValidationErrors when any rule does not pass.
func Callback(rules Rules) core.Callback {
	return core.CallbackFunc(func(_ context.Context, rec *core.Record) (core.Result, error) {
		if err := rules.Validate(rec); err != nil {
			return core.Halt, err
		}
		return core.Continue, nil
	})
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Interface, reflect.Ptr, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return rv.IsZero()
}
