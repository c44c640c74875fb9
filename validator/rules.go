package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	numericRegex = regexp.MustCompile(`^[0-9]+$`)
)

// rule is the shared Rule implementation; check reports the default error.
type rule struct {
	msg      string
	optional bool
	when     func(value any) bool
	check    func(value any) error
}

func (r *rule) Validate(v any) error {
	if r.when != nil && !r.when(v) {
		return nil
	}
	if r.optional && isZeroValue(v) {
		return nil
	}
	if err := r.check(v); err != nil {
		if r.msg != "" {
			return fmt.Errorf("%s", r.msg)
		}
		return err
	}
	return nil
}

func (r *rule) Msg(msg string) Rule              { nr := *r; nr.msg = msg; return &nr }
func (r *rule) Optional() Rule                   { nr := *r; nr.optional = true; return &nr }
func (r *rule) When(fn func(value any) bool) Rule { nr := *r; nr.when = fn; return &nr }

func newRule(check func(value any) error) Rule {
	return &rule{check: check}
}

// Required fails on nil and zero values.
var Required = newRule(func(v any) error {
	if isZeroValue(v) {
		return fmt.Errorf("is required")
	}
	return nil
})

// Email checks a lower-case address shape.
var Email = newRule(func(v any) error {
	s, ok := v.(string)
	if !ok || !emailRegex.MatchString(s) {
		return fmt.Errorf("must be a valid email")
	}
	return nil
})

// Numeric accepts integers and digit-only strings.
var Numeric = newRule(func(v any) error {
	switch t := v.(type) {
	case string:
		if numericRegex.MatchString(t) {
			return nil
		}
	default:
		if _, ok := toFloat(v); ok {
			return nil
		}
	}
	return fmt.Errorf("must be numeric")
})

// MinLen checks the length of strings.
func MinLen(min int) Rule {
	return newRule(func(v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if len(s) < min {
			return fmt.Errorf("length must be at least %d", min)
		}
		return nil
	})
}

// MaxLen checks the length of strings.
func MaxLen(max int) Rule {
	return newRule(func(v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if len(s) > max {
			return fmt.Errorf("length must be at most %d", max)
		}
		return nil
	})
}

// Range checks numeric values, inclusive.
func Range(min, max float64) Rule {
	return newRule(func(v any) error {
		val, ok := toFloat(v)
		if !ok || val < min || val > max {
			return fmt.Errorf("value must be between %v and %v", min, max)
		}
		return nil
	})
}

// In checks membership; numbers compare by value regardless of type.
func In(values ...any) Rule {
	return newRule(func(v any) error {
		for _, allowed := range values {
			if reflect.DeepEqual(v, allowed) {
				return nil
			}
			a, okA := toFloat(allowed)
			b, okB := toFloat(v)
			if okA && okB && a == b {
				return nil
			}
		}
		return fmt.Errorf("value must be one of %v", values)
	})
}

// Regexp checks strings against pattern. It panics if pattern does not compile.
func Regexp(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return newRule(func(v any) error {
		s, ok := v.(string)
		if !ok || !re.MatchString(s) {
			return fmt.Errorf("must match %s", pattern)
		}
		return nil
	})
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		return f, err == nil
	}
	return 0, false
}
