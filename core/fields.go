package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Fields is an ordered mapping of field name to value.
// The zero value is ready to use.
type Fields struct {
	names  []string
	values map[string]any
}

// NewFields builds Fields from alternating name/value pairs.
// A trailing name without value is set to nil.
func NewFields(pairs ...any) *Fields {
	f := &Fields{}
	for i := 0; i < len(pairs); i += 2 {
		name := fmt.Sprint(pairs[i])
		var v any
		if i+1 < len(pairs) {
			v = pairs[i+1]
		}
		f.Set(name, v)
	}
	return f
}

// Set assigns value to name, keeping the original position of existing names.
func (f *Fields) Set(name string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

// Get returns the value for name.
func (f *Fields) Get(name string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Delete removes name.
func (f *Fields) Delete(name string) {
	if f == nil {
		return
	}
	if _, ok := f.values[name]; !ok {
		return
	}
	delete(f.values, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i:i], f.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Names returns the field names in insertion order.
func (f *Fields) Names() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.names...)
}

// Each calls fn for every field in order.
func (f *Fields) Each(fn func(name string, value any)) {
	if f == nil {
		return
	}
	for _, n := range f.names {
		fn(n, f.values[n])
	}
}

// Map returns an unordered copy of the fields.
func (f *Fields) Map() map[string]any {
	m := make(map[string]any, f.Len())
	f.Each(func(name string, value any) { m[name] = value })
	return m
}

// Clone returns a shallow copy of f.
func (f *Fields) Clone() *Fields {
	c := &Fields{}
	f.Each(c.Set)
	return c
}

// MarshalJSON encodes the fields as a JSON object preserving order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range f.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.values[n])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", n, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
// Integral numbers decode to int64, others to float64.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected JSON object")
	}
	*f = Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		f.Set(name, normalizeNumber(raw))
	}
	_, err = dec.Token()
	return err
}

func normalizeNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if fl, err := t.Float64(); err == nil {
			return fl
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeNumber(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumber(t[k])
		}
		return t
	}
	return v
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float32:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		fl, err := t.Float64()
		return fl, err == nil
	case string:
		fl, err := strconv.ParseFloat(t, 64)
		return fl, err == nil
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
