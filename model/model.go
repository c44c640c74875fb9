package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Model represents the record mapping of a struct type
type Model struct {
	TypeName string
	Fields   []*Field
	FieldMap map[string]*Field
}

var modelCache sync.Map

// GetModel returns the model metadata for a given value
func GetModel(value any) (*Model, error) {
	if value == nil {
		return nil, fmt.Errorf("value is nil")
	}

	typ := reflect.TypeOf(value)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a struct or pointer to struct, got %s", typ.Kind())
	}

	if cached, ok := modelCache.Load(typ); ok {
		return cached.(*Model), nil
	}

	m := parseModel(typ)
	modelCache.Store(typ, m)
	return m, nil
}

func parseModel(typ reflect.Type) *Model {
	m := &Model{
		TypeName: typ.Name(),
		FieldMap: make(map[string]*Field),
	}

	for i := 0; i < typ.NumField(); i++ {
		structField := typ.Field(i)
		if !structField.IsExported() {
			continue
		}

		tag := ParseTag(structField.Tag.Get("jrecord"))
		if tag.Skip {
			continue
		}

		column := tag.Name
		if column == "" {
			column = camelToSnake(structField.Name)
		}

		field := &Field{
			Name:      structField.Name,
			Column:    column,
			Type:      structField.Type,
			Index:     i,
			OmitEmpty: tag.OmitEmpty,
		}

		m.Fields = append(m.Fields, field)
		m.FieldMap[column] = field
	}

	return m
}

// Columns converts a struct into ordered record fields.
func Columns(value any) ([]Column, error) {
	m, err := GetModel(value)
	if err != nil {
		return nil, err
	}
	val := reflect.ValueOf(value)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("value is a nil pointer")
		}
		val = val.Elem()
	}

	cols := make([]Column, 0, len(m.Fields))
	for _, field := range m.Fields {
		fVal := val.Field(field.Index)
		if field.OmitEmpty && fVal.IsZero() {
			continue
		}
		cols = append(cols, Column{Name: field.Column, Value: fVal.Interface()})
	}
	return cols, nil
}

// Bind copies record values returned by get into the struct pointed to by dst.
// Missing fields leave the struct field untouched; numeric values are converted
// between numeric kinds.
func Bind(get func(name string) (any, bool), dst any) error {
	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("dst must be a non-nil pointer to a struct")
	}
	m, err := GetModel(dst)
	if err != nil {
		return err
	}
	val = val.Elem()

	for _, field := range m.Fields {
		raw, ok := get(field.Column)
		if !ok {
			continue
		}
		fVal := val.Field(field.Index)
		if raw == nil {
			fVal.Set(reflect.Zero(field.Type))
			continue
		}
		rv := reflect.ValueOf(raw)
		switch {
		case rv.Type().AssignableTo(field.Type):
			fVal.Set(rv)
		case isNumeric(rv.Kind()) && isNumeric(field.Type.Kind()):
			fVal.Set(rv.Convert(field.Type))
		default:
			return fmt.Errorf("field %s: cannot assign %T to %s", field.Column, raw, field.Type)
		}
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// CollectionName derives a store collection from a class name: "TrackList" -> "track_lists".
func CollectionName(className string) string {
	return pluralize(camelToSnake(className))
}

func pluralize(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
}

func camelToSnake(s string) string {
	if s == "ID" {
		return "id"
	}
	var res []rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				res = append(res, '_')
			}
			res = append(res, unicode.ToLower(r))
		} else {
			res = append(res, r)
		}
	}
	return string(res)
}
