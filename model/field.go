package model

import (
	"reflect"
)

// Field maps a struct field to a record field
type Field struct {
	Name      string       // Struct field name
	Column    string       // Record field name
	Type      reflect.Type // Field type
	Index     int          // Struct field index for fast access
	OmitEmpty bool         // Skip zero values when converting to a record
}

// Column is one record field produced from a struct
type Column struct {
	Name  string
	Value any
}
