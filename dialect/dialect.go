package dialect

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Dialect represents the database-specific SQL used to keep record documents.
// A collection is a table with an auto-increment "id" key and a "doc" text
// column holding the JSON document.
type Dialect interface {
	// Name returns the driver name the dialect is registered under
	Name() string
	// Quote wraps a name (table or column) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the bind parameter for the 1-based index
	Placeholder(index int) string
	// CreateCollectionSQL generates the CREATE TABLE IF NOT EXISTS statement
	CreateCollectionSQL(table string) string
	// InsertSQL generates the INSERT statement taking the document as its only argument
	InsertSQL(table string) string
	// Returning reports whether InsertSQL yields the new id as a row instead of LastInsertId
	Returning() bool
	// UpdateSQL generates the UPDATE statement taking (doc, id)
	UpdateSQL(table string) string
	// DeleteSQL generates the DELETE statement taking (id)
	DeleteSQL(table string) string
	// FindSQL generates the SELECT statement taking (id) and returning doc
	FindSQL(table string) string
	// IsDuplicateKey reports whether err is a unique constraint violation
	IsDuplicateKey(err error) bool
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// ErrInvalidTable is returned for collection names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid collection name")

// ValidTable checks that a collection name can be used as a table name.
func ValidTable(name string) error {
	if name == "" {
		return ErrInvalidTable
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidTable, name)
		}
	}
	return nil
}

// base holds the statements shared by every dialect.
type base struct {
	quote       func(string) string
	placeholder func(int) string
}

func (b base) Quote(name string) string     { return b.quote(name) }
func (b base) Placeholder(index int) string { return b.placeholder(index) }

func (b base) UpdateSQL(table string) string {
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		b.quote(table), b.quote("doc"), b.placeholder(1), b.quote("id"), b.placeholder(2))
}

func (b base) DeleteSQL(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", b.quote(table), b.quote("id"), b.placeholder(1))
}

func (b base) FindSQL(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", b.quote("doc"), b.quote(table), b.quote("id"), b.placeholder(1))
}

func backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

func question(int) string { return "?" }
