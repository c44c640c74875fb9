package dialect

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// SQLite dialect implementation
type sqlite struct {
	base
}

func init() {
	Register("sqlite3", &sqlite{base{quote: backtick, placeholder: question}})
}

func (d *sqlite) Name() string { return "sqlite3" }

func (d *sqlite) CreateCollectionSQL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY AUTOINCREMENT, %s TEXT NOT NULL)",
		d.Quote(table), d.Quote("id"), d.Quote("doc"))
}

func (d *sqlite) InsertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", d.Quote(table), d.Quote("doc"))
}

func (d *sqlite) Returning() bool { return false }

func (d *sqlite) IsDuplicateKey(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
