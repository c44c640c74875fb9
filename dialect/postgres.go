package dialect

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQL dialect implementation
type postgres struct {
	base
}

func init() {
	Register("postgres", &postgres{base{
		// PostgreSQL uses double quotes for identifiers
		quote: func(name string) string { return fmt.Sprintf(`"%s"`, name) },
		// PostgreSQL uses $1, $2, $3... for placeholders
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	}})
}

func (d *postgres) Name() string { return "postgres" }

func (d *postgres) CreateCollectionSQL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s BIGSERIAL PRIMARY KEY, %s TEXT NOT NULL)",
		d.Quote(table), d.Quote("id"), d.Quote("doc"))
}

// InsertSQL uses RETURNING since lib/pq does not support LastInsertId.
func (d *postgres) InsertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1) RETURNING %s", d.Quote(table), d.Quote("doc"), d.Quote("id"))
}

func (d *postgres) Returning() bool { return true }

func (d *postgres) IsDuplicateKey(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == "23505"
}
