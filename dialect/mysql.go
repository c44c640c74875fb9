package dialect

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQL dialect implementation
type mysqlDialect struct {
	base
}

func init() {
	Register("mysql", &mysqlDialect{base{quote: backtick, placeholder: question}})
}

func (d *mysqlDialect) Name() string { return "mysql" }

func (d *mysqlDialect) CreateCollectionSQL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s BIGINT AUTO_INCREMENT PRIMARY KEY, %s LONGTEXT NOT NULL) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		d.Quote(table), d.Quote("id"), d.Quote("doc"))
}

func (d *mysqlDialect) InsertSQL(table string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", d.Quote(table), d.Quote("doc"))
}

func (d *mysqlDialect) Returning() bool { return false }

func (d *mysqlDialect) IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
