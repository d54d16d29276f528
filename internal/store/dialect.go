package store

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// Dialect names the SQL backend an Adapter talks to. Its values match the
// backend names in types.Config.
type Dialect string

const (
	DialectSQLite   Dialect = types.BackendSQLite
	DialectPostgres Dialect = types.BackendPostgres
	DialectMySQL    Dialect = types.BackendMySQL
)

// driverName returns the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

func (d Dialect) gooseDialect() goose.Dialect {
	switch d {
	case DialectPostgres:
		return goose.DialectPostgres
	case DialectMySQL:
		return goose.DialectMySQL
	default:
		return goose.DialectSQLite3
	}
}

// rebind rewrites ? placeholders to $1..$n for postgres. Placeholders inside
// single-quoted literals are left alone.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MySQL server error numbers.
const (
	mysqlDupEntry         = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
	mysqlNoReferencedRow2 = 1216
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// classify maps a driver error to the constraint it violated, if any.
func classify(err error) types.Constraint {
	if err == nil {
		return types.ConstraintNone
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return types.ConstraintUnique
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return types.ConstraintForeignKey
		}
		// Primary result code only: fall back to the message.
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := liteErr.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return types.ConstraintUnique
			case strings.Contains(msg, "FOREIGN KEY"):
				return types.ConstraintForeignKey
			}
		}
		return types.ConstraintNone
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return types.ConstraintUnique
		case pgFKViolation:
			return types.ConstraintForeignKey
		}
		return types.ConstraintNone
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDupEntry:
			return types.ConstraintUnique
		case mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlRowIsReferenced2, mysqlNoReferencedRow2:
			return types.ConstraintForeignKey
		}
	}
	return types.ConstraintNone
}

// storeErr wraps a driver error for the caller.
func storeErr(op string, err error) error {
	return &types.StoreError{Op: op, Constraint: classify(err), Err: err}
}
