// Package store is the relational storage layer: a per-call connection
// adapter, the users and properties tables, and the consistency policy that
// keeps properties attached to existing users.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/estates/internal/logging"
)

// runner is the statement surface shared by *sql.Conn and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter executes parameterised statements against the backing database.
// Every call acquires its own connection from the pool and releases it before
// returning, on success and failure alike. No connection outlives a call.
//
// Driver failures come back as *types.StoreError.
type Adapter struct {
	db      *sql.DB
	dialect Dialect
	log     *logrus.Entry
}

// NewAdapter wraps an open database handle. A nil log discards output.
func NewAdapter(db *sql.DB, dialect Dialect, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logging.Discard()
	}
	return &Adapter{db: db, dialect: dialect, log: log.WithField("dialect", string(dialect))}
}

// DB returns the underlying pool. Migrations use it directly.
func (a *Adapter) DB() *sql.DB { return a.db }

// Dialect returns the backend dialect.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// Close closes the pool.
func (a *Adapter) Close() error {
	if err := a.db.Close(); err != nil {
		return storeErr("close", err)
	}
	return nil
}

// withConn runs fn on a dedicated connection and always releases it.
func (a *Adapter) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return storeErr("connect", err)
	}
	defer conn.Close()
	return fn(conn)
}

// Exec runs one statement and returns the number of rows it affected.
func (a *Adapter) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	var n int64
	err := a.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = a.session(conn).Exec(ctx, stmt, args...)
		return err
	})
	return n, err
}

// Query runs one statement and calls scan once per result row. Scan errors
// are returned unchanged; iteration stops at the first one.
func (a *Adapter) Query(ctx context.Context, stmt string, scan func(*sql.Rows) error, args ...any) error {
	return a.withConn(ctx, func(conn *sql.Conn) error {
		return a.session(conn).Query(ctx, stmt, scan, args...)
	})
}

// Count runs a single-value integer query such as SELECT COUNT(*).
func (a *Adapter) Count(ctx context.Context, stmt string, args ...any) (int64, error) {
	var n int64
	err := a.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		n, err = a.session(conn).Count(ctx, stmt, args...)
		return err
	})
	return n, err
}

// InsertReturningID runs an INSERT and returns the generated id.
func (a *Adapter) InsertReturningID(ctx context.Context, stmt string, args ...any) (int64, error) {
	var id int64
	err := a.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		id, err = a.session(conn).InsertReturningID(ctx, stmt, args...)
		return err
	})
	return id, err
}

// Tx runs fn inside one transaction on one connection. The transaction
// commits only if fn returns nil; any error rolls it back and is returned
// as-is.
func (a *Adapter) Tx(ctx context.Context, fn func(s *Session) error) error {
	return a.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return storeErr("begin", err)
		}
		if err := fn(a.session(tx)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				a.log.WithError(rbErr).Warn("rollback failed")
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return storeErr("commit", err)
		}
		return nil
	})
}

func (a *Adapter) session(r runner) *Session {
	return &Session{r: r, dialect: a.dialect, log: a.log}
}

// Session issues statements on one connection or transaction. Sessions are
// handed out by the Adapter and must not be retained after the callback
// that received them returns.
type Session struct {
	r       runner
	dialect Dialect
	log     *logrus.Entry
}

func (s *Session) trace(op, stmt string, args []any) {
	s.log.WithFields(logrus.Fields{"op": op, "stmt": stmt, "args": len(args)}).Debug("statement")
}

// Exec runs one statement and returns the number of rows it affected.
func (s *Session) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	s.trace("exec", stmt, args)
	res, err := s.r.ExecContext(ctx, s.dialect.rebind(stmt), args...)
	if err != nil {
		return 0, storeErr("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("rows affected", err)
	}
	return n, nil
}

// Query runs one statement and calls scan once per result row.
func (s *Session) Query(ctx context.Context, stmt string, scan func(*sql.Rows) error, args ...any) error {
	s.trace("query", stmt, args)
	rows, err := s.r.QueryContext(ctx, s.dialect.rebind(stmt), args...)
	if err != nil {
		return storeErr("query", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return storeErr("query", err)
	}
	return nil
}

// Count runs a single-value integer query.
func (s *Session) Count(ctx context.Context, stmt string, args ...any) (int64, error) {
	s.trace("count", stmt, args)
	var n int64
	if err := s.r.QueryRowContext(ctx, s.dialect.rebind(stmt), args...).Scan(&n); err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

// InsertReturningID runs an INSERT and returns the generated id. Postgres
// has no LastInsertId, so the statement gets a RETURNING clause there.
func (s *Session) InsertReturningID(ctx context.Context, stmt string, args ...any) (int64, error) {
	s.trace("insert", stmt, args)
	if s.dialect == DialectPostgres {
		var id int64
		if err := s.r.QueryRowContext(ctx, s.dialect.rebind(stmt)+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, storeErr("insert", err)
		}
		return id, nil
	}

	res, err := s.r.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, storeErr("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("last insert id", err)
	}
	return id, nil
}

// scanFailed wraps a row scan failure.
func scanFailed(table string, err error) error {
	return storeErr(fmt.Sprintf("scan %s", table), err)
}
