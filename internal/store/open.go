package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/mesh-intelligence/estates/pkg/types"
)

// DatabaseFile is the SQLite file created inside the data directory.
const DatabaseFile = "estates.db"

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open validates cfg, opens the configured backend and checks that it
// answers. The returned Adapter owns the pool; callers Close it.
func Open(ctx context.Context, cfg types.Config, log *logrus.Entry) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialect := Dialect(cfg.Backend)

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(dialect.driverName(), dsn)
	if err != nil {
		return nil, storeErr("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeErr("ping", err)
	}
	return NewAdapter(db, dialect, log), nil
}

// dataSourceName builds the driver DSN for cfg.
//
// SQLite defaults to DataDir/estates.db with foreign keys switched on for
// every connection; modernc applies _pragma parameters per connection.
// MySQL DSNs are rewritten to report matched rather than changed rows so
// that a no-op update is not mistaken for a missing row.
func dataSourceName(cfg types.Config) (string, error) {
	switch cfg.Backend {
	case types.BackendSQLite:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return "", fmt.Errorf("create data dir: %w", err)
		}
		return SQLiteDSN(filepath.Join(dataDir, DatabaseFile)), nil
	case types.BackendMySQL:
		mc, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		mc.ClientFoundRows = true
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	default:
		return cfg.DSN, nil
	}
}

// SQLiteDSN returns the modernc DSN for a database file with foreign key
// enforcement and a busy timeout.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
