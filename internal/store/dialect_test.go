package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/estates/pkg/types"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", DialectSQLite, "SELECT * FROM users WHERE id = ?", "SELECT * FROM users WHERE id = ?"},
		{"mysql untouched", DialectMySQL, "UPDATE users SET name = ? WHERE id = ?", "UPDATE users SET name = ? WHERE id = ?"},
		{"postgres numbered", DialectPostgres, "UPDATE users SET name = ?, email = ? WHERE id = ?", "UPDATE users SET name = $1, email = $2 WHERE id = $3"},
		{"postgres quoted literal", DialectPostgres, "SELECT '?' FROM users WHERE id = ?", "SELECT '?' FROM users WHERE id = $1"},
		{"postgres no placeholders", DialectPostgres, "SELECT COUNT(*) FROM users", "SELECT COUNT(*) FROM users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.rebind(tt.in))
		})
	}
}

func TestClassify_DriverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.Constraint
	}{
		{"nil", nil, types.ConstraintNone},
		{"plain", errors.New("boom"), types.ConstraintNone},
		{"pg unique", &pgconn.PgError{Code: "23505"}, types.ConstraintUnique},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, types.ConstraintForeignKey},
		{"pg other", &pgconn.PgError{Code: "42P01"}, types.ConstraintNone},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, types.ConstraintUnique},
		{"mysql no parent", &mysql.MySQLError{Number: 1452}, types.ConstraintForeignKey},
		{"mysql referenced", &mysql.MySQLError{Number: 1451}, types.ConstraintForeignKey},
		{"mysql other", &mysql.MySQLError{Number: 1146}, types.ConstraintNone},
		{"wrapped pg", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), types.ConstraintUnique},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestClassify_SQLiteErrors(t *testing.T) {
	a, ut, _ := openTestStore(t, "")
	ctx := context.Background()
	mustAddUser(t, ut, "John Doe", "john@x.com")

	_, err := a.Exec(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", "Other", "john@x.com")
	require.Error(t, err)
	assert.True(t, types.IsConstraint(err, types.ConstraintUnique), "got %v", err)

	_, err = a.Exec(ctx,
		"INSERT INTO properties (owner_id, description, location, size, price) VALUES (?, ?, ?, ?, ?)",
		404, "", "", 0, 0)
	require.Error(t, err)
	assert.True(t, types.IsConstraint(err, types.ConstraintForeignKey), "got %v", err)
}

func TestDataSourceName(t *testing.T) {
	dir := t.TempDir()

	dsn, err := dataSourceName(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:"+dir))
	assert.Contains(t, dsn, "foreign_keys(1)")

	dsn, err = dataSourceName(types.Config{Backend: types.BackendSQLite, DSN: "file:custom.db"})
	require.NoError(t, err)
	assert.Equal(t, "file:custom.db", dsn)

	dsn, err = dataSourceName(types.Config{Backend: types.BackendMySQL, DSN: "estates:secret@tcp(localhost:3306)/estates"})
	require.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ClientFoundRows)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "estates", cfg.DBName)

	dsn, err = dataSourceName(types.Config{Backend: types.BackendPostgres, DSN: "postgres://localhost/estates"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/estates", dsn)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), types.Config{}, nil)
	assert.ErrorIs(t, err, types.ErrBackendEmpty)

	_, err = Open(context.Background(), types.Config{Backend: types.BackendPostgres}, nil)
	assert.ErrorIs(t, err, types.ErrDSNRequired)
}

func TestMigrate_Idempotent(t *testing.T) {
	a, _, _ := openTestStore(t, "")

	n, err := Migrate(context.Background(), a)
	require.NoError(t, err)
	assert.Zero(t, n)
}
