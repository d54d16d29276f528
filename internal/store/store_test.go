package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/estates/pkg/types"
)

// openTestStore opens a migrated SQLite store in a temp dir.
func openTestStore(t *testing.T, cascade string) (*Adapter, *UsersTable, *PropertiesTable) {
	t.Helper()
	ctx := context.Background()

	a, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = Migrate(ctx, a)
	require.NoError(t, err)

	e := NewEnforcer(a, cascade, nil)
	return a, NewUsersTable(a, e), NewPropertiesTable(a, e)
}

// openUnenforcedStore opens a migrated SQLite store with foreign keys off,
// the way a store without cascading foreign keys behaves.
func openUnenforcedStore(t *testing.T) *Adapter {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), DatabaseFile)
	a, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = Migrate(ctx, a)
	require.NoError(t, err)
	return a
}

func mustAddUser(t *testing.T, ut *UsersTable, name, email string) types.User {
	t.Helper()
	u, err := ut.Add(context.Background(), types.User{Name: name, Email: email})
	require.NoError(t, err)
	return u
}

func mustAddProperty(t *testing.T, pt *PropertiesTable, ownerID int64, location string, price float64) types.Property {
	t.Helper()
	p, err := pt.Add(context.Background(), types.Property{
		OwnerID:     ownerID,
		Description: "flat",
		Location:    location,
		Size:        1200,
		Price:       price,
	})
	require.NoError(t, err)
	return p
}
