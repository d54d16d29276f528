// This file implements the users table accessor.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/estates/pkg/types"
)

var _ types.UserRepository = (*UsersTable)(nil)

// UsersTable persists users. It is the sole authority for user ids and
// email uniqueness; deletes go through the Enforcer.
type UsersTable struct {
	adapter  *Adapter
	enforcer *Enforcer
}

// NewUsersTable returns a users accessor over a.
func NewUsersTable(a *Adapter, e *Enforcer) *UsersTable {
	return &UsersTable{adapter: a, enforcer: e}
}

// ListAll returns every user in insertion order.
func (ut *UsersTable) ListAll(ctx context.Context) ([]types.User, error) {
	var users []types.User
	err := ut.adapter.Query(ctx, "SELECT id, name, email FROM users ORDER BY id", func(rows *sql.Rows) error {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return scanFailed("users", err)
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Add inserts u and returns it with its assigned id.
func (ut *UsersTable) Add(ctx context.Context, u types.User) (types.User, error) {
	u = u.Normalize()
	if u.ID != 0 {
		return types.User{}, &types.ValidationError{Field: "id", Reason: "must be zero for a new user"}
	}
	if err := u.Validate(); err != nil {
		return types.User{}, err
	}

	id, err := ut.adapter.InsertReturningID(ctx,
		"INSERT INTO users (name, email) VALUES (?, ?)", u.Name, u.Email)
	if err != nil {
		return types.User{}, userWriteErr(u, err)
	}
	u.ID = id
	return u, nil
}

// Update replaces name and email of the user with u.ID.
func (ut *UsersTable) Update(ctx context.Context, u types.User) error {
	u = u.Normalize()
	if u.ID == 0 {
		return &types.ValidationError{Field: "id", Reason: "user has not been persisted"}
	}
	if err := u.Validate(); err != nil {
		return err
	}

	n, err := ut.adapter.Exec(ctx,
		"UPDATE users SET name = ?, email = ? WHERE id = ?", u.Name, u.Email, u.ID)
	if err != nil {
		return userWriteErr(u, err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, types.ErrNotFound)
	}
	return nil
}

// Delete removes the user and all properties it owns.
func (ut *UsersTable) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	return ut.enforcer.DeleteUser(ctx, id)
}

func userWriteErr(u types.User, err error) error {
	if types.IsConstraint(err, types.ConstraintUnique) {
		return fmt.Errorf("%s: %w", u.Email, types.ErrDuplicateEmail)
	}
	return fmt.Errorf("writing user: %w", err)
}
