// This file implements the referential policy between users and properties:
// owner checks on property writes and the user delete cascade.
package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/estates/internal/logging"
	"github.com/mesh-intelligence/estates/pkg/types"
)

const (
	countOwnerSQL      = "SELECT COUNT(*) FROM users WHERE id = ?"
	countDependentsSQL = "SELECT COUNT(*) FROM properties WHERE owner_id = ?"
	deleteDependentSQL = "DELETE FROM properties WHERE owner_id = ?"
	deleteUserSQL      = "DELETE FROM users WHERE id = ?"
)

// Enforcer keeps every persisted property attached to an existing user.
//
// In CascadeNative mode the user row is deleted alone and the store's
// ON DELETE CASCADE removes dependents. In CascadeExplicit mode dependents
// are deleted first and the user second, in one transaction. Either way the
// enforcer then counts what is left, so a nil error from DeleteUser means no
// property references the user.
type Enforcer struct {
	adapter *Adapter
	mode    string
	log     *logrus.Entry
}

// NewEnforcer returns an Enforcer using the given cascade mode. An empty mode
// means types.CascadeNative.
func NewEnforcer(a *Adapter, mode string, log *logrus.Entry) *Enforcer {
	if mode == "" {
		mode = types.CascadeNative
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Enforcer{adapter: a, mode: mode, log: log.WithField("cascade", mode)}
}

// Mode returns the cascade mode in effect.
func (e *Enforcer) Mode() string { return e.mode }

// WithOwner runs write inside a transaction after confirming that ownerID
// names an existing user. A missing owner, or a foreign key rejection from
// write itself, returns types.ErrInvalidReference and nothing is written.
func (e *Enforcer) WithOwner(ctx context.Context, ownerID int64, write func(s *Session) error) error {
	err := e.adapter.Tx(ctx, func(s *Session) error {
		n, err := s.Count(ctx, countOwnerSQL, ownerID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("user %d: %w", ownerID, types.ErrInvalidReference)
		}
		return write(s)
	})
	if types.IsConstraint(err, types.ConstraintForeignKey) {
		return fmt.Errorf("user %d: %w", ownerID, types.ErrInvalidReference)
	}
	return err
}

// DeleteUser deletes the user with the given id together with every property
// it owns. It returns types.ErrNotFound if the user does not exist and a
// *types.CascadeError if the user row is gone but dependents could not be
// removed.
func (e *Enforcer) DeleteUser(ctx context.Context, id int64) error {
	var deleted int64
	err := e.adapter.Tx(ctx, func(s *Session) error {
		if e.mode == types.CascadeExplicit {
			n, err := s.Exec(ctx, deleteDependentSQL, id)
			if err != nil {
				return err
			}
			e.log.WithFields(logrus.Fields{"user_id": id, "properties": n}).Debug("deleted dependents")
		}
		n, err := s.Exec(ctx, deleteUserSQL, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.verifyNoDependents(ctx, id); err != nil {
		e.log.WithError(err).WithField("user_id", id).Error("user deleted but dependent properties remain")
		return &types.CascadeError{UserID: id, Err: err}
	}
	e.log.WithFields(logrus.Fields{"user_id": id, "users": deleted}).Debug("user deleted")
	return nil
}

// verifyNoDependents counts properties still owned by id and, if any are
// left, deletes them. It returns an error only when dependents may remain.
func (e *Enforcer) verifyNoDependents(ctx context.Context, id int64) error {
	left, err := e.adapter.Count(ctx, countDependentsSQL, id)
	if err != nil {
		return err
	}
	if left == 0 {
		return nil
	}

	e.log.WithFields(logrus.Fields{"user_id": id, "properties": left}).Warn("store did not cascade, deleting dependents")
	if _, err := e.adapter.Exec(ctx, deleteDependentSQL, id); err != nil {
		return err
	}
	left, err = e.adapter.Count(ctx, countDependentsSQL, id)
	if err != nil {
		return err
	}
	if left != 0 {
		return fmt.Errorf("%d properties still reference user %d", left, id)
	}
	return nil
}
