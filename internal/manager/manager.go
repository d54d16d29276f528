// Package manager coordinates repository mutations with the property view.
// Every successful mutation is followed by a full reload of users and
// properties and a recomputation of the view, and the resulting snapshot is
// published to the registered listener.
package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/estates/internal/logging"
	"github.com/mesh-intelligence/estates/internal/view"
	"github.com/mesh-intelligence/estates/pkg/types"
)

// Manager holds the last loaded users and the property view. It is driven by
// one caller at a time and is not safe for concurrent use.
type Manager struct {
	users  types.UserRepository
	props  types.PropertyRepository
	engine *view.Engine
	log    *logrus.Entry

	heldUsers []types.User
	usersErr  error
	propsErr  error
	onChange  func(view.Snapshot)
}

// ErrWriteApplied marks a mutation that committed but whose follow-up
// refresh failed. The held state may be stale for the half that failed.
var ErrWriteApplied = errors.New("write applied")

// New returns a Manager over the given repositories. Nothing is loaded until
// RefreshAll is called.
func New(users types.UserRepository, props types.PropertyRepository, pageSize int, log *logrus.Entry) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		users:  users,
		props:  props,
		engine: view.NewEngine(pageSize),
		log:    log,
	}
}

// OnChange registers fn to receive the snapshot after every refresh and view
// change. A nil fn removes the listener.
func (m *Manager) OnChange(fn func(view.Snapshot)) { m.onChange = fn }

func (m *Manager) publish(s view.Snapshot) view.Snapshot {
	if m.onChange != nil {
		m.onChange(s)
	}
	return s
}

func (m *Manager) opLog(op string) *logrus.Entry {
	return m.log.WithFields(logrus.Fields{"op": op, "op_id": uuid.NewString()})
}

// RefreshAll reloads users and properties and re-drives the view with the
// current filters and sort. Each reload that fails is reported in the
// returned error; a reload that succeeds is applied even if the other fails.
func (m *Manager) RefreshAll(ctx context.Context) error {
	return m.refresh(ctx, m.opLog("refresh"))
}

func (m *Manager) refresh(ctx context.Context, log *logrus.Entry) error {
	var errs []error

	users, err := m.users.ListAll(ctx)
	if err != nil {
		m.usersErr = fmt.Errorf("reloading users: %w", err)
		errs = append(errs, m.usersErr)
	} else {
		m.heldUsers, m.usersErr = users, nil
	}

	props, err := m.props.ListAll(ctx)
	if err != nil {
		m.propsErr = fmt.Errorf("reloading properties: %w", err)
		errs = append(errs, m.propsErr)
	} else {
		m.engine.SetBase(props)
		m.propsErr = nil
	}

	snap := m.publish(m.engine.Snapshot())
	err = errors.Join(errs...)
	if err != nil {
		log.WithError(err).Warn("refresh incomplete")
		return err
	}
	log.WithFields(logrus.Fields{"users": len(m.heldUsers), "properties": snap.Total}).Debug("refreshed")
	return nil
}

// afterWrite refreshes following a committed write. The write stands even
// if the refresh fails.
func (m *Manager) afterWrite(ctx context.Context, log *logrus.Entry) error {
	if err := m.refresh(ctx, log); err != nil {
		return fmt.Errorf("%w, refresh failed: %w", ErrWriteApplied, err)
	}
	return nil
}

// UsersErr returns the failure of the last users reload, or nil if it
// succeeded.
func (m *Manager) UsersErr() error { return m.usersErr }

// PropertiesErr returns the failure of the last properties reload, or nil if
// it succeeded.
func (m *Manager) PropertiesErr() error { return m.propsErr }

// ListUsers returns the users loaded by the last refresh.
func (m *Manager) ListUsers() []types.User { return slices.Clone(m.heldUsers) }

// AllProperties returns every property of the last refresh in store order,
// ignoring the view's filters.
func (m *Manager) AllProperties() []types.Property { return m.engine.Base() }

// ListProperties returns the filtered and sorted properties of the last
// refresh, across all pages.
func (m *Manager) ListProperties() []types.Property { return m.engine.Matched() }

// AddUser persists u and refreshes.
func (m *Manager) AddUser(ctx context.Context, u types.User) (types.User, error) {
	log := m.opLog("add_user")
	added, err := m.users.Add(ctx, u)
	if err != nil {
		log.WithError(err).Info("add user rejected")
		return types.User{}, err
	}
	log.WithField("user_id", added.ID).Info("user added")
	return added, m.afterWrite(ctx, log)
}

// UpdateUser replaces u and refreshes.
func (m *Manager) UpdateUser(ctx context.Context, u types.User) error {
	log := m.opLog("update_user").WithField("user_id", u.ID)
	if err := m.users.Update(ctx, u); err != nil {
		log.WithError(err).Info("update user rejected")
		return err
	}
	log.Info("user updated")
	return m.afterWrite(ctx, log)
}

// DeleteUser removes the user and its properties and refreshes. A
// *types.CascadeError still triggers a refresh, since the user row is gone.
func (m *Manager) DeleteUser(ctx context.Context, id int64) error {
	log := m.opLog("delete_user").WithField("user_id", id)
	err := m.users.Delete(ctx, id)
	var cascade *types.CascadeError
	switch {
	case errors.As(err, &cascade):
		log.WithError(err).Error("user deleted with dependents left behind")
		if rerr := m.refresh(ctx, log); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	case err != nil:
		log.WithError(err).Info("delete user rejected")
		return err
	}
	log.Info("user deleted")
	return m.afterWrite(ctx, log)
}

// AddProperty persists p and refreshes.
func (m *Manager) AddProperty(ctx context.Context, p types.Property) (types.Property, error) {
	log := m.opLog("add_property").WithField("owner_id", p.OwnerID)
	added, err := m.props.Add(ctx, p)
	if err != nil {
		log.WithError(err).Info("add property rejected")
		return types.Property{}, err
	}
	log.WithField("property_id", added.ID).Info("property added")
	return added, m.afterWrite(ctx, log)
}

// UpdateProperty replaces p and refreshes.
func (m *Manager) UpdateProperty(ctx context.Context, p types.Property) error {
	log := m.opLog("update_property").WithField("property_id", p.ID)
	if err := m.props.Update(ctx, p); err != nil {
		log.WithError(err).Info("update property rejected")
		return err
	}
	log.Info("property updated")
	return m.afterWrite(ctx, log)
}

// DeleteProperty removes the property with the given id and refreshes. It
// returns the number of rows deleted, zero for a missing id.
func (m *Manager) DeleteProperty(ctx context.Context, id int64) (int64, error) {
	log := m.opLog("delete_property").WithField("property_id", id)
	n, err := m.props.Delete(ctx, id)
	if err != nil {
		log.WithError(err).Info("delete property failed")
		return 0, err
	}
	log.WithField("rows", n).Info("property deleted")
	return n, m.afterWrite(ctx, log)
}

// SetFilter sets one filter input and publishes the new view.
func (m *Manager) SetFilter(d view.Dimension, value string) view.Snapshot {
	return m.publish(m.engine.SetFilter(d, value))
}

// SetFilters replaces every filter input and publishes the new view.
func (m *Manager) SetFilters(f view.Filters) view.Snapshot {
	return m.publish(m.engine.SetFilters(f))
}

// SetSort replaces the sort order and publishes the new view.
func (m *Manager) SetSort(keys []view.SortKey) view.Snapshot {
	return m.publish(m.engine.SetSort(keys))
}

// Page selects a page and returns its rows with the page count.
func (m *Manager) Page(index int) ([]types.Property, int, error) {
	rows, count, err := m.engine.GetPage(index)
	if err != nil {
		return nil, count, err
	}
	m.publish(m.engine.Snapshot())
	return rows, count, nil
}

// Snapshot returns the current view.
func (m *Manager) Snapshot() view.Snapshot { return m.engine.Snapshot() }
