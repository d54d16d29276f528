// Store and manager setup shared by the data commands.
package cli

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/estates/internal/logging"
	"github.com/mesh-intelligence/estates/internal/manager"
	"github.com/mesh-intelligence/estates/internal/store"
	"github.com/mesh-intelligence/estates/pkg/types"
)

// session is an open store with its repositories and a loaded manager.
type session struct {
	adapter *store.Adapter
	mgr     *manager.Manager
	log     *logrus.Logger
}

func (s *session) Close() error { return s.adapter.Close() }

// newLogger builds the CLI logger from log_level and log_format. Log output
// goes to stderr so that --json output stays parseable.
func (a *app) newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	l, err := logging.New(a.cfg.GetString(cfgKeyLogLevel), a.cfg.GetString(cfgKeyLogFormat), cmd.ErrOrStderr())
	if err != nil {
		return nil, &types.ValidationError{Field: "log", Reason: err.Error()}
	}
	return l, nil
}

// openStore opens the configured store without loading anything.
func (a *app) openStore(ctx context.Context, cmd *cobra.Command) (*store.Adapter, types.Config, *logrus.Logger, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, types.Config{}, nil, err
	}
	log, err := a.newLogger(cmd)
	if err != nil {
		return nil, types.Config{}, nil, err
	}
	ad, err := store.Open(ctx, cfg, logging.Component(log, "store"))
	if err != nil {
		return nil, types.Config{}, nil, err
	}
	return ad, cfg, log, nil
}

// openSession opens the store, brings the schema up to date, wires the
// repositories and performs the initial refresh. A reload that fails does not
// fail the session: the manager logs it, and commands that read the failed
// half check it with needUsers or needProperties. The caller must Close the
// session.
func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	ad, cfg, log, err := a.openStore(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if _, err := store.Migrate(ctx, ad); err != nil {
		ad.Close()
		return nil, err
	}

	enforcer := store.NewEnforcer(ad, cfg.GetCascade(), logging.Component(log, "consistency"))
	s := &session{
		adapter: ad,
		mgr: manager.New(
			store.NewUsersTable(ad, enforcer),
			store.NewPropertiesTable(ad, enforcer),
			cfg.GetPageSize(),
			logging.Component(log, "manager"),
		),
		log: log,
	}
	_ = s.mgr.RefreshAll(ctx)
	return s, nil
}

// needUsers fails if the users were not loaded.
func (s *session) needUsers() error { return s.mgr.UsersErr() }

// needProperties fails if the properties were not loaded.
func (s *session) needProperties() error { return s.mgr.PropertiesErr() }

// applied drops the error of a write that committed but could not be
// followed by a full refresh; the manager has already logged it. Any other
// error is returned unchanged.
func applied(err error) error {
	if errors.Is(err, manager.ErrWriteApplied) && !errors.Is(err, types.ErrCascade) {
		return nil
	}
	return err
}
