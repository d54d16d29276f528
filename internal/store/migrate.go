package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/pressly/goose/v3"
)

// Schema migrations, one directory per dialect.
//
//go:embed migrations
var migrations embed.FS

// Migrate brings the schema up to date and returns the number of
// migrations it applied.
func Migrate(ctx context.Context, a *Adapter) (int, error) {
	fsys, err := fs.Sub(migrations, path.Join("migrations", string(a.dialect)))
	if err != nil {
		return 0, fmt.Errorf("migrations for %s: %w", a.dialect, err)
	}

	provider, err := goose.NewProvider(a.dialect.gooseDialect(), a.db, fsys)
	if err != nil {
		return 0, fmt.Errorf("migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, storeErr("migrate", err)
	}
	for _, r := range results {
		a.log.WithField("migration", r.Source.Path).Info("applied migration")
	}
	return len(results), nil
}
