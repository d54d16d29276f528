package types

import "errors"

// Config holds backend selection and parameters for opening a store.
type Config struct {
	Backend  string `json:"backend" yaml:"backend"`
	DSN      string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	DataDir  string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	Cascade  string `json:"cascade,omitempty" yaml:"cascade,omitempty"`
	PageSize int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Cascade modes for user deletion.
const (
	// CascadeNative relies on the ON DELETE CASCADE foreign key and then
	// verifies that no dependents remain.
	CascadeNative = "native"
	// CascadeExplicit deletes dependents and then the user in one
	// transaction, for stores without cascading foreign keys.
	CascadeExplicit = "explicit"
)

// DefaultPageSize is the number of rows per view page.
const DefaultPageSize = 20

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrDSNRequired     = errors.New("dsn is required for this backend")
	ErrCascadeUnknown  = errors.New("unknown cascade mode")
	ErrPageSizeInvalid = errors.New("page size must be positive")
)

var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendMySQL:    true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. Zero values for Cascade and PageSize are
// valid and mean the defaults.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend != BackendSQLite && c.DSN == "" {
		return ErrDSNRequired
	}
	switch c.Cascade {
	case "", CascadeNative, CascadeExplicit:
	default:
		return ErrCascadeUnknown
	}
	if c.PageSize < 0 {
		return ErrPageSizeInvalid
	}
	return nil
}

// GetCascade returns the effective cascade mode.
func (c Config) GetCascade() string {
	if c.Cascade == "" {
		return CascadeNative
	}
	return c.Cascade
}

// GetPageSize returns the effective page size.
func (c Config) GetPageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}
