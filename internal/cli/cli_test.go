package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/estates/internal/store"
	"github.com/mesh-intelligence/estates/internal/view"
	"github.com/mesh-intelligence/estates/pkg/types"
)

// testEnv is an isolated config and data directory pair for running the CLI
// in-process.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
}

// result holds the output of one CLI invocation.
type result struct {
	Stdout string
	Stderr string
	Code   int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(envPrefix+"_"+strings.ToUpper(key), "")
	}
	t.Setenv("ESTATES_CONFIG_DIR", "")
	t.Setenv("ESTATES_DATA_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	return &testEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
}

// runWithInput executes the root command with the env's directories and
// the given standard input.
func (e *testEnv) runWithInput(stdin string, args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))

	full := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...)
	code := run(root, full, &stderr)
	return result{Stdout: stdout.String(), Stderr: stderr.String(), Code: code}
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	return e.runWithInput("", args...)
}

// mustRun runs the CLI and fails the test on a non-zero exit.
func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	require.Equalf(e.t, exitSuccess, r.Code, "estates %v failed: %s", args, r.Stderr)
	return r
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func seededEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.mustRun("init", "--seed")
	return env
}

func TestInitWritesConfigAndSchema(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun("init")
	assert.Contains(t, r.Stdout, "Estates initialized (sqlite, 2 migration(s) applied)")
	assert.NotContains(t, r.Stdout, "Sample data added")

	cfg, err := os.ReadFile(filepath.Join(env.ConfigDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "backend: sqlite")
	assert.Contains(t, string(cfg), "cascade: native")
	assert.Contains(t, string(cfg), "data_dir: "+env.DataDir)
	assert.FileExists(t, filepath.Join(env.DataDir, "estates.db"))

	r = env.mustRun("--json", "init")
	out := parseJSON[map[string]any](t, r.Stdout)
	assert.Equal(t, float64(0), out["migrations"], "second init applies nothing")
	assert.Equal(t, false, out["seeded"])
}

func TestInitSeedOnlyOnce(t *testing.T) {
	env := seededEnv(t)

	r := env.mustRun("--json", "init", "--seed")
	out := parseJSON[map[string]any](t, r.Stdout)
	assert.Equal(t, false, out["seeded"])

	users := parseJSON[[]types.User](t, env.mustRun("--json", "user", "list").Stdout)
	assert.Len(t, users, 3)
}

func TestUserCommands(t *testing.T) {
	env := seededEnv(t)

	r := env.mustRun("user", "add", "--name", "Ann Lee", "--email", "ann@example.com")
	assert.Equal(t, "Added user 4: Ann Lee <ann@example.com>\n", r.Stdout)

	r = env.mustRun("user", "list")
	assert.Contains(t, r.Stdout, "ann@example.com")
	assert.Contains(t, r.Stdout, "Total: 4 user(s)")

	r = env.mustRun("--json", "user", "update", "4", "--name", "Ann Marie Lee")
	u := parseJSON[types.User](t, r.Stdout)
	assert.Equal(t, types.User{ID: 4, Name: "Ann Marie Lee", Email: "ann@example.com"}, u)

	r = env.mustRun("user", "delete", "4")
	assert.Equal(t, "Deleted user 4 and 0 properties\n", r.Stdout)
}

func TestUserCommandErrors(t *testing.T) {
	env := seededEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"duplicate email", []string{"user", "add", "--name", "Other", "--email", "john.doe@example.com"}, "email already in use"},
		{"missing name", []string{"user", "add", "--email", "x@example.com"}, "invalid name"},
		{"update unknown", []string{"user", "update", "99", "--name", "X"}, "not found"},
		{"delete unknown", []string{"user", "delete", "99"}, "not found"},
		{"bad id", []string{"user", "delete", "abc"}, `"abc" is not a positive integer`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.run(tt.args...)
			assert.Equal(t, exitUserError, r.Code)
			assert.Contains(t, r.Stderr, tt.wantErr)
			assert.Empty(t, r.Stdout)
		})
	}
}

func TestUserDeleteCascades(t *testing.T) {
	env := seededEnv(t)

	r := env.mustRun("user", "delete", "2")
	assert.Equal(t, "Deleted user 2 and 1 property\n", r.Stdout)

	snap := parseJSON[view.Snapshot](t, env.mustRun("--json", "property", "list").Stdout)
	assert.Equal(t, 2, snap.Total)
	for _, p := range snap.Rows {
		assert.NotEqual(t, int64(2), p.OwnerID)
	}
}

func TestPropertyList(t *testing.T) {
	env := seededEnv(t)

	r := env.mustRun("property", "list")
	assert.Contains(t, r.Stdout, "John Doe")
	assert.Contains(t, r.Stdout, "750000")
	assert.Contains(t, r.Stdout, "Page 1 of 1 (3 of 3 properties)")

	r = env.mustRun("property", "list", "--general", "miami")
	assert.Contains(t, r.Stdout, "Beachfront condo")
	assert.NotContains(t, r.Stdout, "New York")
	assert.Contains(t, r.Stdout, "(1 of 3 properties)")

	r = env.mustRun("prop", "list", "--location", "nowhere")
	assert.Contains(t, r.Stdout, "No properties found.")
	assert.Contains(t, r.Stdout, "Page 1 of 1 (0 of 3 properties)")
}

func TestPropertyListJSON(t *testing.T) {
	env := seededEnv(t)

	snap := parseJSON[view.Snapshot](t,
		env.mustRun("--json", "property", "list", "--min-price", "700000", "--sort", "price:desc").Stdout)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, "Jane Smith", snap.Rows[0].OwnerName())
	assert.Equal(t, "John Doe", snap.Rows[1].OwnerName())
	assert.Equal(t, "700000", snap.Filters.MinPrice)
	assert.Equal(t, 2, snap.Matched)
	assert.Equal(t, 3, snap.Total)

	snap = parseJSON[view.Snapshot](t, env.mustRun("--json", "property", "list", "--owner", "nobody").Stdout)
	assert.NotNil(t, snap.Rows)
	assert.Empty(t, snap.Rows)
}

func TestPropertyListPaging(t *testing.T) {
	env := seededEnv(t)
	t.Setenv("ESTATES_PAGE_SIZE", "2")

	snap := parseJSON[view.Snapshot](t, env.mustRun("--json", "property", "list", "--page", "2").Stdout)
	assert.Equal(t, 1, snap.Page)
	assert.Equal(t, 2, snap.PageCount)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "Miami", snap.Rows[0].Location)

	r := env.run("property", "list", "--page", "3")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "page out of range")
}

func TestPropertyCommands(t *testing.T) {
	env := seededEnv(t)

	r := env.mustRun("--json", "property", "add",
		"--owner-id", "3", "--location", "Orlando", "--size", "1500", "--price", "480000",
		"--description", "Lake house")
	added := parseJSON[types.Property](t, r.Stdout)
	assert.Equal(t, int64(4), added.ID)
	assert.Equal(t, int64(3), added.OwnerID)

	r = env.mustRun("property", "update", "4", "--price", "455000.5")
	assert.Equal(t, "Updated property 4\n", r.Stdout)

	snap := parseJSON[view.Snapshot](t, env.mustRun("--json", "property", "list", "--location", "orlando").Stdout)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, 455000.5, snap.Rows[0].Price)
	assert.Equal(t, "Lake house", snap.Rows[0].Description)
	assert.Equal(t, "Paul Brown", snap.Rows[0].OwnerName())

	r = env.mustRun("property", "delete", "4")
	assert.Equal(t, "Deleted 1 property\n", r.Stdout)

	r = env.mustRun("property", "delete", "4")
	assert.Equal(t, "Deleted 0 properties\n", r.Stdout)
}

func TestPropertyCommandErrors(t *testing.T) {
	env := seededEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown owner", []string{"property", "add", "--owner-id", "42", "--location", "X"}, "owner does not exist"},
		{"missing owner flag", []string{"property", "add", "--location", "X"}, "owner-id"},
		{"bad size", []string{"property", "add", "--owner-id", "1", "--size", "big"}, "size and price must be valid numbers"},
		{"negative price", []string{"property", "add", "--owner-id", "1", "--price", "-5"}, "invalid price"},
		{"update unknown", []string{"property", "update", "99", "--price", "1"}, "not found"},
		{"update to unknown owner", []string{"property", "update", "1", "--owner-id", "42"}, "owner does not exist"},
		{"bad sort", []string{"property", "list", "--sort", "colour"}, "invalid sort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := env.run(tt.args...)
			assert.Equal(t, exitUserError, r.Code)
			assert.Contains(t, r.Stderr, tt.wantErr)
		})
	}
}

func TestExport(t *testing.T) {
	env := seededEnv(t)
	dir := filepath.Join(t.TempDir(), "out")

	r := env.mustRun("export", "--dir", dir)
	assert.Equal(t, fmt.Sprintf("Exported 3 user(s) and 3 properties to %s\n", dir), r.Stdout)

	data, err := os.ReadFile(filepath.Join(dir, "users.jsonl"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
	assert.FileExists(t, filepath.Join(dir, "properties.jsonl"))
}

func TestShell(t *testing.T) {
	env := seededEnv(t)

	input := strings.Join([]string{
		"filter general miami",
		"sort price:desc",
		"filter clear",
		"next",
		"bogus",
		"users",
		"quit",
		"show",
	}, "\n")
	r := env.runWithInput(input, "shell")
	require.Equal(t, exitSuccess, r.Code, r.Stderr)

	assert.Contains(t, r.Stdout, "(1 of 3 properties)")
	assert.Contains(t, r.Stdout, "error: page 1 of 1: page out of range")
	assert.Contains(t, r.Stdout, `error: unknown command "bogus"`)
	assert.Contains(t, r.Stdout, "Total: 3 user(s)")
	assert.NotContains(t, r.Stdout, "estates> ")
	assert.Equal(t, 4, strings.Count(r.Stdout, "Page 1 of 1"),
		"one render on start, one per filter or sort change; show after quit is not read")
}

func TestShellJSON(t *testing.T) {
	env := seededEnv(t)

	r := env.runWithInput("filter owner smith\n", "--json", "shell")
	require.Equal(t, exitSuccess, r.Code, r.Stderr)

	dec := json.NewDecoder(strings.NewReader(r.Stdout))
	var first, second view.Snapshot
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, 3, first.Matched)
	assert.Equal(t, 1, second.Matched)
	assert.Equal(t, "smith", second.Filters.Owner)
}

func TestShellMutationsKeepView(t *testing.T) {
	env := seededEnv(t)

	input := strings.Join([]string{
		"filter general miami",
		`add-user --name "Ann Lee" --email ann@example.com`,
		`add-property --owner-id 4 --location "North Miami" --size 800 --price 500000 --description "Bay flat"`,
		"update-property 4 --price 510000",
		"delete-property 3",
		`update-user 4 --name "Ann Marie Lee"`,
		"delete-user 4",
		"add-property --location Nowhere",
		"update-property 99 --price 1",
		`add-user --name "Unfinished`,
		"quit",
	}, "\n")
	r := env.runWithInput(input, "shell")
	require.Equal(t, exitSuccess, r.Code, r.Stderr)

	out := r.Stdout
	for _, want := range []string{
		"Added user 4: Ann Lee <ann@example.com>",
		"(2 of 4 properties)",
		"Added property 4",
		"Updated property 4",
		"Deleted 1 property",
		"(1 of 3 properties)",
		"Updated user 4",
		"Deleted user 4",
		"(0 of 2 properties)",
		"error: add-property needs --owner-id",
		"error: property 99: not found",
		"error: unterminated quote",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Added property 4"), strings.Index(out, "Deleted user 4"))

	snap := parseJSON[view.Snapshot](t, env.mustRun("--json", "property", "list").Stdout)
	assert.Equal(t, 2, snap.Total)
	users := parseJSON[[]types.User](t, env.mustRun("--json", "user", "list").Stdout)
	assert.Len(t, users, 3)
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"  show  ", []string{"show"}},
		{"filter general miami", []string{"filter", "general", "miami"}},
		{`add-user --name "Ann Lee" --email a@x`, []string{"add-user", "--name", "Ann Lee", "--email", "a@x"}},
		{`filter location "new york"`, []string{"filter", "location", "new york"}},
		{`set ""`, []string{"set", ""}},
		{"a\tb", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitWords(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := splitWords(`add-user --name "Ann`)
	assert.EqualError(t, err, "unterminated quote")
}

// plantOrphan inserts a property whose owner does not exist, through a
// connection without foreign key enforcement.
func plantOrphan(t *testing.T, env *testEnv, ownerID int64) {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(env.DataDir, store.DatabaseFile)
	a, err := store.Open(ctx, types.Config{Backend: types.BackendSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Exec(ctx,
		"INSERT INTO properties (owner_id, description, location, size, price) VALUES (?, ?, ?, ?, ?)",
		ownerID, "Lost plot", "Nowhere", 10, 1000)
	require.NoError(t, err)
}

func TestOrphanedPropertyCanBeDeleted(t *testing.T) {
	env := seededEnv(t)
	plantOrphan(t, env, 77)

	r := env.mustRun("user", "list")
	assert.Contains(t, r.Stdout, "Total: 3 user(s)")
	assert.Contains(t, r.Stderr, "refresh incomplete")

	r = env.run("property", "list")
	assert.Equal(t, exitSysError, r.Code)
	assert.Contains(t, r.Stderr, "property 4 references missing user 77")

	r = env.run("export", "--dir", t.TempDir())
	assert.Equal(t, exitSysError, r.Code)

	r = env.mustRun("user", "add", "--name", "Ann Lee", "--email", "ann@example.com")
	assert.Equal(t, "Added user 4: Ann Lee <ann@example.com>\n", r.Stdout)

	r = env.mustRun("user", "delete", "4")
	assert.Equal(t, "Deleted user 4 and its properties\n", r.Stdout)

	r = env.mustRun("property", "delete", "4")
	assert.Equal(t, "Deleted 1 property\n", r.Stdout)

	r = env.mustRun("property", "list")
	assert.Contains(t, r.Stdout, "(3 of 3 properties)")
	assert.NotContains(t, r.Stderr, "refresh incomplete")
}

func TestPageSizeNotANumber(t *testing.T) {
	env := seededEnv(t)
	t.Setenv("ESTATES_PAGE_SIZE", "abc")

	r := env.run("property", "list")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "invalid page_size: abc is not a whole number")

	t.Setenv("ESTATES_PAGE_SIZE", "-1")
	r = env.run("property", "list")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "page size must be positive")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("ESTATES_CASCADE", "sideways")

	r := env.run("user", "list")
	assert.Equal(t, exitUserError, r.Code)
	assert.Contains(t, r.Stderr, "cascade")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun("version")
	assert.Equal(t, "estates v"+Version+"\nmodule: "+modulePath+"\n", r.Stdout)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"validation", &types.ValidationError{Field: "name", Reason: "required"}, exitUserError},
		{"not found", fmt.Errorf("update user: %w", types.ErrNotFound), exitUserError},
		{"duplicate", types.ErrDuplicateEmail, exitUserError},
		{"store", &types.StoreError{Op: "query", Err: errors.New("disk I/O error")}, exitSysError},
		{"cascade", &types.CascadeError{UserID: 1, Err: errors.New("1 remain")}, exitSysError},
		{"system", sysErr("write config", os.ErrPermission), exitSysError},
		{"plain", errors.New("unknown flag"), exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestSystemErrorMessage(t *testing.T) {
	err := sysErr("write config", os.ErrPermission)
	assert.Equal(t, "write config: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.ErrorIs(t, err, errSystem)
}
