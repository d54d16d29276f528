// Package cli implements the estates command-line interface: one-shot
// commands over users and properties plus an interactive shell that keeps a
// live view open.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/estates/internal/paths"
	"github.com/mesh-intelligence/estates/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by the commands of one root command.
type app struct {
	flags rootFlags
	cfg   *viper.Viper
}

// NewRootCmd creates the top-level "estates" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "estates",
		Short: "Manage property owners and their listings",
		Long: "Estates keeps users and the real-estate listings they own in a relational\n" +
			"store and shows them through a filterable, sortable, paginated view.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.estates)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "SQLite data directory (default: $(CWD)/.estates-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newUserCmd())
	root.AddCommand(a.newPropertyCmd())
	root.AddCommand(a.newExportCmd())
	root.AddCommand(a.newShellCmd())

	return root
}

// Execute runs the root command with the process arguments and returns the
// exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode maps an error to the process exit code. Failures of the store or
// the local environment are system errors; everything else is the caller's.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrStore),
		errors.Is(err, types.ErrCascade),
		errors.Is(err, errSystem):
		return exitSysError
	default:
		return exitUserError
	}
}

// errSystem marks failures of the local environment, such as an unreadable
// config file or an unwritable export directory.
var errSystem = errors.New("system error")

type systemError struct {
	op  string
	err error
}

func (e *systemError) Error() string        { return e.op + ": " + e.err.Error() }
func (e *systemError) Unwrap() error        { return e.err }
func (e *systemError) Is(target error) bool { return target == errSystem }

func sysErr(op string, err error) error {
	return &systemError{op: op, err: err}
}

func (a *app) resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(a.flags.configDir)
}

func (a *app) resolveDataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
}
