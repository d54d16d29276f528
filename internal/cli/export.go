package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/estates/internal/paths"
	"github.com/mesh-intelligence/estates/internal/store"
)

func (a *app) newExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all users and properties to JSONL files",
		Long: `Export writes users.jsonl and properties.jsonl, one JSON object per line,
to the export directory. Existing files are replaced atomically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := paths.ResolveExportDir(dir)
			if err != nil {
				return sysErr("resolve export dir", err)
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := errors.Join(s.needUsers(), s.needProperties()); err != nil {
				return fmt.Errorf("export: %w", err)
			}

			users := s.mgr.ListUsers()
			props := s.mgr.ListProperties()
			if err := store.ExportJSONL(out, users, props); err != nil {
				return sysErr("export", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"dir":        out,
					"users":      len(users),
					"properties": len(props),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d user(s) and %d propert%s to %s\n",
				len(users), len(props), plural(len(props), "y", "ies"), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "export directory (default: $(CWD)/"+paths.DefaultExportDirName+")")
	return cmd
}
