package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/estates/internal/store"
)

func (a *app) newInitCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize estates storage",
		Long: `Init writes a default config.yaml if none exists, creates the schema in
the configured store and, with --seed, adds sample owners and listings to an
empty store. Running it again is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := a.resolveConfigDir()
			if err != nil {
				return sysErr("resolve config dir", err)
			}

			ad, cfg, _, err := a.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer ad.Close()

			written := cfg
			if a.flags.dataDir == "" {
				written.DataDir = ""
			}
			if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), written); err != nil {
				return sysErr("write config", err)
			}

			applied, err := store.Migrate(cmd.Context(), ad)
			if err != nil {
				return err
			}
			seeded := false
			if seed {
				if seeded, err = store.Seed(cmd.Context(), ad); err != nil {
					return err
				}
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"backend":    cfg.Backend,
					"migrations": applied,
					"seeded":     seeded,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Estates initialized (%s, %d migration(s) applied)\n", cfg.Backend, applied)
			if seeded {
				fmt.Fprintln(out, "Sample data added")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "add sample owners and listings to an empty store")
	return cmd
}
