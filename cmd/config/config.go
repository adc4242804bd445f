package config

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/miviz/miviz/internal/app"
	"github.com/miviz/miviz/internal/conf"
)

// Command creates a new cobra.Command that prints or saves the effective
// configuration.
func Command(ctx *app.Context) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, config file, MIVIZ_ environment
variables and flags are applied. Secrets are masked. With --write the
configuration is saved to --config, or ~/.config/miviz/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.App.Settings
			if !write {
				return conf.Dump(cmd.OutOrStdout(), settings.Redacted())
			}

			path := ctx.ConfigFile
			if path == "" {
				var err error
				if path, err = conf.DefaultConfigFile(); err != nil {
					return err
				}
			}
			if err := conf.SaveYAMLConfig(afero.NewOsFs(), path, settings); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Save the effective configuration")

	return cmd
}
