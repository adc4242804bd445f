package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miviz/miviz/cmd/config"
	"github.com/miviz/miviz/cmd/dataset"
	"github.com/miviz/miviz/cmd/export"
	"github.com/miviz/miviz/cmd/run"
	"github.com/miviz/miviz/cmd/trials"
	"github.com/miviz/miviz/cmd/version"
	"github.com/miviz/miviz/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "miviz",
		Short: "Motor-imagery EEG augmentation pipeline",
		Long: `miviz generates synthetic motor-imagery EEG trials, removes ocular
artifacts, extracts the imagery segment, augments it with four generative
methods and reports simulated classification results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, ctx); err != nil {
		// Flag names are fixed; binding only fails on programming errors.
		panic(err)
	}

	versionCmd := version.Command(ctx)

	subcommands := []*cobra.Command{
		run.Command(ctx),
		trials.Command(ctx),
		dataset.Command(ctx),
		export.Command(ctx),
		config.Command(ctx),
		versionCmd,
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version and help commands
		if cmd.Name() == versionCmd.Name() || cmd.Name() == "help" {
			return nil
		}
		return ctx.Setup()
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return ctx.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *app.Context) error {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to config.yaml (default: ./config.yaml or ~/.config/miviz/config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := ctx.Viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
