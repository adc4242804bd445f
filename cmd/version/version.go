package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miviz/miviz/internal/app"
)

// Command creates a new cobra.Command to print build information.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of miviz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), ctx.Build.String())
			return err
		},
	}
}
