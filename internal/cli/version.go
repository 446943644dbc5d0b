package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zodiac-snapshot/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.Summary())
	},
}
