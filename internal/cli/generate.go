package cli

import (
	"github.com/spf13/cobra"

	"zodiac-snapshot/internal/app"
)

var (
	generateAt     string
	generateOut    string
	generateStdout bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compute the current snapshot and write it once",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseInstant("at", generateAt)
		if err != nil {
			return err
		}

		opts := app.GenerateOptions{
			At:      at,
			OutPath: generateOut,
			Stdout:  generateStdout,
		}
		return getApp().Generate(cmd.Context(), opts)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateAt, "at", "", "Instant to compute (RFC3339, defaults to now)")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Output path (defaults to output.path)")
	generateCmd.Flags().BoolVar(&generateStdout, "stdout", false, "Print the snapshot instead of writing a file")
	generateCmd.MarkFlagsMutuallyExclusive("out", "stdout")
}
