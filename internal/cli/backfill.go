package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zodiac-snapshot/internal/app"
)

var (
	backfillFrom   string
	backfillTo     string
	backfillDryRun bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Store snapshots for past instants",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(backfillFrom, backfillTo)
		if err != nil {
			return err
		}

		opts := app.BackfillOptions{
			From:   from,
			To:     to,
			DryRun: backfillDryRun,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "End timestamp (RFC3339, exclusive)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Compute snapshots without writing to storage")
}

// parseRange parses the required --from/--to pair.
func parseRange(fromValue, toValue string) (time.Time, time.Time, error) {
	if fromValue == "" || toValue == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--from and --to must be provided")
	}

	from, err := parseInstant("from", fromValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseInstant("to", toValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !from.Before(*to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be before --to")
	}
	return *from, *to, nil
}
