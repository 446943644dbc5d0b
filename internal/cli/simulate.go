package cli

import (
	"github.com/spf13/cobra"

	"zodiac-snapshot/internal/app"
)

var (
	simulateAt     string
	simulateBodies []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "用给定的黄经/速度生成一次快照并输出到 stdout",
	Example: `  zodiacsnap simulate --body Sun=15 --body Moon=95.25:13.1 --body Mercury=359.9:-0.5 \
    --body Venus=30 --body Mars=182.5:-0.2 --body Jupiter=45.1 --body Saturn=340.7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseInstant("at", simulateAt)
		if err != nil {
			return err
		}

		opts := app.SimulateOptions{
			At:     at,
			Bodies: simulateBodies,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateAt, "at", "", "generatedAtUTC 使用的时刻 (RFC3339)")
	simulateCmd.Flags().StringArrayVar(&simulateBodies, "body", nil, "Name=黄经[:日速度]，每个星体一次")
}
