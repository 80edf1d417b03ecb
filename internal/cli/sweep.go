package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepLimit int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue pending bookings and release their seats",
	Long: `Expire every pending booking whose hold window has passed.

Examples:
  theater sweep
  theater sweep --limit 500`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepLimit, "limit", 0, "bookings per batch (default bookings.sweep_batch)")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	limit := sweepLimit
	if limit <= 0 {
		limit = a.cfg.Bookings.SweepBatch
	}
	n, err := a.bookings.SweepExpired(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	a.log.Info().Int("expired", n).Msg("sweep finished")
	fmt.Fprintf(cmd.OutOrStdout(), "expired %d booking(s)\n", n)
	return nil
}
