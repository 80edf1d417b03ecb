package cli

import (
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	applied, err := database.Migrate(cmd.Context(), a.pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		a.log.Info().Msg("schema up to date")
		return nil
	}
	for _, name := range applied {
		a.log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}
