package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlas-finance/wisebook/internal/pgstore"
)

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the PostgreSQL ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.Database.URL == "" {
				return errors.New("database.url is not set")
			}
			changed, err := pgstore.Migrate(a.cfg.Database.URL)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "Database migrations applied.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No new migrations to apply.")
			}
			return nil
		},
	}
}
