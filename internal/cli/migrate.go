package cli

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Migrate the users and tasks tables. With the sheets store the
spreadsheet header row is written as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		logger.WithField("store", cfg.Store.Backend).Info("database migrated")
		return nil
	},
}
