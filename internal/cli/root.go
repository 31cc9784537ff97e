// Package cli holds the cobra commands of the tracker binary.
package cli

import (
	"fmt"
	"os"

	"task-tracker-api/internal/config"
	"task-tracker-api/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Employee task tracker API",
	Long: `Tracker serves the task lifecycle engine: tasks with per-day hour
ledgers, support tasks fanned out to helpers and the delayed-task sweep.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		l, err := logging.New(loaded.Log)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		cfg, logger = loaded, l
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml when present)")
	rootCmd.AddCommand(serverCmd, migrateCmd, sweepCmd, seedCmd)
}

// RootCmd returns the root command, for tests.
func RootCmd() *cobra.Command {
	return rootCmd
}
