package cli

import (
	"encoding/json"

	"task-tracker-api/internal/delayed"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the delayed-task sweep once",
	Long: `Promote every active task whose due date has passed to Delayed and
print the result as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.detector.Run(cmd.Context(), actor)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	sweepCmd.Flags().String("actor", delayed.SystemActor, "identity recorded as the actor of the sweep")
}
