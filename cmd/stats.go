package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statsRunID string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a run's statistics",
	Long:  "Prints the stored statistics of a run as JSON. Without --run the most recent run is used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runID := statsRunID
		if runID == "" {
			runs, err := st.ListRuns(ctx, 1)
			if err != nil {
				return eris.Wrap(err, "list runs")
			}
			if len(runs) == 0 {
				return eris.New("no runs recorded")
			}
			runID = runs[0].ID
		}

		run, err := st.GetRun(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "get run")
		}
		if run.Stats == nil {
			return eris.Errorf("run %s has no statistics yet (status %s)", run.ID, run.Status)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID         string  `json:"run_id"`
			Status        string  `json:"status"`
			DuplicateRate float64 `json:"duplicate_rate"`
			ValidityRate  float64 `json:"validity_rate"`
			Stats         any     `json:"stats"`
		}{
			RunID:         run.ID,
			Status:        string(run.Status),
			DuplicateRate: run.Stats.DuplicateRate(),
			ValidityRate:  run.Stats.ValidityRate(),
			Stats:         run.Stats,
		})
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsRunID, "run", "", "run ID (default: most recent)")
	rootCmd.AddCommand(statsCmd)
}
