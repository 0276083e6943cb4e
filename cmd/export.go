package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taxakollen/taxa-cli/internal/export"
	"github.com/taxakollen/taxa-cli/internal/store"
)

var (
	exportRunID        string
	exportOutput       string
	exportMunicipality string
	exportCategory     string
	exportMinQuality   float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's representatives to a spreadsheet",
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

		run, err := st.GetRun(ctx, exportRunID)
		if err != nil {
			return eris.Wrap(err, "get run")
		}

		reps, err := st.ListRepresentatives(ctx, run.ID, store.RepFilter{
			Municipality: exportMunicipality,
			Category:     exportCategory,
			MinQuality:   exportMinQuality,
		})
		if err != nil {
			return eris.Wrap(err, "list representatives")
		}

		out := exportOutput
		if out == "" {
			out = cfg.Export.Path
		}
		if err := export.WriteXLSX(out, reps, run.Stats); err != nil {
			return err
		}

		zap.L().Info("exported spreadsheet",
			zap.String("run_id", run.ID),
			zap.String("path", out),
			zap.Int("representatives", len(reps)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run ID to export (required)")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "XLSX output path (default from config)")
	exportCmd.Flags().StringVar(&exportMunicipality, "municipality", "", "filter by municipality")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "filter by category")
	exportCmd.Flags().Float64Var(&exportMinQuality, "min-quality", 0, "minimum quality score")
	_ = exportCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(exportCmd)
}
