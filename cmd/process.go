package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taxakollen/taxa-cli/internal/export"
	"github.com/taxakollen/taxa-cli/internal/ingest"
	"github.com/taxakollen/taxa-cli/internal/pipeline"
)

var (
	processInput  string
	processExport string
	processNoSave bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a JSONL file of scraped fee records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tables, err := loadTables()
		if err != nil {
			return eris.Wrap(err, "load reference tables")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateRun(ctx)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		p := pipeline.New(cfg.Pipeline, tables)

		recCh, errCh := ingest.StreamJSONL(ctx, processInput)
		if err := p.ProcessStream(ctx, recCh, cfg.Pipeline.Workers); err != nil {
			_ = st.FailRun(ctx, run.ID)
			return eris.Wrap(err, "process stream")
		}
		if err := <-errCh; err != nil {
			_ = st.FailRun(ctx, run.ID)
			return eris.Wrap(err, "read input")
		}

		stats := p.Stats()
		if !processNoSave {
			if err := st.SaveClusters(ctx, run.ID, p.Clusters()); err != nil {
				_ = st.FailRun(ctx, run.ID)
				return eris.Wrap(err, "save clusters")
			}
		}
		if err := st.CompleteRun(ctx, run.ID, &stats); err != nil {
			return eris.Wrap(err, "complete run")
		}

		if processExport != "" {
			if err := export.WriteXLSX(processExport, p.Representatives(), &stats); err != nil {
				return err
			}
			zap.L().Info("exported spreadsheet", zap.String("path", processExport))
		}

		p.LogSummary()
		zap.L().Info("run complete", zap.String("run_id", run.ID))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	processCmd.Flags().StringVar(&processInput, "input", "", "JSONL file of scraped records (required)")
	processCmd.Flags().StringVar(&processExport, "export", "", "write representatives to this XLSX path")
	processCmd.Flags().BoolVar(&processNoSave, "no-save", false, "skip persisting clusters")
	_ = processCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(processCmd)
}
