package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storepulse/internal/ingest"
)

var seedDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load menu_hours.csv, store_status.csv and timezones.csv into the database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := ingest.NewLoader(a.store, a.logger).LoadDir(cmd.Context(), seedDir)
		if err != nil {
			return err
		}
		a.logger.Info("seed complete",
			zap.Int("business_hours", sum.BusinessHours),
			zap.Int("observations", sum.Observations),
			zap.Int("timezones", sum.Timezones),
			zap.Int("skipped", sum.Skipped))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "data", "directory holding the CSV files")
}
