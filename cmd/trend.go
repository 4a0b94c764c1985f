package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
	"github.com/spf13/cobra"
)

var (
	trendTrait     string
	trendAncestry  string
	trendField     string
	trendDirection string
	trendOutput    string
	trendChartOut  string
)

var trendCmd = &cobra.Command{
	Use:   "trend [files...]",
	Short: "Export the per-year mean of a column for a trait and ancestry",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := criteria(cmd, trendTrait, trendAncestry)
		dir, err := direction(cmd, trendDirection)
		if err != nil {
			return err
		}
		field := gwas.TrendFieldFor(dir)
		if trendField != "" {
			if field, err = gwas.ParseField(trendField); err != nil {
				return err
			}
		}
		ds, err := loadDataset(cmd.Context(), args)
		if err != nil {
			return err
		}
		subset := gwas.Filter(ds.Records, c)
		if len(subset) == 0 {
			return errors.New(gwas.EmptyWarning)
		}
		t := gwas.Aggregate(subset, field, cfg.DatesAsYears)
		logger.Debug("aggregated trend", "field", field, "years", len(t.Points), "excluded", t.Excluded)
		if len(t.Points) == 0 {
			return gwas.ErrEmptyTrend
		}
		if trendOutput == "" || trendOutput == "-" {
			if err := t.WriteCSV(cmd.OutOrStdout()); err != nil {
				return err
			}
			return exportTrend(cmd, t, "", trendChartOut)
		}
		if err := exportTrend(cmd, t, trendOutput, trendChartOut); err != nil {
			return err
		}
		if t.Excluded > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠ Warning: %d rows had a missing or malformed year\n", t.Excluded)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trendCmd)
	trendCmd.Flags().StringVar(&trendTrait, "trait", "", "trait substring, case-insensitive (default from config)")
	trendCmd.Flags().StringVar(&trendAncestry, "ancestry", "", "ancestry substring, case-insensitive (default from config)")
	trendCmd.Flags().StringVar(&trendField, "field", "", "column to average: sample-size|associations (default follows direction)")
	trendCmd.Flags().StringVar(&trendDirection, "direction", "", "associations|sample-size (default from config)")
	trendCmd.Flags().StringVarP(&trendOutput, "output", "o", "", "write CSV to this path (default stdout)")
	trendCmd.Flags().StringVar(&trendChartOut, "chart-out", "", "also write a PNG chart to this path")
}
