package cmd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
	"github.com/KaramelBytes/gwastrend/internal/utils"
	"github.com/spf13/cobra"
)

var (
	predTrait     string
	predAncestry  string
	predValue     float64
	predDirection string
	predDual      bool
	predAlt       float64
	predField     string
	predSeed      int64
	predTrees     int
	predTrendOut  string
	predChartOut  string
	predFormat    string
)

var predictCmd = &cobra.Command{
	Use:   "predict [files...]",
	Short: "Predict association count (or sample size) for a trait and ancestry",
	Long: `Loads the dataset parts (default: configured data_files), keeps rows whose
trait and ancestry contain the given substrings, fits a seeded random forest
on the matches and predicts for --value. The per-year trend of the predictor
column is printed and can be exported with --trend-out / --chart-out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("value") {
			return fmt.Errorf("--value is required")
		}
		dir, err := direction(cmd, predDirection)
		if err != nil {
			return err
		}
		p := gwas.Params{
			Criteria:     criteria(cmd, predTrait, predAncestry),
			KnownValue:   predValue,
			Direction:    dir,
			Dual:         predDual,
			Model:        modelOptions(predSeed, cmd.Flags().Changed("seed"), predTrees),
			DatesAsYears: cfg.DatesAsYears,
		}
		if cmd.Flags().Changed("alt") {
			alt := predAlt
			p.AlternateValue = &alt
			p.Dual = true
		}
		if predField != "" {
			f, err := gwas.ParseField(predField)
			if err != nil {
				return err
			}
			p.TrendField = f
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if predFormat != "text" && predFormat != "json" && predFormat != "yaml" {
			return fmt.Errorf("unsupported --format: %s (use text, json or yaml)", predFormat)
		}

		ds, err := loadDataset(cmd.Context(), args)
		if err != nil {
			return err
		}
		res, err := (&gwas.Pipeline{Logger: logger}).Run(cmd.Context(), ds.Records, p)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if predFormat == "text" {
			printResult(out, ds, res)
		} else {
			b, err := utils.Encode(res, predFormat)
			if err != nil {
				return err
			}
			_, _ = out.Write(b)
		}
		if res.Trend == nil || len(res.Trend.Points) == 0 {
			return nil
		}
		return exportTrend(cmd, res.Trend, predTrendOut, predChartOut)
	},
}

func printResult(out io.Writer, ds *gwas.Dataset, res *gwas.Result) {
	fmt.Fprintf(out, "✓ Loaded %s: %d rows (%d after cleaning)\n", ds.Name, ds.Raw, len(ds.Records))
	fmt.Fprintf(out, "Matched %d of %d rows for trait %q, ancestry %q\n",
		res.Matched, res.Total, res.Criteria.Trait, res.Criteria.Ancestry)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "⚠ Warning: %s\n", w)
	}
	if res.Prediction != nil {
		fmt.Fprintf(out, "✓ %s\n", res.Prediction.Message())
	}
	if res.Alternate != nil {
		fmt.Fprintf(out, "✓ %s\n", res.Alternate.Message())
	}
	if res.Trend != nil && len(res.Trend.Points) > 0 {
		printTrend(out, res.Trend)
	}
}

func printTrend(out io.Writer, t *gwas.Trend) {
	fmt.Fprintf(out, "\n%s\n", t.Title())
	h := t.Header()
	fmt.Fprintf(out, "%-6s  %s\n", h[0], h[1])
	for _, pt := range t.Points {
		fmt.Fprintf(out, "%-6.0f  %.2f\n", pt.Year, pt.Mean)
	}
}

// exportTrend writes the CSV and/or PNG chart when paths are given.
func exportTrend(cmd *cobra.Command, t *gwas.Trend, csvPath, chartPath string) error {
	out := cmd.OutOrStdout()
	if csvPath != "" {
		b, err := t.CSV()
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(csvPath, b); err != nil {
			return fmt.Errorf("write trend csv: %w", err)
		}
		fmt.Fprintf(out, "✓ Wrote trend to %s\n", csvPath)
	}
	if chartPath != "" {
		var buf bytes.Buffer
		if err := gwas.RenderChart(&buf, t, gwas.DefaultChartOptions()); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(chartPath, buf.Bytes()); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(out, "✓ Wrote chart to %s\n", chartPath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVar(&predTrait, "trait", "", "trait substring, case-insensitive (default from config)")
	predictCmd.Flags().StringVar(&predAncestry, "ancestry", "", "ancestry substring, case-insensitive (default from config)")
	predictCmd.Flags().Float64Var(&predValue, "value", 0, "known sample size (or association count with --direction sample-size)")
	predictCmd.Flags().StringVar(&predDirection, "direction", "", "associations|sample-size (default from config)")
	predictCmd.Flags().BoolVar(&predDual, "dual", false, "train both directions")
	predictCmd.Flags().Float64Var(&predAlt, "alt", 0, "input for the opposite direction (implies --dual)")
	predictCmd.Flags().StringVar(&predField, "field", "", "trend column: sample-size|associations (default follows direction)")
	predictCmd.Flags().Int64Var(&predSeed, "seed", 0, "random seed (default from config)")
	predictCmd.Flags().IntVar(&predTrees, "trees", 0, "number of trees (default from config)")
	predictCmd.Flags().StringVar(&predTrendOut, "trend-out", "", "write the trend CSV to this path")
	predictCmd.Flags().StringVar(&predChartOut, "chart-out", "", "write the trend chart PNG to this path")
	predictCmd.Flags().StringVar(&predFormat, "format", "text", "output format: text|json|yaml")
}
