package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	cfgpkg "github.com/KaramelBytes/gwastrend/internal/config"
	"github.com/KaramelBytes/gwastrend/internal/gwas"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string
	srcKind   string
	sheetName string
	delimiter string

	// Loaded configuration
	cfg *cfgpkg.Global

	// Diagnostics logger (stderr); user-facing output goes to cmd.OutOrStdout()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "gwastrend",
	Short: "Predict GWAS association counts and chart sample-size trends",
	Long: `gwastrend loads a GWAS catalog split over several CSV parts, filters it by
trait and ancestry, predicts association count from sample size (or the
reverse) with a seeded random forest, and reports the per-year trend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return loadConfig() }
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.gwastrend/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&srcKind, "source", "", "input strategy: parts|glob|xlsx (overrides config)")
	rootCmd.PersistentFlags().StringVar(&sheetName, "sheet", "", "worksheet name for xlsx input (default first sheet)")
	rootCmd.PersistentFlags().StringVar(&delimiter, "delimiter", "", "CSV delimiter: ','|';'|'tab'|'|' (default sniffed from extension)")
}

func loadConfig() error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	f := rootCmd.PersistentFlags()
	if f.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if f.Changed("source") {
		cfg.Source = srcKind
	}
	if f.Changed("sheet") {
		cfg.Sheet = sheetName
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = delimiter
	}
	logger = newLogger(os.Stderr, cfg.LogFormat, debug)
	slog.SetDefault(logger)
	return nil
}

func newLogger(w io.Writer, format string, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadOptions builds loader options from the effective configuration.
func loadOptions() (gwas.Options, error) {
	opt := gwas.DefaultOptions()
	opt.Sheet = cfg.Sheet
	opt.DatesAsYears = cfg.DatesAsYears
	switch strings.ToLower(cfg.Delimiter) {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	case "\t", "\\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", cfg.Delimiter)
	}
	return opt, nil
}

// resolveSource turns positional file arguments, or the configured
// data_files when there are none, into a dataset source.
func resolveSource(args []string) (gwas.Source, error) {
	files := args
	if len(files) == 0 {
		files = cfg.DataFiles
	}
	kind := cfg.Source
	if kind == "" {
		kind = "parts"
	}
	return gwas.NewSource(kind, files)
}

// loadDataset loads and cleans the dataset named by args.
func loadDataset(ctx context.Context, args []string) (*gwas.Dataset, error) {
	src, err := resolveSource(args)
	if err != nil {
		return nil, err
	}
	opt, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return gwas.NewCache(opt, logger).Get(ctx, src)
}

// modelOptions applies model overrides (zero means "use config") on top of
// the configured model settings.
func modelOptions(seed int64, seedSet bool, trees int) gwas.ModelOptions {
	m := gwas.ModelOptions{
		Trees:           cfg.Trees,
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		Seed:            cfg.Seed,
	}
	if seedSet {
		m.Seed = seed
	}
	if trees > 0 {
		m.Trees = trees
	}
	return m
}

// criteria resolves --trait/--ancestry against the configured defaults.
func criteria(cmd *cobra.Command, trait, ancestry string) gwas.Criteria {
	c := gwas.Criteria{Trait: cfg.DefaultTrait, Ancestry: cfg.DefaultAncestry}
	if cmd.Flags().Changed("trait") {
		c.Trait = trait
	}
	if cmd.Flags().Changed("ancestry") {
		c.Ancestry = ancestry
	}
	return c
}

// direction resolves --direction against the configured default.
func direction(cmd *cobra.Command, flag string) (gwas.Direction, error) {
	if cmd.Flags().Changed("direction") {
		return gwas.ParseDirection(flag)
	}
	return gwas.ParseDirection(cfg.Direction)
}
