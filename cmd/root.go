package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// cfg is resolved once per invocation: defaults, then --config, then flags.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "patternmatch",
	Short: "Parallel SAD pattern search over time series",
	Long: `patternmatch finds the window of a time-series dataset that best matches a
query sequence under the sum of absolute differences, using a sequential
scanner or one of three parallel strategies, and benchmarks them against
each other.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if flags.Changed("log-format") {
			cfg.Log.Format = logFormat
		}

		logger = newLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (json, text)")
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// applyDataFlags copies the data-selection flags that were set onto cfg
// and validates the result.
func applyDataFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Data.Dir = dataDir
	}
	if flags.Changed("prefix") {
		cfg.Data.Prefix = prefix
	}
	if flags.Changed("query") {
		cfg.Data.Query = queryPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

var (
	dataDir   string
	prefix    string
	queryPath string
)

// addDataFlags registers the flags shared by commands that read a dataset.
func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory holding the series files")
	cmd.Flags().StringVar(&prefix, "prefix", "series_", "File name prefix selecting series files")
	cmd.Flags().StringVar(&queryPath, "query", "", "Query file (default <data-dir>/query.csv)")
}
