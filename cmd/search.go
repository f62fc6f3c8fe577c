package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
)

var (
	searchStrategy  string
	searchAxis      string
	searchThreads   int
	searchEarlyExit bool
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the best match of the query across the dataset",
	Long: `Loads every series file of the data directory and the query, then reports
the window with the lowest sum of absolute differences together with the
series it belongs to. Series shorter than the query are skipped.`,
	RunE: runSearch,
}

func init() {
	addDataFlags(searchCmd)
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", "reduction", "Strategy (sequential, bottleneck, local-reduce, reduction)")
	searchCmd.Flags().StringVar(&searchAxis, "axis", "within-series", "Parallel axis (over-series, within-series)")
	searchCmd.Flags().IntVarP(&searchThreads, "threads", "t", 0, "Worker count (0 = GOMAXPROCS)")
	searchCmd.Flags().BoolVar(&searchEarlyExit, "early-exit", false, "Stop each worker at its first exact match")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Search.Strategy = searchStrategy
	}
	if flags.Changed("axis") {
		cfg.Search.Axis = searchAxis
	}
	if flags.Changed("threads") {
		cfg.Search.Threads = searchThreads
	}
	if flags.Changed("early-exit") {
		cfg.Search.EarlyExit = searchEarlyExit
	}
	if err := applyDataFlags(cmd); err != nil {
		return err
	}

	strategy, err := match.ParseStrategy(cfg.Search.Strategy)
	if err != nil {
		return err
	}
	axis, err := match.ParseAxis(cfg.Search.Axis)
	if err != nil {
		return err
	}

	ds, query, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}

	opts := []match.Option{match.WithThreads(cfg.Search.Threads), match.WithLogger(logger)}
	if cfg.Search.EarlyExit {
		opts = append(opts, match.WithEarlyExit())
	}

	start := time.Now()
	res, err := match.SearchDataset(ds, query, axis, strategy, opts...)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	logger.Info("Search finished",
		"strategy", strategy,
		"axis", axis,
		"elapsed", elapsed,
		"min_sad", res.MinSAD,
		"series", res.SeriesID,
		"index", res.Index)

	if searchJSON {
		return printSearchJSON(os.Stdout, res, elapsed)
	}
	printSearchResult(os.Stdout, res, strategy, axis, len(ds), elapsed)
	return nil
}

func printSearchJSON(w io.Writer, res match.DatasetResult, elapsed time.Duration) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		match.DatasetResult
		ElapsedSeconds float64 `json:"elapsedSeconds"`
	}{res, elapsed.Seconds()})
}

func printSearchResult(w io.Writer, res match.DatasetResult, strategy match.Strategy, axis match.Axis, seriesCount int, elapsed time.Duration) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Strategy:\t%s (%s)\n", strategy, axis)
	fmt.Fprintf(tw, "Series searched:\t%d of %d\n", seriesCount-len(res.Skipped), seriesCount)
	fmt.Fprintf(tw, "Best series:\t%s (#%d)\n", res.SeriesID, res.SeriesIndex)
	fmt.Fprintf(tw, "Offset:\t%d\n", res.Index)
	fmt.Fprintf(tw, "Min SAD:\t%g\n", res.MinSAD)
	fmt.Fprintf(tw, "Elapsed:\t%s\n", elapsed.Round(time.Microsecond))
	tw.Flush()

	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, "\nSkipped series:")
		for _, s := range res.Skipped {
			fmt.Fprintf(w, "  - %s: %s\n", s.ID, s.Reason)
		}
	}
}
