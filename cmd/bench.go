package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/bench"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

var (
	benchStrategies []string
	benchAxes       []string
	benchThreads    []int
	benchRepeats    int
	benchEarlyExit  bool
	benchSave       bool
	reportsDir      string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time every strategy against the sequential baseline",
	Long: `Runs the sequential baseline once, then every configured combination of
axis, strategy and worker count, keeping the fastest of --repeats timings.
Each run is checked against the baseline match. With --save the report and
a per-repetition trace are written to the reports directory.`,
	RunE: runBench,
}

func init() {
	addDataFlags(benchCmd)
	benchCmd.Flags().StringSliceVar(&benchStrategies, "strategies", nil, "Strategies to time (default from config)")
	benchCmd.Flags().StringSliceVar(&benchAxes, "axes", nil, "Axes to time (default from config)")
	benchCmd.Flags().IntSliceVar(&benchThreads, "threads", nil, "Worker counts to time (default from config)")
	benchCmd.Flags().IntVar(&benchRepeats, "repeats", 3, "Timings per run; the fastest is kept")
	benchCmd.Flags().BoolVar(&benchEarlyExit, "early-exit", false, "Stop each worker at its first exact match")
	benchCmd.Flags().BoolVar(&benchSave, "save", false, "Persist the report")
	benchCmd.Flags().StringVar(&reportsDir, "reports-dir", "./reports", "Directory for saved reports")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("strategies") {
		cfg.Bench.Strategies = benchStrategies
	}
	if flags.Changed("axes") {
		cfg.Bench.Axes = benchAxes
	}
	if flags.Changed("threads") {
		cfg.Bench.Threads = benchThreads
	}
	if flags.Changed("repeats") {
		cfg.Bench.Repeats = benchRepeats
	}
	if flags.Changed("early-exit") {
		cfg.Search.EarlyExit = benchEarlyExit
	}
	if flags.Changed("reports-dir") {
		cfg.Server.ReportsDir = reportsDir
	}
	if err := applyDataFlags(cmd); err != nil {
		return err
	}

	bcfg := bench.Config{
		Threads:   cfg.Bench.Threads,
		Repeats:   cfg.Bench.Repeats,
		EarlyExit: cfg.Search.EarlyExit,
		ID:        uuid.NewString(),
		DataDir:   cfg.Data.Dir,
		Prefix:    cfg.Data.Prefix,
		QueryPath: cfg.QueryPath(),
		Logger:    logger,
	}
	for _, name := range cfg.Bench.Strategies {
		s, err := match.ParseStrategy(name)
		if err != nil {
			return err
		}
		bcfg.Strategies = append(bcfg.Strategies, s)
	}
	for _, name := range cfg.Bench.Axes {
		a, err := match.ParseAxis(name)
		if err != nil {
			return err
		}
		bcfg.Axes = append(bcfg.Axes, a)
	}

	ds, query, err := loadInputs(cmd.Context())
	if err != nil {
		return err
	}

	var reports *store.FSStore
	if benchSave {
		reports, err = store.NewFSStore(cfg.Server.ReportsDir)
		if err != nil {
			return fmt.Errorf("failed to create report store: %w", err)
		}
		tw, err := store.NewTraceWriter(reports.BaseDir(), bcfg.ID)
		if err != nil {
			return err
		}
		defer tw.Close()
		bcfg.Tracer = tw
	}

	report, err := bench.Run(cmd.Context(), ds, query, bcfg)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)

	if reports != nil {
		if err := reports.SaveReport(report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Printf("\nReport saved: %s\n", report.ID)
	}
	if !report.AllAgree() {
		return fmt.Errorf("some runs disagree with the sequential baseline")
	}
	return nil
}

// printReport renders a report as a speedup table.
func printReport(w io.Writer, r *store.Report) {
	fmt.Fprintf(w, "Dataset: %d series, %d points, query length %d", r.SeriesCount, r.TotalDataPoint, r.QueryLength)
	if r.SkippedSeries > 0 {
		fmt.Fprintf(w, " (%d skipped)", r.SkippedSeries)
	}
	fmt.Fprintf(w, "\nMachine: %s/%s, %d CPUs, GOMAXPROCS=%d, cache line %dB\n\n",
		r.Environment.GOOS, r.Environment.GOARCH, r.Environment.NumCPU, r.Environment.GOMAXPROCS, r.Environment.CacheLine)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tAXIS\tTHREADS\tELAPSED\tSPEEDUP\tMIN SAD\tSERIES\tOFFSET\tAGREES")
	fmt.Fprintln(tw, "--------\t----\t-------\t-------\t-------\t-------\t------\t------\t------")
	for _, run := range append([]store.RunRecord{r.Baseline}, r.Runs...) {
		agrees := "yes"
		if !run.Agrees {
			agrees = "NO"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.2fx\t%g\t%s\t%d\t%s\n",
			run.Strategy,
			run.Axis,
			run.Threads,
			run.Elapsed.Round(time.Microsecond),
			run.Speedup,
			run.MinSAD,
			run.SeriesID,
			run.Index,
			agrees,
		)
	}
	tw.Flush()
}
