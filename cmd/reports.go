package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
	showJSON      bool
	showTrace     bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage saved benchmark reports",
	Long:  `List, inspect and clean the benchmark reports written by "bench --save" and by bench jobs of the server.`,
}

var listReportsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved reports",
	RunE:  runListReports,
}

var showReportCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowReport,
}

var cleanReportsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old reports",
	Long: `Delete reports based on a retention policy: keep only the newest N reports,
delete reports older than N days, or both.`,
	RunE: runCleanReports,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(listReportsCmd)
	reportsCmd.AddCommand(showReportCmd)
	reportsCmd.AddCommand(cleanReportsCmd)

	reportsCmd.PersistentFlags().StringVar(&reportsDir, "reports-dir", "./reports", "Directory of saved reports")

	showReportCmd.Flags().BoolVar(&showJSON, "json", false, "Print the raw report JSON")
	showReportCmd.Flags().BoolVar(&showTrace, "trace", false, "Also print every timed repetition")

	cleanReportsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N reports (0 = keep all)")
	cleanReportsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete reports older than N days (0 = no age limit)")
	cleanReportsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openReports(cmd *cobra.Command) (*store.FSStore, error) {
	if cmd.Flags().Changed("reports-dir") {
		cfg.Server.ReportsDir = reportsDir
	}
	reports, err := store.NewFSStore(cfg.Server.ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}
	return reports, nil
}

func runListReports(cmd *cobra.Command, args []string) error {
	reports, err := openReports(cmd)
	if err != nil {
		return err
	}

	infos, err := reports.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No reports found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPORT ID\tCREATED\tDATA\tSERIES\tRUNS\tBASELINE\tBEST RUN\tSPEEDUP\tSIZE")
	fmt.Fprintln(w, "---------\t-------\t----\t------\t----\t--------\t--------\t-------\t----")

	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := getDirSize(filepath.Join(reports.BaseDir(), "reports", info.ID)); err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%.2fx\t%s\n",
			shortID(info.ID),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.DataDir,
			info.SeriesCount,
			info.Runs,
			info.Baseline.Round(time.Microsecond),
			info.BestRun,
			info.BestSpeedup,
			sizeStr,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal reports: %d\n", len(infos))
	return nil
}

func runShowReport(cmd *cobra.Command, args []string) error {
	reports, err := openReports(cmd)
	if err != nil {
		return err
	}

	report, err := reports.LoadReport(args[0])
	if err != nil {
		return err
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Report %s (%s)\n", report.ID, report.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Data: %s, query %s\n", report.Config.DataDir, report.Config.QueryPath)
	printReport(os.Stdout, report)

	if !showTrace {
		return nil
	}
	entries, err := store.ReadTrace(reports.BaseDir(), report.ID)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tAXIS\tTHREADS\tREPEAT\tELAPSED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", e.Strategy, e.Axis, e.Threads, e.Repeat, e.Elapsed.Round(time.Microsecond))
	}
	w.Flush()
	return nil
}

func runCleanReports(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	reports, err := openReports(cmd)
	if err != nil {
		return err
	}

	infos, err := reports.ListReports()
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No reports to clean.")
		return nil
	}

	toDelete := selectReportsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Println("No reports match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d report(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %d runs)\n",
			shortID(info.ID),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Runs,
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := reports.DeleteReport(info.ID); err != nil {
			slog.Error("Failed to delete report", "report_id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted report", "report_id", info.ID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d report(s), %d failed.\n", deleted, failed)
	return nil
}

// selectReportsForDeletion applies the retention policy. A report is
// deleted if it is older than the age limit or beyond the newest keepLast.
// The result is ordered oldest first.
func selectReportsForDeletion(infos []store.ReportInfo, keepLast, olderThanDays int, now time.Time) []store.ReportInfo {
	sorted := slices.Clone(infos)
	slices.SortFunc(sorted, func(a, b store.ReportInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	cutoff := now.AddDate(0, 0, -olderThanDays)
	var toDelete []store.ReportInfo
	for i, info := range sorted {
		tooOld := olderThanDays > 0 && info.CreatedAt.Before(cutoff)
		beyondKeep := keepLast > 0 && i >= keepLast
		if tooOld || beyondKeep {
			toDelete = append(toDelete, info)
		}
	}
	slices.Reverse(toDelete)
	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
