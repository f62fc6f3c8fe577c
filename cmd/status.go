package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/server"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	if len(args) == 0 {
		return listJobs(client, os.Stdout, serverURL+"/api/v1/jobs")
	}
	jobID := args[0]
	return getJobStatus(client, os.Stdout, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

// fetchJSON GETs url and decodes a 200 response into v.
func fetchJSON(client *http.Client, url string, v any) (int, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(client *http.Client, out io.Writer, url string) error {
	var jobs []server.Job
	if _, err := fetchJSON(client, url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tKIND\tSTATE\tPROGRESS\tDATA\tELAPSED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			job.ID, job.Config.Kind, job.State,
			job.Progress.Done, job.Progress.Total,
			job.Config.DataDir,
			job.Elapsed().Round(time.Millisecond))
	}
	w.Flush()
	fmt.Fprintf(out, "\nFound %d job(s)\n", len(jobs))
	return nil
}

type statusResponse struct {
	server.Job
	Elapsed float64 `json:"elapsed"`
}

func getJobStatus(client *http.Client, out io.Writer, url, jobID string) error {
	var status statusResponse
	code, err := fetchJSON(client, url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}
	printJobStatus(out, &status)
	return nil
}

func printJobStatus(out io.Writer, status *statusResponse) {
	jc := status.Config
	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n\n", status.State)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Kind: %s\n", jc.Kind)
	fmt.Fprintf(out, "  Data: %s (prefix %q)\n", jc.DataDir, jc.Prefix)
	fmt.Fprintf(out, "  Query: %s\n", jc.QueryPath)
	if jc.Kind == server.KindBench {
		fmt.Fprintf(out, "  Strategies: %v\n", jc.Bench.Strategies)
		fmt.Fprintf(out, "  Axes: %v\n", jc.Bench.Axes)
		fmt.Fprintf(out, "  Threads: %v\n", jc.Bench.Threads)
		fmt.Fprintf(out, "  Repeats: %d\n", jc.Bench.Repeats)
	} else {
		fmt.Fprintf(out, "  Strategy: %s\n", jc.Strategy)
		fmt.Fprintf(out, "  Axis: %s\n", jc.Axis)
		fmt.Fprintf(out, "  Threads: %d\n", jc.Threads)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Done: %d/%d\n", status.Progress.Done, status.Progress.Total)
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if res := status.Result; res != nil {
		fmt.Fprintln(out, "\nResult:")
		fmt.Fprintf(out, "  Min SAD: %g\n", res.MinSAD)
		fmt.Fprintf(out, "  Series: %s (#%d)\n", res.SeriesID, res.SeriesIndex)
		fmt.Fprintf(out, "  Index: %d\n", res.Index)
		if len(res.Skipped) > 0 {
			fmt.Fprintf(out, "  Skipped series: %d\n", len(res.Skipped))
		}
	}
	if status.ReportID != "" {
		fmt.Fprintf(out, "\nReport: %s\n", status.ReportID)
	}
	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}
}
