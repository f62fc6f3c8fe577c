package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/server"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/store"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json")
	l.Info("hidden")
	l.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &line))
	assert.Equal(t, "shown", line["msg"])

	buf.Reset()
	newLogger(&buf, "bogus", "text").Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestPrintSearchResult(t *testing.T) {
	res := match.DatasetResult{
		Result:      match.Result{MinSAD: 0.5, Index: 7},
		SeriesID:    "series_3.csv",
		SeriesIndex: 3,
		Skipped:     []match.SkippedSeries{{Index: 1, ID: "series_1.csv", Reason: "query longer than series"}},
	}

	var buf bytes.Buffer
	printSearchResult(&buf, res, match.StrategyReduction, match.AxisWithinSeries, 4, time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "reduction (within-series)")
	assert.Contains(t, out, "3 of 4")
	assert.Contains(t, out, "series_3.csv (#3)")
	assert.Contains(t, out, "series_1.csv: query longer than series")
}

func TestPrintSearchJSON(t *testing.T) {
	res := match.DatasetResult{Result: match.Result{MinSAD: 2, Index: 1}, SeriesID: "a"}

	var buf bytes.Buffer
	require.NoError(t, printSearchJSON(&buf, res, 2*time.Second))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2.0, decoded["minSad"])
	assert.Equal(t, "a", decoded["seriesId"])
	assert.Equal(t, 2.0, decoded["elapsedSeconds"])
}

func TestPrintReport(t *testing.T) {
	r := &store.Report{
		SeriesCount:    2,
		SkippedSeries:  1,
		QueryLength:    3,
		TotalDataPoint: 100,
		Baseline:       store.RunRecord{Strategy: "sequential", Axis: "within-series", Threads: 1, Elapsed: time.Millisecond, Speedup: 1, Agrees: true},
		Runs: []store.RunRecord{
			{Strategy: "reduction", Axis: "within-series", Threads: 4, Elapsed: 500 * time.Microsecond, Speedup: 2, Agrees: true},
			{Strategy: "bottleneck", Axis: "within-series", Threads: 4, Elapsed: 2 * time.Millisecond, Speedup: 0.5, Agrees: false},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, r)

	out := buf.String()
	assert.Contains(t, out, "2 series, 100 points, query length 3 (1 skipped)")
	assert.Contains(t, out, "2.00x")
	assert.Contains(t, out, "NO")
	assert.Equal(t, 5, strings.Count(out, "\n")-3, "header, rule and three runs")
}

func TestStatus_ListAndGet(t *testing.T) {
	start := time.Now().Add(-time.Second)
	end := start.Add(500 * time.Millisecond)
	job := server.Job{
		ID:        "job-1",
		State:     server.StateCompleted,
		Config:    server.JobConfig{Kind: server.KindSearch, DataDir: "data", Strategy: "reduction", Axis: "within-series", Threads: 2},
		Progress:  server.Progress{Done: 1, Total: 1},
		Result:    &match.DatasetResult{Result: match.Result{MinSAD: 0, Index: 2}, SeriesID: "series_1.csv", SeriesIndex: 1},
		StartTime: start,
		EndTime:   &end,
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/jobs":
			json.NewEncoder(w).Encode([]server.Job{job})
		case "/api/v1/jobs/job-1/status":
			json.NewEncoder(w).Encode(statusResponse{Job: job, Elapsed: 0.5})
		default:
			http.Error(w, "Job not found", http.StatusNotFound)
		}
	}))
	defer ts.Close()

	var buf bytes.Buffer
	require.NoError(t, listJobs(ts.Client(), &buf, ts.URL+"/api/v1/jobs"))
	assert.Contains(t, buf.String(), "job-1")
	assert.Contains(t, buf.String(), "1/1")
	assert.Contains(t, buf.String(), "Found 1 job(s)")

	buf.Reset()
	require.NoError(t, getJobStatus(ts.Client(), &buf, ts.URL+"/api/v1/jobs/job-1/status", "job-1"))
	out := buf.String()
	assert.Contains(t, out, "State: completed")
	assert.Contains(t, out, "Series: series_1.csv (#1)")
	assert.Contains(t, out, "Elapsed: 500ms")

	err := getJobStatus(ts.Client(), &buf, ts.URL+"/api/v1/jobs/nope/status", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
}
