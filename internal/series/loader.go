// Package series loads numeric sequences from delimited text files.
//
// The expected layout is one record per line, `timestamp;value`. The
// timestamp column is ignored. Records that are missing the value column or
// whose value does not parse are skipped rather than rejected.
package series

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
)

const (
	// DefaultPrefix selects the series files of a data directory.
	DefaultPrefix = "series_"
	// Delimiter separates the columns of a record.
	Delimiter = ';'
)

// ErrNoSeries is returned by LoadDir when nothing could be loaded.
var ErrNoSeries = errors.New("no series found")

// Parse reads the value column of every record in r. It returns the values
// and the number of records that were skipped as malformed.
func Parse(r io.Reader) ([]float64, int, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	var values []float64
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("failed to read record: %w", err)
		}

		if len(record) < 2 {
			skipped++
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			skipped++
			continue
		}
		values = append(values, v)
	}
	return values, skipped, nil
}

// ReadFile loads the values of a single file.
func ReadFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series: %w", err)
	}
	defer f.Close()

	values, skipped, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if skipped > 0 {
		slog.Debug("Skipped malformed records", "path", path, "skipped", skipped)
	}
	return values, nil
}

// LoadOptions configures LoadDir.
type LoadOptions struct {
	// Prefix filters file names (default DefaultPrefix).
	Prefix string
	// Concurrency bounds the number of files read at once (0 = 8).
	Concurrency int
}

// LoadDir reads every regular file in dir whose name starts with the
// configured prefix. Files are read concurrently; a file that cannot be
// read is logged and left out. The dataset is ordered by file name and
// each series is identified by its file name.
func LoadDir(ctx context.Context, dir string, opts LoadOptions) (match.Dataset, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 8
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}

	loaded := make([]*match.Series, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values, err := ReadFile(filepath.Join(dir, name))
			if err != nil {
				slog.Error("Failed to load series", "file", name, "error", err)
				return nil
			}
			loaded[i] = &match.Series{ID: name, Values: values}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := make(match.Dataset, 0, len(loaded))
	for _, s := range loaded {
		if s != nil {
			ds = append(ds, *s)
		}
	}
	if len(ds) == 0 {
		return nil, fmt.Errorf("%w in %s with prefix %q", ErrNoSeries, dir, prefix)
	}

	slog.Info("Loaded dataset", "dir", dir, "series", len(ds), "failed", len(names)-len(ds))
	return ds, nil
}
