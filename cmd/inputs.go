package main

import (
	"context"
	"fmt"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/series"
)

// loadInputs reads the dataset and the query selected by cfg.
func loadInputs(ctx context.Context) (match.Dataset, []float64, error) {
	logger.Info("Loading query", "path", cfg.QueryPath())
	query, err := series.ReadFile(cfg.QueryPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load query: %w", err)
	}

	ds, err := series.LoadDir(ctx, cfg.Data.Dir, series.LoadOptions{
		Prefix:      cfg.Data.Prefix,
		Concurrency: cfg.Data.LoadConcurrency,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return ds, query, nil
}
