package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/config"
	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/match"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// applyDefaults fills the fields a request left empty from the server
// configuration.
func applyDefaults(jc *JobConfig, cfg *config.Config) {
	if jc.Kind == "" {
		jc.Kind = KindSearch
	}
	if jc.DataDir == "" {
		jc.DataDir = cfg.Data.Dir
		if jc.QueryPath == "" {
			jc.QueryPath = cfg.QueryPath()
		}
	}
	if jc.QueryPath == "" {
		jc.QueryPath = filepath.Join(jc.DataDir, config.DefaultQueryFile)
	}
	if jc.Prefix == "" {
		jc.Prefix = cfg.Data.Prefix
	}
	if jc.Strategy == "" {
		jc.Strategy = cfg.Search.Strategy
	}
	if jc.Axis == "" {
		jc.Axis = cfg.Search.Axis
	}
	if jc.Threads == 0 {
		jc.Threads = cfg.Search.Threads
	}

	if jc.Kind == KindBench {
		b := &jc.Bench
		if len(b.Strategies) == 0 {
			b.Strategies = cfg.Bench.Strategies
		}
		if len(b.Axes) == 0 {
			b.Axes = cfg.Bench.Axes
		}
		if len(b.Threads) == 0 {
			b.Threads = cfg.Bench.Threads
		}
		if b.Repeats == 0 {
			b.Repeats = cfg.Bench.Repeats
		}
	}
}

// validateJobConfig rejects requests that could never run.
func validateJobConfig(jc JobConfig) error {
	if jc.Kind != KindSearch && jc.Kind != KindBench {
		return fmt.Errorf("unknown kind %q", jc.Kind)
	}
	if jc.Threads < 0 {
		return fmt.Errorf("threads must not be negative")
	}
	if _, err := match.ParseStrategy(jc.Strategy); err != nil {
		return err
	}
	if _, err := match.ParseAxis(jc.Axis); err != nil {
		return err
	}
	if jc.Kind != KindBench {
		return nil
	}
	for _, s := range jc.Bench.Strategies {
		if _, err := match.ParseStrategy(s); err != nil {
			return err
		}
	}
	for _, a := range jc.Bench.Axes {
		if _, err := match.ParseAxis(a); err != nil {
			return err
		}
	}
	for _, t := range jc.Bench.Threads {
		if t < 1 {
			return fmt.Errorf("bench threads must be positive, got %d", t)
		}
	}
	if jc.Bench.Repeats < 0 {
		return fmt.Errorf("repeats must not be negative")
	}
	return nil
}
