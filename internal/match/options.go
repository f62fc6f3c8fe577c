package match

import (
	"log/slog"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"
)

// Options tunes a search call.
type Options struct {
	// Threads is the worker count of a parallel region (0 = GOMAXPROCS).
	Threads int
	// EarlyExit stops each worker at the first zero-cost offset of its chunk.
	// Off by default so that timings stay comparable across strategies.
	EarlyExit bool
	// Logger receives dispatcher diagnostics (nil = slog.Default()).
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithThreads sets the worker count. Values <= 0 select the default.
func WithThreads(n int) Option {
	return func(o *Options) {
		o.Threads = n
	}
}

// WithEarlyExit enables the zero-cost short circuit.
func WithEarlyExit() Option {
	return func(o *Options) {
		o.EarlyExit = true
	}
}

// WithLogger sets the logger used for skipped-series diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// workers resolves the configured thread count against n offsets.
func (o Options) workers(n int) int {
	return parallel.Workers(o.Threads, n)
}
