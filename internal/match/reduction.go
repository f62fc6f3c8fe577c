package match

import "github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"

// SearchReduction hands Combine to the parallel runtime as a reduction
// operator. Each worker folds its chunk starting from NoMatch and the
// runtime tree-combines the partial results; no lock appears here.
func SearchReduction(series, query []float64, opts ...Option) (Result, error) {
	last, err := lastOffset(series, query)
	if err != nil {
		return NoMatch(), err
	}
	o := buildOptions(opts)
	n := last + 1

	fold := func(acc Result, r parallel.Range) Result {
		return scan(series, query, r, acc, o.EarlyExit)
	}
	return parallel.Reduce(n, o.workers(n), NoMatch(), fold, Combine), nil
}
