package match

import "github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"

// SearchSequential scans every window offset in increasing order on the
// calling goroutine. It is the reference the parallel strategies are
// checked against: updates happen only on strict improvement, so ties
// resolve to the lowest offset.
func SearchSequential(series, query []float64, opts ...Option) (Result, error) {
	last, err := lastOffset(series, query)
	if err != nil {
		return NoMatch(), err
	}
	o := buildOptions(opts)

	return scan(series, query, parallel.Range{Lo: 0, Hi: last + 1}, NoMatch(), o.EarlyExit), nil
}

// scan folds the offsets of r into best, ascending.
func scan(series, query []float64, r parallel.Range, best Result, earlyExit bool) Result {
	for i := r.Lo; i < r.Hi; i++ {
		c := Cost(series, query, i)
		if c < best.MinSAD {
			best = Result{MinSAD: c, Index: i}
			if earlyExit && c == 0 {
				break
			}
		}
	}
	return best
}
