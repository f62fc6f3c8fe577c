package match

import (
	"math"
	"sync"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"
)

// SearchBottleneck shares one Result between all workers behind a mutex.
//
// Each worker keeps a local view of the shared best cost and takes the lock
// for every offset that could improve or tie it. Contention therefore grows
// with the number of improving offsets. This strategy is the baseline the
// others are measured against, not a recommended design.
func SearchBottleneck(series, query []float64, opts ...Option) (Result, error) {
	last, err := lastOffset(series, query)
	if err != nil {
		return NoMatch(), err
	}
	o := buildOptions(opts)
	n := last + 1

	var mu sync.Mutex
	best := NoMatch()

	parallel.For(n, o.workers(n), func(_ int, r parallel.Range) {
		view := math.Inf(1)
		for i := r.Lo; i < r.Hi; i++ {
			c := Cost(series, query, i)
			if c > view {
				continue
			}

			// Merge order between workers is arbitrary, so the comparison
			// must include the index tie-break.
			cand := Result{MinSAD: c, Index: i}
			mu.Lock()
			if cand.Better(best) {
				best = cand
			}
			view = best.MinSAD
			mu.Unlock()

			if o.EarlyExit && c == 0 {
				return
			}
		}
	})

	return best, nil
}
