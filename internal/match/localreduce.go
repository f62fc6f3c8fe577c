package match

import (
	"sync"

	"github.com/alessiadonati2000/ParallelComputing-PatternRecogniton/internal/parallel"
)

// SearchLocalReduce gives every worker its own cache-line padded Result
// slot. A worker updates its slot without synchronization over its whole
// chunk and then merges into the shared result under the mutex exactly
// once, so contention is bounded by the worker count.
func SearchLocalReduce(series, query []float64, opts ...Option) (Result, error) {
	last, err := lastOffset(series, query)
	if err != nil {
		return NoMatch(), err
	}
	o := buildOptions(opts)
	n := last + 1
	workers := o.workers(n)

	slots := make([]parallel.Slot[Result], workers)

	var mu sync.Mutex
	global := NoMatch()

	parallel.For(n, workers, func(w int, r parallel.Range) {
		local := &slots[w].V
		*local = NoMatch()

		for i := r.Lo; i < r.Hi; i++ {
			c := Cost(series, query, i)
			if c < local.MinSAD {
				*local = Result{MinSAD: c, Index: i}
				if o.EarlyExit && c == 0 {
					break
				}
			}
		}

		mu.Lock()
		global = Combine(global, *local)
		mu.Unlock()
	})

	return global, nil
}
