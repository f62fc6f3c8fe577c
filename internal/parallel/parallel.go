// Package parallel is the small fork-join runtime used by the search kernel.
//
// Every parallel region splits an index space [0, n) into contiguous,
// ascending chunks, runs one goroutine per chunk and blocks until all of
// them have returned. There is no work stealing and no cancellation: a
// region always runs to completion.
package parallel

import (
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Range is a half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.Hi - r.Lo
}

// Slot holds one worker-owned value padded to a full cache line, so that a
// slice of slots never places two workers' values on the same line.
type Slot[T any] struct {
	V T
	_ cpu.CacheLinePad
}

// PadSize is the number of padding bytes appended to every Slot.
const PadSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// DefaultWorkers is the worker count used when none is requested.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// Workers resolves a requested worker count against n units of work.
// Non-positive requests fall back to DefaultWorkers. The result is never
// larger than n and never smaller than 1.
func Workers(requested, n int) int {
	w := requested
	if w <= 0 {
		w = DefaultWorkers()
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Chunks splits [0, n) into at most workers contiguous ranges whose lengths
// differ by at most one. Earlier chunks take the remainder.
func Chunks(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	workers = Workers(workers, n)

	chunks := make([]Range, workers)
	base, rem := n/workers, n%workers
	lo := 0
	for w := range workers {
		size := base
		if w < rem {
			size++
		}
		chunks[w] = Range{Lo: lo, Hi: lo + size}
		lo += size
	}
	return chunks
}

// For runs body once per chunk of [0, n) and waits for all of them.
// With a single chunk the body runs on the calling goroutine.
func For(n, workers int, body func(worker int, r Range)) {
	chunks := Chunks(n, workers)
	switch len(chunks) {
	case 0:
		return
	case 1:
		body(0, chunks[0])
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for w, r := range chunks {
		go func() {
			defer wg.Done()
			body(w, r)
		}()
	}
	wg.Wait()
}

// Reduce folds [0, n) in parallel. Each worker starts from identity and
// folds its own chunk; the per-worker partials are then combined pairwise
// as a binary tree. combine must be associative and commutative.
//
// For n == 0 the identity is returned.
func Reduce[T any](n, workers int, identity T, fold func(acc T, r Range) T, combine func(a, b T) T) T {
	chunks := Chunks(n, workers)
	if len(chunks) == 0 {
		return identity
	}

	partials := make([]Slot[T], len(chunks))
	For(n, len(chunks), func(w int, r Range) {
		partials[w].V = fold(identity, r)
	})

	return combineTree(partials, combine)
}

// combineTree reduces partials in place, level by level. Pairs on the same
// level are independent and are combined concurrently.
func combineTree[T any](partials []Slot[T], combine func(a, b T) T) T {
	for step := 1; step < len(partials); step *= 2 {
		pairs := 0
		for i := 0; i+step < len(partials); i += 2 * step {
			pairs++
		}
		if pairs == 1 {
			partials[0].V = combine(partials[0].V, partials[step].V)
			continue
		}

		var wg sync.WaitGroup
		wg.Add(pairs)
		for i := 0; i+step < len(partials); i += 2 * step {
			go func() {
				defer wg.Done()
				partials[i].V = combine(partials[i].V, partials[i+step].V)
			}()
		}
		wg.Wait()
	}
	return partials[0].V
}
