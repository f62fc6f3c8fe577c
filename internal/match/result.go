package match

import (
	"fmt"
	"math"
)

// Result is the best window found by a search.
//
// MinSAD is the smallest Sum of Absolute Differences seen and Index is the
// starting offset of that window. The empty result is {+Inf, -1}; a found
// result always has 0 <= Index <= len(series)-len(query).
type Result struct {
	MinSAD float64 `json:"minSad"`
	Index  int     `json:"index"`
}

// NoMatch returns the empty result used to seed every accumulator.
func NoMatch() Result {
	return Result{MinSAD: math.Inf(1), Index: -1}
}

// Found reports whether r holds an actual window.
func (r Result) Found() bool {
	return r.Index >= 0
}

// Better reports whether r should replace other: lower cost wins, and on an
// exact tie the lower offset wins.
func (r Result) Better(other Result) bool {
	if r.MinSAD < other.MinSAD {
		return true
	}
	return r.MinSAD == other.MinSAD && r.Index < other.Index
}

func (r Result) String() string {
	if !r.Found() {
		return "no match"
	}
	return fmt.Sprintf("sad=%g index=%d", r.MinSAD, r.Index)
}

// Combine is the reduction operator over results: min by cost, smaller index
// on an exact tie. It is associative and commutative, and NoMatch is its
// identity.
func Combine(a, b Result) Result {
	if b.Better(a) {
		return b
	}
	return a
}
