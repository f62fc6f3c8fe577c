package match

import "math"

// Cost returns the SAD between query and the window of series starting at
// offset. The caller guarantees 0 <= offset <= len(series)-len(query); the
// bound is not rechecked here.
func Cost(series, query []float64, offset int) float64 {
	window := series[offset : offset+len(query)]

	var sad float64
	for j, q := range query {
		sad += math.Abs(window[j] - q)
	}
	return sad
}
