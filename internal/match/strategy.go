package match

import (
	"fmt"
	"strings"
)

// Strategy identifies a scanner implementation.
type Strategy string

const (
	StrategySequential  Strategy = "sequential"
	StrategyBottleneck  Strategy = "bottleneck"
	StrategyLocalReduce Strategy = "local-reduce"
	StrategyReduction   Strategy = "reduction"
)

// SearchFunc is the common signature of every scanner.
type SearchFunc func(series, query []float64, opts ...Option) (Result, error)

// NormalizeStrategy maps arbitrary user input to a canonical strategy name.
// Unrecognised input is returned unchanged.
func NormalizeStrategy(name string) Strategy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sequential", "seq":
		return StrategySequential
	case "bottleneck", "critical":
		return StrategyBottleneck
	case "local-reduce", "local", "standard":
		return StrategyLocalReduce
	case "reduction", "reduce":
		return StrategyReduction
	default:
		return Strategy(name)
	}
}

// ParseStrategy normalizes name and rejects unknown strategies.
func ParseStrategy(name string) (Strategy, error) {
	s := NormalizeStrategy(name)
	if _, err := s.Searcher(); err != nil {
		return "", err
	}
	return s, nil
}

// SupportedStrategies lists every strategy, baseline first.
func SupportedStrategies() []Strategy {
	return []Strategy{StrategySequential, StrategyBottleneck, StrategyLocalReduce, StrategyReduction}
}

// ParallelStrategies lists the strategies that use a worker pool.
func ParallelStrategies() []Strategy {
	return []Strategy{StrategyBottleneck, StrategyLocalReduce, StrategyReduction}
}

// Searcher returns the scanner for s.
func (s Strategy) Searcher() (SearchFunc, error) {
	switch s {
	case StrategySequential:
		return SearchSequential, nil
	case StrategyBottleneck:
		return SearchBottleneck, nil
	case StrategyLocalReduce:
		return SearchLocalReduce, nil
	case StrategyReduction:
		return SearchReduction, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, string(s))
	}
}

// Search runs the scanner selected by strategy.
func Search(strategy Strategy, series, query []float64, opts ...Option) (Result, error) {
	search, err := strategy.Searcher()
	if err != nil {
		return NoMatch(), err
	}
	return search(series, query, opts...)
}
