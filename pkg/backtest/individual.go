package backtest

import (
	"fmt"
	"math/rand"
)

// ============================================================================
// INDIVIDUAL
// ============================================================================

// Individual is a candidate pair of moving average window lengths
type Individual struct {
	ShortWindow int `json:"short_window"`
	LongWindow  int `json:"long_window"`
}

// Valid reports whether the long window is strictly longer than the short window
func (ind Individual) Valid() bool {
	return ind.LongWindow > ind.ShortWindow
}

func (ind Individual) String() string {
	return fmt.Sprintf("(%d, %d)", ind.ShortWindow, ind.LongWindow)
}

// Bounds holds the inclusive ranges window lengths are drawn from
type Bounds struct {
	MinShort int `json:"min_short"`
	MaxShort int `json:"max_short"`
	MinLong  int `json:"min_long"`
	MaxLong  int `json:"max_long"`
}

// Validate checks that every bound is positive, no range is inverted and at
// least one valid pair exists. Bounds are static for a run so this is checked
// once up front instead of per individual.
func (b Bounds) Validate() error {
	var errs ValidationErrors
	b.validate(&errs)
	return errs.orNil()
}

func (b Bounds) validate(errs *ValidationErrors) {
	positive := true
	for _, f := range []struct {
		name  string
		value int
	}{
		{"min_short", b.MinShort},
		{"max_short", b.MaxShort},
		{"min_long", b.MinLong},
		{"max_long", b.MaxLong},
	} {
		if f.value < 1 {
			errs.invalid(f.name, "must be a positive integer, got %d", f.value)
			positive = false
		}
	}

	if b.MinShort > b.MaxShort {
		errs.invalid("min_short", "min_short %d is greater than max_short %d", b.MinShort, b.MaxShort)
	}
	if b.MinLong > b.MaxLong {
		errs.invalid("min_long", "min_long %d is greater than max_long %d", b.MinLong, b.MaxLong)
	}

	if positive && b.MaxLong <= b.MinShort {
		errs.degenerate("max_long", "max_long %d must be greater than min_short %d for any long window to exceed a short window", b.MaxLong, b.MinShort)
	}
}

// ============================================================================
// INDIVIDUAL FACTORY
// ============================================================================

// NewIndividual draws a random individual uniformly from the bounds.
// Bounds must have passed Validate.
func NewIndividual(b Bounds, rng *rand.Rand) Individual {
	ind := Individual{
		ShortWindow: b.MinShort + rng.Intn(b.MaxShort-b.MinShort+1),
		LongWindow:  b.MinLong + rng.Intn(b.MaxLong-b.MinLong+1),
	}
	return repair(ind, b)
}

// repair restores LongWindow > ShortWindow by moving the long window just
// above the short one. When that would exceed MaxLong the pair is pinned to
// (MaxLong-1, MaxLong), which validated bounds guarantee is in range.
func repair(ind Individual, b Bounds) Individual {
	if ind.LongWindow > ind.ShortWindow {
		return ind
	}

	ind.LongWindow = ind.ShortWindow + 1
	if ind.LongWindow > b.MaxLong {
		ind.LongWindow = b.MaxLong
		ind.ShortWindow = b.MaxLong - 1
	}
	return ind
}

// ============================================================================
// GENETIC OPERATORS
// ============================================================================

// Mutate perturbs each window by ±1 with probability mutationRate. The two
// decisions are independent coin flips. Each window is clamped to its range
// and the pair is repaired afterwards.
func Mutate(ind Individual, b Bounds, mutationRate float64, rng *rand.Rand) Individual {
	mutated := ind

	if rng.Float64() < mutationRate {
		mutated.ShortWindow = clamp(mutated.ShortWindow+randomStep(rng), b.MinShort, b.MaxShort)
	}

	if rng.Float64() < mutationRate {
		mutated.LongWindow = clamp(mutated.LongWindow+randomStep(rng), b.MinLong, b.MaxLong)
	}

	return repair(mutated, b)
}

// Crossover takes the child's short window from either parent with equal
// probability and, independently, its long window. The child is repaired so
// it is valid even without a following Mutate.
func Crossover(parent1, parent2 Individual, b Bounds, rng *rand.Rand) Individual {
	return repair(recombine(parent1, parent2, rng), b)
}

// recombine is uniform crossover without repair
func recombine(parent1, parent2 Individual, rng *rand.Rand) Individual {
	child := parent2
	if rng.Float64() < 0.5 {
		child.ShortWindow = parent1.ShortWindow
	}
	if rng.Float64() < 0.5 {
		child.LongWindow = parent1.LongWindow
	}
	return child
}

func randomStep(rng *rand.Rand) int {
	if rng.Float64() < 0.5 {
		return 1
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
