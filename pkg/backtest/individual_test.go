package backtest

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{MinShort: 2, MaxShort: 250, MinLong: 20, MaxLong: 500}

// ============================================================================
// BOUNDS TESTS
// ============================================================================

func TestBounds_Validate(t *testing.T) {
	tests := []struct {
		name       string
		bounds     Bounds
		wantErr    error
		wantFields []string
	}{
		{
			name:   "Valid overlapping ranges",
			bounds: testBounds,
		},
		{
			name:   "Valid tight ranges",
			bounds: Bounds{MinShort: 5, MaxShort: 5, MinLong: 6, MaxLong: 6},
		},
		{
			name:       "Inverted short range",
			bounds:     Bounds{MinShort: 10, MaxShort: 5, MinLong: 20, MaxLong: 30},
			wantErr:    ErrInvalidConfiguration,
			wantFields: []string{"min_short"},
		},
		{
			name:       "Inverted long range",
			bounds:     Bounds{MinShort: 2, MaxShort: 5, MinLong: 30, MaxLong: 20},
			wantErr:    ErrInvalidConfiguration,
			wantFields: []string{"min_long"},
		},
		{
			name:       "Zero bound",
			bounds:     Bounds{MinShort: 0, MaxShort: 5, MinLong: 20, MaxLong: 30},
			wantErr:    ErrInvalidConfiguration,
			wantFields: []string{"min_short"},
		},
		{
			name:       "Long windows never exceed short windows",
			bounds:     Bounds{MinShort: 10, MaxShort: 20, MinLong: 5, MaxLong: 10},
			wantErr:    ErrDegenerateBounds,
			wantFields: []string{"max_long"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bounds.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

// ============================================================================
// INDIVIDUAL FACTORY TESTS
// ============================================================================

func TestNewIndividual_WithinBoundsAndValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	boundsList := []Bounds{
		testBounds,
		{MinShort: 1, MaxShort: 10, MinLong: 1, MaxLong: 10},
		{MinShort: 5, MaxShort: 30, MinLong: 6, MaxLong: 12},
		{MinShort: 5, MaxShort: 5, MinLong: 6, MaxLong: 6},
	}

	for _, b := range boundsList {
		require.NoError(t, b.Validate())

		for i := 0; i < 2000; i++ {
			ind := NewIndividual(b, rng)

			assert.True(t, ind.Valid(), "invalid individual %s for bounds %+v", ind, b)
			assert.GreaterOrEqual(t, ind.ShortWindow, b.MinShort)
			assert.LessOrEqual(t, ind.ShortWindow, b.MaxShort)
			assert.GreaterOrEqual(t, ind.LongWindow, b.MinLong)
			assert.LessOrEqual(t, ind.LongWindow, b.MaxLong)
		}
	}
}

func TestNewIndividual_CoversRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := Bounds{MinShort: 1, MaxShort: 3, MinLong: 10, MaxLong: 12}

	shorts := make(map[int]bool)
	longs := make(map[int]bool)
	for i := 0; i < 500; i++ {
		ind := NewIndividual(b, rng)
		shorts[ind.ShortWindow] = true
		longs[ind.LongWindow] = true
	}

	assert.Len(t, shorts, 3)
	assert.Len(t, longs, 3)
}

func TestRepair(t *testing.T) {
	b := Bounds{MinShort: 2, MaxShort: 20, MinLong: 5, MaxLong: 15}

	tests := []struct {
		name string
		in   Individual
		want Individual
	}{
		{name: "Already valid", in: Individual{3, 10}, want: Individual{3, 10}},
		{name: "Equal windows", in: Individual{8, 8}, want: Individual{8, 9}},
		{name: "Long below short", in: Individual{10, 6}, want: Individual{10, 11}},
		{name: "Short at max long", in: Individual{15, 7}, want: Individual{14, 15}},
		{name: "Short above max long", in: Individual{20, 15}, want: Individual{14, 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repair(tt.in, b))
		})
	}
}

// ============================================================================
// GENETIC OPERATOR TESTS
// ============================================================================

func TestMutate_ZeroRateIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ind := Individual{ShortWindow: 10, LongWindow: 50}

	for i := 0; i < 100; i++ {
		assert.Equal(t, ind, Mutate(ind, testBounds, 0, rng))
	}
}

func TestMutate_StepsByOne(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ind := Individual{ShortWindow: 100, LongWindow: 300}

	for i := 0; i < 500; i++ {
		mutated := Mutate(ind, testBounds, 1.0, rng)

		shortDelta := mutated.ShortWindow - ind.ShortWindow
		longDelta := mutated.LongWindow - ind.LongWindow
		assert.Contains(t, []int{-1, 1}, shortDelta)
		assert.Contains(t, []int{-1, 1}, longDelta)
	}
}

func TestMutate_ClampsToBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := Bounds{MinShort: 2, MaxShort: 10, MinLong: 20, MaxLong: 30}

	for i := 0; i < 500; i++ {
		low := Mutate(Individual{ShortWindow: 2, LongWindow: 20}, b, 1.0, rng)
		assert.GreaterOrEqual(t, low.ShortWindow, 2)
		assert.GreaterOrEqual(t, low.LongWindow, 20)

		high := Mutate(Individual{ShortWindow: 10, LongWindow: 30}, b, 1.0, rng)
		assert.LessOrEqual(t, high.ShortWindow, 10)
		assert.LessOrEqual(t, high.LongWindow, 30)
	}
}

func TestMutate_PreservesInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	b := Bounds{MinShort: 1, MaxShort: 20, MinLong: 2, MaxLong: 21}

	ind := Individual{ShortWindow: 10, LongWindow: 11}
	for i := 0; i < 5000; i++ {
		ind = Mutate(ind, b, 0.5, rng)
		require.True(t, ind.Valid(), "iteration %d produced %s", i, ind)
	}
}

func TestMutate_RepairsShortOnlyMutation(t *testing.T) {
	b := Bounds{MinShort: 1, MaxShort: 20, MinLong: 2, MaxLong: 21}

	// Pushing the short window onto the long window must not leave an equal pair
	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		mutated := Mutate(Individual{ShortWindow: 10, LongWindow: 11}, b, 1.0, rng)
		assert.True(t, mutated.Valid(), "seed %d produced %s", seed, mutated)
	}
}

func TestRecombine_TakesGenesFromParents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	parent1 := Individual{ShortWindow: 5, LongWindow: 20}
	parent2 := Individual{ShortWindow: 15, LongWindow: 16}

	seen := make(map[Individual]bool)
	for i := 0; i < 500; i++ {
		child := recombine(parent1, parent2, rng)
		assert.Contains(t, []int{5, 15}, child.ShortWindow)
		assert.Contains(t, []int{20, 16}, child.LongWindow)
		seen[child] = true
	}

	// Both genes are chosen independently, so all four combinations appear
	assert.Len(t, seen, 4)
}

// Uniform crossover of two valid parents can produce an invalid pair; this is
// why Crossover repairs its child.
func TestRecombine_CanBreakInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	parent1 := Individual{ShortWindow: 20, LongWindow: 25}
	parent2 := Individual{ShortWindow: 5, LongWindow: 10}
	require.True(t, parent1.Valid())
	require.True(t, parent2.Valid())

	violated := false
	for i := 0; i < 200 && !violated; i++ {
		child := recombine(parent1, parent2, rng)
		if !child.Valid() {
			violated = true
			assert.Equal(t, Individual{ShortWindow: 20, LongWindow: 10}, child)
		}
	}

	assert.True(t, violated, "expected recombination to produce (20, 10)")
}

func TestCrossover_AlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := Bounds{MinShort: 2, MaxShort: 30, MinLong: 5, MaxLong: 40}
	parent1 := Individual{ShortWindow: 20, LongWindow: 25}
	parent2 := Individual{ShortWindow: 5, LongWindow: 10}

	for i := 0; i < 500; i++ {
		child := Crossover(parent1, parent2, b, rng)
		require.True(t, child.Valid(), "crossover produced %s", child)

		if child.ShortWindow == 20 && child.LongWindow != 25 {
			assert.Equal(t, 21, child.LongWindow)
		}
	}
}

func TestIndividual_String(t *testing.T) {
	assert.Equal(t, "(5, 20)", Individual{ShortWindow: 5, LongWindow: 20}.String())
}
