package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/macross/pkg/backtest"
)

func TestNormalizeSearchStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "Success", err: nil, want: StatusSuccess},
		{name: "Invalid configuration", err: backtest.ErrInvalidConfiguration, want: StatusInvalid},
		{name: "Degenerate bounds", err: backtest.Bounds{MinShort: 10, MaxShort: 20, MinLong: 5, MaxLong: 10}.Validate(), want: StatusInvalid},
		{name: "Timeout", err: fmt.Errorf("optimization cancelled at generation 3: %w", context.DeadlineExceeded), want: StatusTimeout},
		{name: "Cancelled", err: fmt.Errorf("optimization cancelled at generation 1: %w", context.Canceled), want: StatusCancelled},
		{name: "Other", err: errors.New("boom"), want: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSearchStatus(tt.err))
		})
	}
}

func TestSearchMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSearchMetrics(reg)

	m.EvaluationCompleted(2 * time.Millisecond)
	m.EvaluationCompleted(3 * time.Millisecond)
	m.GenerationEvaluated(&backtest.GenerationStats{Generation: 1, Best: 10500, Average: 10100, BestSoFar: 10500})
	m.GenerationEvaluated(&backtest.GenerationStats{Generation: 2, Best: 10400, Average: 10200, BestSoFar: 10500})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, 10400.0, testutil.ToFloat64(m.GenerationBestFitness))
	assert.Equal(t, 10200.0, testutil.ToFloat64(m.GenerationAvgFitness))
	assert.Equal(t, 10500.0, testutil.ToFloat64(m.BestFitness))
	assert.Equal(t, 1, testutil.CollectAndCount(m.EvaluationDuration))

	m.SearchFinished(&backtest.OptimizationSummary{
		Best:     &backtest.OptimizationResult{Individual: backtest.Individual{ShortWindow: 5, LongWindow: 20}, Fitness: 10500},
		Duration: time.Second,
	}, nil)
	m.SearchFinished(nil, backtest.ErrInvalidConfiguration)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRuns.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRuns.WithLabelValues(StatusInvalid)))
}

func TestSearchMetrics_WithOptimizer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSearchMetrics(reg)

	prices := make(backtest.PriceSeries, 120)
	for i := range prices {
		prices[i] = 100 + float64(i%15) - float64(i%7)
	}

	opt := backtest.NewGeneticOptimizer(
		backtest.Bounds{MinShort: 2, MaxShort: 10, MinLong: 5, MaxLong: 30},
		backtest.NewCrossoverEvaluator(backtest.DefaultInitialCapital, nil),
	)
	opt.SetParameters(8, 3, 0.2)
	opt.SetSeed(42)
	opt.SetObserver(m)

	summary, err := opt.Optimize(context.Background(), prices)
	require.NoError(t, err)

	assert.Equal(t, 24.0, testutil.ToFloat64(m.Evaluations))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, summary.Best.Fitness, testutil.ToFloat64(m.BestFitness))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRuns.WithLabelValues(StatusSuccess)))

	expected := fmt.Sprintf(`
# HELP macross_generations_total Total number of evaluated generations
# TYPE macross_generations_total counter
macross_generations_total %d
`, 3)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "macross_generations_total"))
}

func TestNewSearchMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSearchMetrics(reg)

	assert.Panics(t, func() { NewSearchMetrics(reg) })
	assert.NotPanics(t, func() { NewSearchMetrics(nil) })
}
