package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/macross/pkg/backtest"
)

// Search run outcomes (bounded set used as the status label)
const (
	StatusSuccess   = "success"
	StatusInvalid   = "invalid_configuration"
	StatusCancelled = "cancelled"
	StatusTimeout   = "timeout"
	StatusError     = "error"
)

// NormalizeSearchStatus maps a search error to the bounded status set
func NormalizeSearchStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, backtest.ErrInvalidConfiguration), errors.Is(err, backtest.ErrDegenerateBounds):
		return StatusInvalid
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	default:
		return StatusError
	}
}

// SearchMetrics records genetic search progress in Prometheus.
// It implements backtest.Observer.
type SearchMetrics struct {
	Generations           prometheus.Counter
	Evaluations           prometheus.Counter
	EvaluationDuration    prometheus.Histogram
	GenerationBestFitness prometheus.Gauge
	GenerationAvgFitness  prometheus.Gauge
	BestFitness           prometheus.Gauge
	SearchRuns            *prometheus.CounterVec
	SearchDuration        prometheus.Histogram
}

var _ backtest.Observer = (*SearchMetrics)(nil)

// NewSearchMetrics creates search metrics registered with reg.
// A nil reg creates unregistered metrics.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	factory := promauto.With(reg)

	return &SearchMetrics{
		Generations: factory.NewCounter(prometheus.CounterOpts{
			Name: "macross_generations_total",
			Help: "Total number of evaluated generations",
		}),
		Evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "macross_evaluations_total",
			Help: "Total number of fitness evaluations",
		}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "macross_evaluation_duration_seconds",
			Help:    "Duration of a single fitness evaluation",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		GenerationBestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "macross_generation_best_fitness",
			Help: "Best final capital in the latest generation",
		}),
		GenerationAvgFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "macross_generation_avg_fitness",
			Help: "Average final capital in the latest generation",
		}),
		BestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "macross_best_fitness",
			Help: "Best final capital found so far",
		}),
		SearchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "macross_search_runs_total",
			Help: "Total number of search runs by outcome",
		}, []string{"status"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "macross_search_duration_seconds",
			Help:    "Wall clock duration of successful search runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}),
	}
}

// EvaluationCompleted records one fitness evaluation
func (m *SearchMetrics) EvaluationCompleted(duration time.Duration) {
	m.Evaluations.Inc()
	m.EvaluationDuration.Observe(duration.Seconds())
}

// GenerationEvaluated records the statistics of one generation
func (m *SearchMetrics) GenerationEvaluated(stats *backtest.GenerationStats) {
	m.Generations.Inc()
	m.GenerationBestFitness.Set(stats.Best)
	m.GenerationAvgFitness.Set(stats.Average)
	m.BestFitness.Set(stats.BestSoFar)
}

// SearchFinished records the outcome of a run
func (m *SearchMetrics) SearchFinished(summary *backtest.OptimizationSummary, err error) {
	m.SearchRuns.WithLabelValues(NormalizeSearchStatus(err)).Inc()
	if err != nil || summary == nil {
		return
	}

	if summary.Best != nil {
		m.BestFitness.Set(summary.Best.Fitness)
	}
	m.SearchDuration.Observe(summary.Duration.Seconds())
}
