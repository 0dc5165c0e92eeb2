// Crossover Optimizer CLI
// Searches for the moving average window pair with the highest final capital
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/macross/internal/config"
	"github.com/ajitpratap0/macross/internal/indicators"
	"github.com/ajitpratap0/macross/internal/market"
	"github.com/ajitpratap0/macross/internal/metrics"
	"github.com/ajitpratap0/macross/pkg/backtest"
)

// ============================================================================
// CLI FLAGS
// ============================================================================

var (
	configPath = flag.String("config", "", "Path to config file (default ./configs/config.yaml)")

	// Data overrides
	dataPath = flag.String("data", "", "Price file (csv, json or yaml); overrides data.path")
	column   = flag.String("column", "", "CSV column holding prices; overrides data.column")

	// Search overrides
	seed = flag.Int64("seed", 0, "Random seed for reproducible runs; overrides search.seed")

	// Output
	outputFile = flag.String("output", "", "Write the search summary and metrics as JSON (optional)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

// result is the JSON document written with -output
type result struct {
	Summary    *backtest.OptimizationSummary `json:"summary"`
	Metrics    *backtest.Metrics             `json:"metrics"`
	Simulation *backtest.Simulation          `json:"simulation"`
}

// ============================================================================
// MAIN
// ============================================================================

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	applyFlags(cfg)

	level := cfg.App.LogLevel
	if *verbose {
		level = "debug"
	}
	config.InitLogger(level, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Search.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Search.Timeout)
		defer cancel()
	}

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Optimization failed")
		stop()
		os.Exit(1)
	}
}

// applyFlags overrides configuration values with explicitly set flags
func applyFlags(cfg *config.Config) {
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *column != "" {
		cfg.Data.Column = *column
	}
	if *seed != 0 {
		cfg.Search.Seed = *seed
	}
}

// ============================================================================
// OPTIMIZATION
// ============================================================================

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Data.Path == "" {
		return errors.New("no price data: set data.path or pass -data")
	}

	average, err := indicators.ByKind(indicators.Kind(cfg.Strategy.Average))
	if err != nil {
		return err
	}

	prices, err := market.LoadPrices(cfg.Data.Path, market.LoadOptions{
		Format: cfg.Data.Format,
		Column: cfg.Data.Column,
	})
	if err != nil {
		return err
	}

	sc := cfg.GetSearchConfig()
	evaluator := backtest.NewCrossoverEvaluator(sc.InitialCapital, average)

	optimizer := backtest.NewGeneticOptimizer(sc.Bounds, evaluator)
	optimizer.SetParameters(sc.PopulationSize, sc.Generations, sc.MutationRate)
	optimizer.SetLogger(config.NewLogger("optimizer"))
	if sc.Seed != 0 {
		optimizer.SetSeed(sc.Seed)
	}
	if sc.Parallelism != 0 {
		optimizer.SetParallelism(sc.Parallelism)
	}

	if cfg.Monitoring.EnableMetrics {
		shutdown, err := startMetrics(cfg.Monitoring.PrometheusPort, optimizer)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	log.Info().
		Str("data", cfg.Data.Path).
		Int("prices", len(prices)).
		Str("average", cfg.Strategy.Average).
		Float64("capital", sc.InitialCapital).
		Int64("seed", optimizer.Seed()).
		Msg("Starting crossover optimization")

	summary, err := optimizer.Optimize(ctx, prices)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	// Replay the best pair for trade statistics
	sim := evaluator.Simulate(prices, summary.Best.Individual)
	m, err := backtest.CalculateMetrics(sim)
	if err != nil {
		return err
	}

	log.Info().
		Str("best_individual", summary.Best.Individual.String()).
		Float64("fitness", summary.Best.Fitness).
		Float64("return_pct", m.TotalReturnPct).
		Int("trades", m.TotalTrades).
		Float64("win_rate", m.WinRate).
		Float64("max_drawdown_pct", m.MaxDrawdownPct).
		Dur("duration", summary.Duration).
		Msg("Optimization complete")

	fmt.Printf("Best individual: %s, fitness: %.2f\n", summary.Best.Individual, summary.Best.Fitness)

	if *outputFile != "" {
		if err := writeJSON(*outputFile, result{Summary: summary, Metrics: m, Simulation: sim}); err != nil {
			return err
		}
		log.Info().Str("file", *outputFile).Msg("Results written to file")
	}

	return nil
}

// startMetrics registers search metrics on a fresh registry and serves them
func startMetrics(port int, optimizer *backtest.GeneticOptimizer) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	optimizer.SetObserver(metrics.NewSearchMetrics(reg))

	server := metrics.NewServer(port, reg, log.Logger)
	if err := server.Start(); err != nil {
		return nil, err
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- results are meant to be shared
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
