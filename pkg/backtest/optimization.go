// Genetic search for moving average crossover parameters
package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// OPTIMIZATION RESULT
// ============================================================================

// OptimizationResult pairs an individual with its fitness (final capital)
type OptimizationResult struct {
	Individual Individual `json:"individual"`
	Fitness    float64    `json:"fitness"`
}

// GenerationStats summarizes one evaluated generation
type GenerationStats struct {
	Generation     int        `json:"generation"` // 1-based
	Best           float64    `json:"best"`
	Worst          float64    `json:"worst"`
	Average        float64    `json:"average"`
	BestIndividual Individual `json:"best_individual"`
	BestSoFar      float64    `json:"best_so_far"` // Best fitness across all generations up to this one
}

// OptimizationSummary summarizes an optimization run
type OptimizationSummary struct {
	RunID            string              `json:"run_id"`
	Method           string              `json:"method"`
	Seed             int64               `json:"seed"`
	PopulationSize   int                 `json:"population_size"`
	Generations      int                 `json:"generations"`
	MutationRate     float64             `json:"mutation_rate"`
	Bounds           Bounds              `json:"bounds"`
	TotalEvaluations int                 `json:"total_evaluations"`
	Duration         time.Duration       `json:"duration"`
	Best             *OptimizationResult `json:"best"`
	History          []*GenerationStats  `json:"history"`
}

// Observer receives progress notifications from an optimization run.
// EvaluationCompleted may be called from several goroutines at once.
type Observer interface {
	EvaluationCompleted(duration time.Duration)
	GenerationEvaluated(stats *GenerationStats)
	SearchFinished(summary *OptimizationSummary, err error)
}

// ============================================================================
// GENETIC ALGORITHM OPTIMIZER
// ============================================================================

// GeneticOptimizer searches for the window pair with the highest final capital
// using truncation selection, uniform crossover and ±1 mutation.
//
// All random draws happen on the goroutine calling Optimize. Fitness
// evaluation is fanned out to a bounded worker pool, so a given seed yields
// the same result regardless of parallelism.
type GeneticOptimizer struct {
	bounds         Bounds
	evaluator      *CrossoverEvaluator
	populationSize int
	generations    int
	mutationRate   float64
	parallel       int
	rng            *rand.Rand
	seed           int64
	observer       Observer
	log            zerolog.Logger
}

// NewGeneticOptimizer creates a new genetic algorithm optimizer.
// Random seed is initialized with current time for non-deterministic behavior;
// use SetSeed() to set a specific seed for reproducible results.
func NewGeneticOptimizer(bounds Bounds, evaluator *CrossoverEvaluator) *GeneticOptimizer {
	seed := time.Now().UnixNano()
	return &GeneticOptimizer{
		bounds:         bounds,
		evaluator:      evaluator,
		populationSize: 50,
		generations:    50,
		mutationRate:   0.1,
		parallel:       runtime.NumCPU(),
		rng:            rand.New(rand.NewSource(seed)), // #nosec G404 -- Non-cryptographic use: genetic algorithm needs reproducible randomness
		seed:           seed,
		log:            log.With().Str("component", "optimizer").Logger(),
	}
}

// SetParameters configures genetic algorithm parameters
func (opt *GeneticOptimizer) SetParameters(popSize, gens int, mutRate float64) {
	opt.populationSize = popSize
	opt.generations = gens
	opt.mutationRate = mutRate
}

// SetSeed sets a specific random seed for reproducible results
func (opt *GeneticOptimizer) SetSeed(seed int64) {
	opt.seed = seed
	opt.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- Non-cryptographic use: genetic algorithm needs reproducible randomness
}

// SetParallelism sets the number of concurrent fitness evaluations
func (opt *GeneticOptimizer) SetParallelism(n int) {
	opt.parallel = n
}

// SetObserver registers a progress observer
func (opt *GeneticOptimizer) SetObserver(observer Observer) {
	opt.observer = observer
}

// SetLogger replaces the optimizer's logger
func (opt *GeneticOptimizer) SetLogger(logger zerolog.Logger) {
	opt.log = logger
}

// Seed returns the seed of the random source
func (opt *GeneticOptimizer) Seed() int64 {
	return opt.seed
}

// Validate checks the optimizer configuration and the price series.
// All problems are reported together.
func (opt *GeneticOptimizer) Validate(prices PriceSeries) error {
	var errs ValidationErrors

	if opt.populationSize < 2 {
		errs.invalid("population_size", "must be at least 2 so that at least one individual survives selection, got %d", opt.populationSize)
	}
	if opt.generations < 0 {
		errs.invalid("generations", "must not be negative, got %d", opt.generations)
	}
	if math.IsNaN(opt.mutationRate) || opt.mutationRate < 0 || opt.mutationRate > 1 {
		errs.invalid("mutation_rate", "must be within [0, 1], got %v", opt.mutationRate)
	}
	if opt.parallel < 1 {
		errs.invalid("parallelism", "must be at least 1, got %d", opt.parallel)
	}

	if opt.evaluator == nil {
		errs.invalid("evaluator", "is required")
	} else if math.IsNaN(opt.evaluator.InitialCapital) || math.IsInf(opt.evaluator.InitialCapital, 0) {
		errs.invalid("initial_capital", "must be a finite number, got %v", opt.evaluator.InitialCapital)
	}

	if len(prices) == 0 {
		errs.invalid("prices", "price series is empty")
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			errs.invalid("prices", "price at index %d is not a finite number", i)
			break
		}
	}

	opt.bounds.validate(&errs)

	return errs.orNil()
}

// Optimize performs genetic algorithm optimization.
//
// With generations == 0 the initial population is evaluated once and its best
// individual returned. Otherwise every generation is evaluated, the best
// fitness seen so far is tracked, the top half survives and the next
// generation is bred from the survivors.
func (opt *GeneticOptimizer) Optimize(ctx context.Context, prices PriceSeries) (summary *OptimizationSummary, err error) {
	if opt.observer != nil {
		defer func() {
			opt.observer.SearchFinished(summary, err)
		}()
	}

	// Reject bad input before any randomness is consumed
	if err := opt.Validate(prices); err != nil {
		return nil, err
	}

	// Every run replays the stream of its reported seed
	opt.rng = rand.New(rand.NewSource(opt.seed)) // #nosec G404 -- Non-cryptographic use: genetic algorithm needs reproducible randomness

	startTime := time.Now()
	runID := uuid.New().String()
	logger := opt.log.With().Str("run_id", runID).Logger()

	logger.Info().
		Int("population", opt.populationSize).
		Int("generations", opt.generations).
		Float64("mutation_rate", opt.mutationRate).
		Int("parallel", opt.parallel).
		Int64("seed", opt.seed).
		Int("prices", len(prices)).
		Msg("Starting genetic algorithm optimization")

	result := &OptimizationSummary{
		RunID:          runID,
		Method:         "genetic_algorithm",
		Seed:           opt.seed,
		PopulationSize: opt.populationSize,
		Generations:    opt.generations,
		MutationRate:   opt.mutationRate,
		Bounds:         opt.bounds,
	}

	// Initialize population
	population := opt.initializePopulation()

	var best *OptimizationResult
	bestFitness := math.Inf(-1)

	if opt.generations == 0 {
		evaluated, err := opt.evaluatePopulation(ctx, prices, population)
		if err != nil {
			return nil, fmt.Errorf("initial population evaluation cancelled: %w", err)
		}
		result.TotalEvaluations += len(evaluated)
		sortByFitness(evaluated)
		best = evaluated[0]
	}

	// Evolution loop
	for gen := 0; gen < opt.generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("optimization cancelled at generation %d: %w", gen+1, err)
		}

		logger.Debug().
			Int("generation", gen+1).
			Int("total", opt.generations).
			Msg("Evolving generation")

		// Evaluate fitness
		evaluated, err := opt.evaluatePopulation(ctx, prices, population)
		if err != nil {
			return nil, fmt.Errorf("optimization cancelled at generation %d: %w", gen+1, err)
		}
		result.TotalEvaluations += len(evaluated)

		// Sort by fitness, ties keep population order
		sortByFitness(evaluated)

		// Track best. The first generation always seeds it, even when every
		// fitness is -Inf or NaN.
		top := evaluated[0].Fitness
		if best == nil || top > bestFitness || (math.IsNaN(bestFitness) && !math.IsNaN(top)) {
			bestFitness = evaluated[0].Fitness
			best = evaluated[0]
		}

		stats := &GenerationStats{
			Generation:     gen + 1,
			Best:           evaluated[0].Fitness,
			Worst:          evaluated[len(evaluated)-1].Fitness,
			Average:        averageFitness(evaluated),
			BestIndividual: evaluated[0].Individual,
			BestSoFar:      bestFitness,
		}
		result.History = append(result.History, stats)
		if opt.observer != nil {
			opt.observer.GenerationEvaluated(stats)
		}

		logger.Info().
			Int("generation", stats.Generation).
			Float64("best_fitness", stats.Best).
			Float64("worst_fitness", stats.Worst).
			Float64("avg_fitness", stats.Average).
			Float64("best_so_far", stats.BestSoFar).
			Str("best_individual", stats.BestIndividual.String()).
			Msg("Generation complete")

		// Children of the last generation would never be evaluated
		if gen == opt.generations-1 {
			break
		}

		// Truncation selection
		survivors := evaluated[:opt.populationSize/2]
		population = opt.breed(survivors)
	}

	result.Best = &OptimizationResult{Individual: best.Individual, Fitness: best.Fitness}
	result.Duration = time.Since(startTime)

	logger.Info().
		Int("total_evaluations", result.TotalEvaluations).
		Str("best_individual", result.Best.Individual.String()).
		Float64("best_fitness", result.Best.Fitness).
		Dur("duration", result.Duration).
		Msg("Genetic algorithm optimization complete")

	return result, nil
}

// initializePopulation creates random initial population
func (opt *GeneticOptimizer) initializePopulation() []Individual {
	population := make([]Individual, opt.populationSize)
	for i := range population {
		population[i] = NewIndividual(opt.bounds, opt.rng)
	}
	return population
}

// evaluatePopulation evaluates fitness of all individuals. Results keep the
// population order so that tie-breaking does not depend on scheduling.
func (opt *GeneticOptimizer) evaluatePopulation(ctx context.Context, prices PriceSeries, population []Individual) ([]*OptimizationResult, error) {
	results := make([]*OptimizationResult, len(population))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.parallel)

	for i, ind := range population {
		i, ind := i, ind
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			started := time.Now()
			fitness := opt.evaluator.Fitness(prices, ind)
			if opt.observer != nil {
				opt.observer.EvaluationCompleted(time.Since(started))
			}

			results[i] = &OptimizationResult{Individual: ind, Fitness: fitness}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// breed fills a new population with mutated children of random survivor pairs
func (opt *GeneticOptimizer) breed(survivors []*OptimizationResult) []Individual {
	next := make([]Individual, 0, opt.populationSize)

	for len(next) < opt.populationSize {
		parent1 := opt.selectParent(survivors)
		parent2 := opt.selectParent(survivors)

		child := Crossover(parent1.Individual, parent2.Individual, opt.bounds, opt.rng)
		child = Mutate(child, opt.bounds, opt.mutationRate, opt.rng)

		next = append(next, child)
	}

	return next
}

// selectParent picks a survivor uniformly at random, with replacement
func (opt *GeneticOptimizer) selectParent(survivors []*OptimizationResult) *OptimizationResult {
	return survivors[opt.rng.Intn(len(survivors))]
}

// sortByFitness sorts results by fitness descending, keeping the original
// order of equal fitness values
func sortByFitness(results []*OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Fitness > results[j].Fitness
	})
}

// averageFitness calculates average fitness
func averageFitness(results []*OptimizationResult) float64 {
	if len(results) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range results {
		sum += r.Fitness
	}

	return sum / float64(len(results))
}

// ============================================================================
// SEARCH ENTRY POINT
// ============================================================================

// SearchConfig holds the inputs of a single search
type SearchConfig struct {
	PopulationSize int
	Generations    int
	Bounds         Bounds
	MutationRate   float64
	InitialCapital float64 // zero means DefaultInitialCapital
	Seed           int64   // zero means a time-based seed
	Parallelism    int     // zero means runtime.NumCPU()
}

// Search runs a genetic search with SMA crossover fitness and returns the
// best individual found together with its final capital.
func Search(ctx context.Context, prices PriceSeries, cfg SearchConfig) (Individual, float64, error) {
	initialCapital := cfg.InitialCapital
	if initialCapital == 0 {
		initialCapital = DefaultInitialCapital
	}

	opt := NewGeneticOptimizer(cfg.Bounds, NewCrossoverEvaluator(initialCapital, nil))
	opt.SetParameters(cfg.PopulationSize, cfg.Generations, cfg.MutationRate)
	if cfg.Seed != 0 {
		opt.SetSeed(cfg.Seed)
	}
	if cfg.Parallelism != 0 {
		opt.SetParallelism(cfg.Parallelism)
	}

	summary, err := opt.Optimize(ctx, prices)
	if err != nil {
		return Individual{}, math.Inf(-1), err
	}

	return summary.Best.Individual, summary.Best.Fitness, nil
}
