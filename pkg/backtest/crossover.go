// Moving average crossover simulation used as the fitness function
package backtest

import (
	"github.com/ajitpratap0/macross/internal/indicators"
)

// DefaultInitialCapital is the starting capital when none is configured
const DefaultInitialCapital = 10000.0

// PriceSeries is an ordered, read-only sequence of prices indexed by time step
type PriceSeries []float64

// Trade is one completed round trip of the long-only strategy
type Trade struct {
	EntryIndex  int     `json:"entry_index"`
	ExitIndex   int     `json:"exit_index"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	Profit      float64 `json:"profit"`
	ForcedClose bool    `json:"forced_close"` // closed at the last price because the series ended
}

// TradeEvent marks an entry or exit together with the realized capital at that point
type TradeEvent struct {
	Index   int     `json:"index"`
	Capital float64 `json:"capital"`
}

// Simulation is a detailed record of one strategy run
type Simulation struct {
	Individual      Individual   `json:"individual"`
	InitialCapital  float64      `json:"initial_capital"`
	FinalCapital    float64      `json:"final_capital"`
	CapitalTimeline []float64    `json:"capital_timeline"` // realized capital after each index
	Trades          []*Trade     `json:"trades"`
	Buys            []TradeEvent `json:"buys"`
	Sells           []TradeEvent `json:"sells"`
}

// CrossoverEvaluator scores individuals by simulating a long-only moving
// average crossover strategy. It holds no mutable state and may be shared
// between goroutines.
type CrossoverEvaluator struct {
	InitialCapital float64
	Average        indicators.Func
}

// NewCrossoverEvaluator creates an evaluator. A nil average defaults to SMA.
func NewCrossoverEvaluator(initialCapital float64, average indicators.Func) *CrossoverEvaluator {
	if average == nil {
		average = indicators.SMA
	}
	return &CrossoverEvaluator{
		InitialCapital: initialCapital,
		Average:        average,
	}
}

// Fitness returns the final capital of the strategy for the individual
func (e *CrossoverEvaluator) Fitness(prices PriceSeries, ind Individual) float64 {
	return e.simulate(prices, ind, nil)
}

// Simulate runs the strategy and records the capital timeline and every trade
func (e *CrossoverEvaluator) Simulate(prices PriceSeries, ind Individual) *Simulation {
	sim := &Simulation{
		Individual:      ind,
		InitialCapital:  e.InitialCapital,
		CapitalTimeline: make([]float64, 0, len(prices)),
	}
	sim.FinalCapital = e.simulate(prices, ind, sim)
	return sim
}

// EvaluateStrategy returns the final capital of an SMA crossover strategy
// with the given windows, entering long when the short average rises strictly
// above the long average and exiting when it falls strictly below.
func EvaluateStrategy(shortWindow, longWindow int, prices PriceSeries, initialCapital float64) float64 {
	evaluator := NewCrossoverEvaluator(initialCapital, indicators.SMA)
	return evaluator.Fitness(prices, Individual{ShortWindow: shortWindow, LongWindow: longWindow})
}

// simulate walks the series once. rec may be nil when only the final capital
// is needed.
func (e *CrossoverEvaluator) simulate(prices PriceSeries, ind Individual, rec *Simulation) float64 {
	average := e.Average
	if average == nil {
		average = indicators.SMA
	}

	shortLine := average(prices, ind.ShortWindow)
	longLine := average(prices, ind.LongWindow)

	capital := e.InitialCapital
	inPosition := false
	entryPrice := 0.0
	entryIndex := 0

	for i, price := range prices {
		short, shortOK := shortLine.At(i)
		long, longOK := longLine.At(i)

		if shortOK && longOK {
			// Buy signal
			if !inPosition && short > long {
				inPosition = true
				entryPrice = price
				entryIndex = i
				if rec != nil {
					rec.Buys = append(rec.Buys, TradeEvent{Index: i, Capital: capital})
				}
			}

			// Sell signal
			if inPosition && short < long {
				inPosition = false
				profit := price - entryPrice
				capital += profit
				if rec != nil {
					rec.recordExit(entryIndex, i, entryPrice, price, profit, capital, false)
				}
			}
		}

		if rec != nil {
			rec.CapitalTimeline = append(rec.CapitalTimeline, capital)
		}
	}

	// Close position at end if still open
	if inPosition {
		last := len(prices) - 1
		profit := prices[last] - entryPrice
		capital += profit
		if rec != nil {
			rec.recordExit(entryIndex, last, entryPrice, prices[last], profit, capital, true)
			rec.CapitalTimeline[last] = capital
		}
	}

	return capital
}

func (s *Simulation) recordExit(entryIndex, exitIndex int, entryPrice, exitPrice, profit, capital float64, forced bool) {
	s.Trades = append(s.Trades, &Trade{
		EntryIndex:  entryIndex,
		ExitIndex:   exitIndex,
		EntryPrice:  entryPrice,
		ExitPrice:   exitPrice,
		Profit:      profit,
		ForcedClose: forced,
	})
	s.Sells = append(s.Sells, TradeEvent{Index: exitIndex, Capital: capital})
}
