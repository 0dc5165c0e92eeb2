// Trade statistics for a simulated crossover run
package backtest

import (
	"fmt"
	"math"
)

// ============================================================================
// PERFORMANCE METRICS
// ============================================================================

// Metrics summarizes a single simulation. It describes a result and never
// feeds back into fitness.
type Metrics struct {
	// Returns
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturn    float64 `json:"total_return"`     // Total profit/loss
	TotalReturnPct float64 `json:"total_return_pct"` // Total return percentage

	// Risk metrics
	PeakCapital    float64 `json:"peak_capital"`
	MaxDrawdown    float64 `json:"max_drawdown"`     // Maximum drawdown in currency units
	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // Maximum drawdown percentage

	// Trade statistics
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // Percentage of winning trades
	AverageWin    float64 `json:"average_win"`
	AverageLoss   float64 `json:"average_loss"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`
	ProfitFactor  float64 `json:"profit_factor"` // Total profit / Total loss
	Expectancy    float64 `json:"expectancy"`    // Expected value per trade

	// Exposure
	BarsInMarket int `json:"bars_in_market"`
}

// CalculateMetrics calculates trade and drawdown statistics from a simulation
func CalculateMetrics(sim *Simulation) (*Metrics, error) {
	if sim == nil || len(sim.CapitalTimeline) == 0 {
		return nil, fmt.Errorf("no capital timeline data")
	}

	metrics := &Metrics{
		InitialCapital: sim.InitialCapital,
		FinalCapital:   sim.FinalCapital,
		TotalTrades:    len(sim.Trades),
	}

	metrics.TotalReturn = metrics.FinalCapital - metrics.InitialCapital
	if metrics.InitialCapital != 0 {
		metrics.TotalReturnPct = (metrics.TotalReturn / metrics.InitialCapital) * 100.0
	}

	if len(sim.Trades) > 0 {
		calculateTradeStatistics(metrics, sim.Trades)
	}

	calculateDrawdown(metrics, sim.CapitalTimeline)

	return metrics, nil
}

// calculateTradeStatistics calculates win/loss statistics
func calculateTradeStatistics(metrics *Metrics, trades []*Trade) {
	var totalWins, totalLosses float64

	for _, trade := range trades {
		metrics.BarsInMarket += trade.ExitIndex - trade.EntryIndex

		switch {
		case trade.Profit > 0:
			metrics.WinningTrades++
			totalWins += trade.Profit
			if trade.Profit > metrics.LargestWin {
				metrics.LargestWin = trade.Profit
			}
		case trade.Profit < 0:
			metrics.LosingTrades++
			totalLosses += math.Abs(trade.Profit)
			if trade.Profit < metrics.LargestLoss {
				metrics.LargestLoss = trade.Profit
			}
		}
	}

	metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.TotalTrades) * 100.0

	if metrics.WinningTrades > 0 {
		metrics.AverageWin = totalWins / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = totalLosses / float64(metrics.LosingTrades)
	}

	// Left at zero when there are no losing trades so the value stays JSON encodable
	if totalLosses > 0 {
		metrics.ProfitFactor = totalWins / totalLosses
	}

	metrics.Expectancy = (totalWins - totalLosses) / float64(metrics.TotalTrades)
}

// calculateDrawdown finds the largest peak-to-trough decline of realized capital
func calculateDrawdown(metrics *Metrics, timeline []float64) {
	peak := metrics.InitialCapital
	for _, capital := range timeline {
		if capital > peak {
			peak = capital
		}

		drawdown := peak - capital
		if drawdown > metrics.MaxDrawdown {
			metrics.MaxDrawdown = drawdown
			if peak != 0 {
				metrics.MaxDrawdownPct = drawdown / peak * 100.0
			}
		}
	}
	metrics.PeakCapital = peak
}
