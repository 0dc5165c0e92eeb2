package indicators

import (
	"github.com/cinar/indicator/v2/trend"
	"github.com/rs/zerolog/log"
)

// EMA calculates the Exponential Moving Average of prices using cinar/indicator.
// The result is aligned with prices: the leading entries for which the
// indicator emits nothing are undefined.
func EMA(prices []float64, period int) MovingAverage {
	result := undefinedSeries(period, len(prices))
	if period < 1 || period > len(prices) {
		return result
	}

	// Convert slice to channel
	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	emaIndicator := trend.NewEmaWithPeriod[float64](period)
	emaChan := emaIndicator.Compute(pricesChan)

	// Collect results
	emaValues := make([]float64, 0, len(prices)-period+1)
	for val := range emaChan {
		emaValues = append(emaValues, val)
	}

	if len(emaValues) > len(prices) {
		log.Warn().
			Int("period", period).
			Int("prices_count", len(prices)).
			Int("ema_count", len(emaValues)).
			Msg("EMA produced more values than prices, truncating")
		emaValues = emaValues[len(emaValues)-len(prices):]
	}

	offset := len(prices) - len(emaValues)
	copy(result.Values[offset:], emaValues)

	return result
}
