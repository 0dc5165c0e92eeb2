package indicators

// SMA calculates the Simple Moving Average of prices.
// Index i is undefined while i < period-1, otherwise it holds the mean of
// prices[i-period+1 : i+1]. Each window is summed in index order so that
// repeated calls over the same input are bit-for-bit identical.
func SMA(prices []float64, period int) MovingAverage {
	if period < 1 || period > len(prices) {
		return undefinedSeries(period, len(prices))
	}

	result := undefinedSeries(period, len(prices))
	for i := period - 1; i < len(prices); i++ {
		sum := 0.0
		for _, p := range prices[i-period+1 : i+1] {
			sum += p
		}
		result.Values[i] = sum / float64(period)
	}

	return result
}
