package indicators

import (
	"fmt"
	"math"
	"strings"
)

// MovingAverage is a moving average aligned with its source series.
// Values has the same length as the input prices; entries without enough
// history are NaN.
type MovingAverage struct {
	Period int       `json:"period"`
	Values []float64 `json:"values"`
}

// At returns the value at index i and whether it is defined
func (ma MovingAverage) At(i int) (float64, bool) {
	if i < 0 || i >= len(ma.Values) {
		return 0, false
	}
	v := ma.Values[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Len returns the number of entries, defined or not
func (ma MovingAverage) Len() int {
	return len(ma.Values)
}

// Defined returns the number of defined entries
func (ma MovingAverage) Defined() int {
	n := 0
	for _, v := range ma.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// undefinedSeries returns a series of n NaN values
func undefinedSeries(period, n int) MovingAverage {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	return MovingAverage{Period: period, Values: values}
}

// Func computes a moving average of prices for the given period
type Func func(prices []float64, period int) MovingAverage

// Kind names a moving average flavour
type Kind string

const (
	KindSMA Kind = "sma"
	KindEMA Kind = "ema"
)

// ByKind resolves a moving average function by name
func ByKind(kind Kind) (Func, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindSMA, "":
		return SMA, nil
	case KindEMA:
		return EMA, nil
	default:
		return nil, fmt.Errorf("unknown moving average kind: %s (available: sma, ema)", kind)
	}
}
