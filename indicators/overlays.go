package indicators

import (
	"github.com/markcheno/go-talib"
)

// EMA returns the exponential moving average of closes, seeded with the SMA
// of the first period values. out[i] is nil for i < period-1.
func EMA(closes []float64, period int) Series {
	out := newSeries(len(closes))
	// talib indexes past the end on short input.
	if period <= 0 || len(closes) < period {
		return out
	}

	ema := talib.Ema(closes, period)
	for i := period - 1; i < len(ema); i++ {
		out[i] = value(ema[i])
	}
	return out
}

// Bands holds Bollinger band series aligned with the input closes.
type Bands struct {
	Upper  Series `json:"upper"`
	Middle Series `json:"middle"`
	Lower  Series `json:"lower"`
}

// Bollinger returns Bollinger bands: an SMA middle band with upper and lower
// bands k standard deviations away. Entries before period-1 are nil.
func Bollinger(closes []float64, period int, k float64) Bands {
	b := Bands{
		Upper:  newSeries(len(closes)),
		Middle: newSeries(len(closes)),
		Lower:  newSeries(len(closes)),
	}
	if period <= 1 || len(closes) < period {
		return b
	}

	upper, middle, lower := talib.BBands(closes, period, k, k, 0) // 0 = SMA
	for i := period - 1; i < len(closes); i++ {
		b.Upper[i] = value(upper[i])
		b.Middle[i] = value(middle[i])
		b.Lower[i] = value(lower[i])
	}
	return b
}
