package indicators

// DefaultRSIPeriod is the conventional RSI look-back.
const DefaultRSIPeriod = 14

// RSI returns the Relative Strength Index of closes using Wilder smoothing.
//
// The average gain and loss are seeded from the first period price changes
// (closes[1]-closes[0] .. closes[period]-closes[period-1]), so the first
// defined value sits at index period and everything before it is nil. After
// the seed each change is folded in as avg = (avg*(period-1) + x) / period.
// RSI is 100 whenever the average loss is zero.
//
// Inputs with len(closes) <= period, or a non-positive period, yield an
// all-nil series.
func RSI(closes []float64, period int) Series {
	out := newSeries(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := split(closes[i] - closes[i-1])
		gain += g
		loss += l
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = value(rsi(avgGain, avgLoss))

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		g, l := split(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out[i] = value(rsi(avgGain, avgLoss))
	}
	return out
}

// split returns the gain and absolute loss parts of a price change.
func split(diff float64) (gain, loss float64) {
	if diff > 0 {
		return diff, 0
	}
	return 0, -diff
}

func rsi(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}
