package indicators

// SMA returns the trailing simple moving average of closes.
//
// out[i] is nil for i < period-1 and the arithmetic mean of
// closes[i-period+1 .. i] otherwise, so the first min(len, period-1) entries
// are nil. A series exactly period long has one value, at its last index;
// a shorter one is all nil. A non-positive period yields an all-nil series.
func SMA(closes []float64, period int) Series {
	out := newSeries(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	for i := period - 1; i < len(closes); i++ {
		out[i] = value(mean(closes[i-period+1 : i+1]))
	}
	return out
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
