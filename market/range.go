package market

import (
	"fmt"
	"time"
)

// Interval is the width of one candle.
type Interval string

const (
	Minute5  Interval = "5m"
	Minute15 Interval = "15m"
	Hour1    Interval = "1h"
	Day1     Interval = "1d"
	Week1    Interval = "1wk"
	Month1   Interval = "1mo"
)

// Range is a chart look-back window.
type Range string

const (
	Range1D Range = "1d"
	Range5D Range = "5d"
	Range1M Range = "1mo"
	Range3M Range = "3mo"
	Range6M Range = "6mo"
	Range1Y Range = "1y"
	Range5Y Range = "5y"

	DefaultRange = Range1M
)

// Ranges lists every supported chart range, shortest first.
var Ranges = []Range{Range1D, Range5D, Range1M, Range3M, Range6M, Range1Y, Range5Y}

// ParseRange validates a range string. The empty string selects DefaultRange.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return DefaultRange, nil
	}
	for _, r := range Ranges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown range %q", s)
}

// Window returns the history start time and candle interval for r, measured
// back from now.
func (r Range) Window(now time.Time) (time.Time, Interval) {
	switch r {
	case Range1D:
		return now.AddDate(0, 0, -1), Minute5
	case Range5D:
		return now.AddDate(0, 0, -5), Minute15
	case Range3M:
		return now.AddDate(0, -3, 0), Day1
	case Range6M:
		return now.AddDate(0, -6, 0), Day1
	case Range1Y:
		return now.AddDate(-1, 0, 0), Day1
	case Range5Y:
		return now.AddDate(-5, 0, 0), Week1
	default:
		return now.AddDate(0, -1, 0), Day1
	}
}
