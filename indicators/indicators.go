// Package indicators computes technical indicators over closing-price series.
//
// Every function returns a Series aligned index-for-index with its input:
// out[i] describes closes[i], and is nil where the look-back window is not
// yet full. All functions are pure and safe for concurrent use.
package indicators

// Series is an indicator output aligned with its input. A nil element means
// the indicator is undefined at that index; it encodes as JSON null.
type Series []*float64

func newSeries(n int) Series {
	return make(Series, n)
}

// Defined reports how many elements of s hold a value.
func (s Series) Defined() int {
	n := 0
	for _, v := range s {
		if v != nil {
			n++
		}
	}
	return n
}

// Last returns the final defined value.
func (s Series) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != nil {
			return *s[i], true
		}
	}
	return 0, false
}

// Floats converts s to plain floats, substituting def for undefined indices.
func (s Series) Floats(def float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v == nil {
			out[i] = def
			continue
		}
		out[i] = *v
	}
	return out
}

func value(v float64) *float64 {
	return &v
}
