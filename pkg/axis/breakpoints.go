package axis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Breakpoints are the measure thresholds shared by every axis and tile of a
// run. Values[0] = Min and Values[i] = Min + i*Delta.
type Breakpoints struct {
	Min    float64
	Delta  float64
	Values []float64
}

// NewBreakpoints spans the measure range of the whole network, rounded
// outward to multiples of delta. The result depends only on the network,
// never on the tile being processed.
func NewBreakpoints(n *Network, delta float64) (Breakpoints, error) {
	var starts, ends []float64
	for _, a := range n.Axes {
		if len(a.Line) < 2 {
			continue
		}
		starts = append(starts, a.M0)
		ends = append(ends, a.M0+a.Length())
	}
	if len(starts) == 0 {
		return Breakpoints{}, ErrEmptyNetwork
	}
	return Span(floats.Min(starts), floats.Max(ends), delta), nil
}

// Span returns the breakpoints covering [mmin, mmax].
func Span(mmin, mmax, delta float64) Breakpoints {
	lo := math.Floor(mmin/delta) * delta
	hi := math.Ceil(mmax/delta) * delta
	n := int(math.Round((hi - lo) / delta))
	values := make([]float64, n+1)
	for i := range values {
		values[i] = lo + float64(i)*delta
	}
	return Breakpoints{Min: lo, Delta: delta, Values: values}
}

// Digitize returns the swath id of measure m: the index i such that
// Values[i-1] <= m < Values[i]. Measures below Values[0] get 0 and
// measures at or past the last breakpoint get len(Values).
func (b Breakpoints) Digitize(m float64) uint32 {
	return uint32(sort.Search(len(b.Values), func(i int) bool {
		return b.Values[i] > m
	}))
}

// Measure returns the representative measure of a swath: the midpoint of
// its breakpoint interval, rounded to one decimal.
func (b Breakpoints) Measure(swath uint32) float64 {
	m := b.Min + (float64(swath)-0.5)*b.Delta
	return math.Round(m*10) / 10
}
