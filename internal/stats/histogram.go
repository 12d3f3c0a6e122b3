package stats

import "math"

// Histogram is a fixed-width binning of a sample.
type Histogram struct {
	Edges  []float64
	Counts []int
	Width  float64
}

// BinCount returns max(8, min(20, ceil(log2 n)+1)).
func BinCount(n int) int {
	if n <= 1 {
		return 8
	}
	c := int(math.Ceil(math.Log2(float64(n)))) + 1
	return max(8, min(20, c))
}

// BuildHistogram bins values over [min, max]; the top edge is inclusive.
func BuildHistogram(values []float64) Histogram {
	if len(values) == 0 {
		return Histogram{}
	}
	bins := BinCount(len(values))
	lo, hi := minMax(values)
	width := (hi - lo) / float64(bins)
	h := Histogram{
		Edges:  make([]float64, bins+1),
		Counts: make([]int, bins),
		Width:  width,
	}
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	for _, v := range values {
		idx := 0
		if width > 0 {
			idx = int(math.Floor((v - lo) / width))
		}
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h.Counts[idx]++
	}
	return h
}

// Mids returns bin midpoints.
func (h Histogram) Mids() []float64 {
	mids := make([]float64, len(h.Counts))
	for i := range mids {
		mids[i] = h.Edges[i] + h.Width/2
	}
	return mids
}

// MaxCount returns the tallest bin.
func (h Histogram) MaxCount() int {
	m := 0
	for _, c := range h.Counts {
		m = max(m, c)
	}
	return m
}

// NormalPDF is the Gaussian density at x.
func NormalPDF(x, mean, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	z := (x - mean) / sigma
	return math.Exp(-0.5*z*z) / (sigma * math.Sqrt(2*math.Pi))
}

// Curve returns the normal density at each bin midpoint scaled so its peak
// reaches 85% of the tallest bin.
func (h Histogram) Curve(mean, sigma float64) []float64 {
	peak := NormalPDF(mean, mean, sigma)
	out := make([]float64, len(h.Counts))
	if peak == 0 {
		return out
	}
	scale := float64(h.MaxCount()) * 0.85 / peak
	for i, x := range h.Mids() {
		out[i] = NormalPDF(x, mean, sigma) * scale
	}
	return out
}
