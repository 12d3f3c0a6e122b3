package stats

import (
	"errors"
	"math"
)

// MinStdDev is the floor applied to both dispersion estimates.
const MinStdDev = 1e-6

// ErrTooFewValues is returned when a sample cannot support a dispersion estimate.
var ErrTooFewValues = errors.New("at least 2 values are required")

// Dispersion holds the long-term and short-term standard deviations.
type Dispersion struct {
	Overall float64
	Within  float64
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the Bessel-corrected standard deviation.
func SampleStdDev(values []float64) float64 {
	return math.Sqrt(sampleVariance(values))
}

func sampleVariance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(n-1)
}

// EstimateDispersion computes overall and within standard deviations.
//
// With subgroupSize 1 the within estimate is the square root of the mean
// square successive difference divided by c4'(n). With larger subgroups the
// sample is cut into floor(n/subgroupSize) consecutive subgroups, dropping
// any trailing remainder, and the subgroup variances are pooled by degrees
// of freedom. Fewer than 2 subgroups fall back to the overall estimate.
func EstimateDispersion(values []float64, subgroupSize int) (Dispersion, error) {
	n := len(values)
	if n < 2 {
		return Dispersion{}, ErrTooFewValues
	}
	overall := SampleStdDev(values)
	within := overall

	if subgroupSize <= 1 {
		within = movingRangeSigma(values)
	} else if pooled, ok := pooledSigma(values, subgroupSize); ok {
		within = pooled
	}

	return Dispersion{
		Overall: math.Max(overall, MinStdDev),
		Within:  math.Max(within, MinStdDev),
	}, nil
}

func movingRangeSigma(values []float64) float64 {
	n := len(values)
	var sum float64
	for i := 1; i < n; i++ {
		d := values[i] - values[i-1]
		sum += d * d
	}
	mssd := sum / (2 * float64(n-1))
	return math.Sqrt(mssd) / C4Prime(n)
}

func pooledSigma(values []float64, size int) (float64, bool) {
	k := len(values) / size
	if k < 2 {
		return 0, false
	}
	var weighted, df float64
	for i := 0; i < k; i++ {
		group := values[i*size : (i+1)*size]
		if len(group) < 2 {
			continue
		}
		w := float64(len(group) - 1)
		weighted += w * sampleVariance(group)
		df += w
	}
	if df == 0 {
		return 0, false
	}
	return math.Sqrt(weighted / df), true
}
