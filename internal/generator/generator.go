// Package generator draws normal deviates and synthesizes candidate samples.
package generator

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/verte-zerg/cpkgen/internal/model"
)

// oversampleFactor compensates for values clamped into range.
const oversampleFactor = 1.5

// Generator produces normal and uniform draws.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Normal returns mean + sigma*Z using the Box-Muller transform.
func (g *Generator) Normal(mean, sigma float64) float64 {
	u := g.openUnit()
	v := g.openUnit()
	return mean + sigma*math.Sqrt(-2*math.Log(u))*math.Cos(2*math.Pi*v)
}

// Uniform returns a value in [minVal, maxVal).
func (g *Generator) Uniform(minVal, maxVal float64) float64 {
	return minVal + g.rnd.Float64()*(maxVal-minVal)
}

// openUnit draws from (0,1); Float64 can return an exact 0.
func (g *Generator) openUnit() float64 {
	for {
		if u := g.rnd.Float64(); u != 0 {
			return u
		}
	}
}

// SynthesisParams describes one candidate sample.
type SynthesisParams struct {
	N          int
	Mean       float64
	Sigma      float64
	MinVal     float64
	MaxVal     float64
	Spec       model.Specification
	TargetCpk  float64
	ForceRange bool
	Decimals   int
}

// Synthesize draws a sample in restricted or free mode.
func (g *Generator) Synthesize(p SynthesisParams) []float64 {
	if p.ForceRange {
		return g.restricted(p)
	}
	return g.free(p)
}

// restricted oversamples, clamps into [MinVal, MaxVal] and keeps the first N.
// The clamp bounds are moved inward onto the decimal grid so rounding never
// pushes a value back out of range.
func (g *Generator) restricted(p SynthesisParams) []float64 {
	lo, hi := gridBounds(p.MinVal, p.MaxVal, p.Decimals)
	oversample := int(math.Floor(float64(p.N) * oversampleFactor))
	values := make([]float64, 0, max(oversample, p.N))
	for i := 0; i < oversample; i++ {
		v := g.Normal(p.Mean, p.Sigma)
		values = append(values, math.Max(lo, math.Min(hi, v)))
	}
	if len(values) >= p.N {
		values = values[:p.N]
	} else {
		for len(values) < p.N {
			values = append(values, g.Uniform(lo, hi))
		}
	}
	for i, v := range values {
		values[i] = math.Max(p.MinVal, math.Min(p.MaxVal, Round(v, p.Decimals)))
	}
	return values
}

// gridBounds returns the smallest and largest values with the given decimals
// inside [minVal, maxVal]. When no such value exists the raw bounds are kept.
func gridBounds(minVal, maxVal float64, decimals int) (float64, float64) {
	if decimals < 0 {
		return minVal, maxVal
	}
	scale := math.Pow(10, float64(decimals))
	lo := Round(math.Ceil(minVal*scale-1e-9)/scale, decimals)
	hi := Round(math.Floor(maxVal*scale+1e-9)/scale, decimals)
	if lo < minVal {
		lo = Round(lo+1/scale, decimals)
	}
	if hi > maxVal {
		hi = Round(hi-1/scale, decimals)
	}
	if lo > hi {
		return minVal, maxVal
	}
	return lo, hi
}

// free draws N unclamped values. For bilateral specs sigma is averaged with
// the sigma that would give exactly TargetCpk on a centered process.
func (g *Generator) free(p SynthesisParams) []float64 {
	sigma := p.Sigma
	if width, ok := p.Spec.Width(); ok && p.TargetCpk > 0 {
		ideal := width / (6 * p.TargetCpk)
		sigma = (sigma + ideal) / 2
	}
	values := make([]float64, p.N)
	for i := range values {
		values[i] = Round(g.Normal(p.Mean, sigma), p.Decimals)
	}
	return values
}

// Round rounds v to the given number of decimals via its decimal text form.
func Round(v float64, decimals int) float64 {
	if decimals < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return out
}
