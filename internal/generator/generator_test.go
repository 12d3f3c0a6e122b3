package generator

import (
	"math"
	"strconv"
	"testing"

	"github.com/verte-zerg/cpkgen/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestNormalMoments(t *testing.T) {
	g := NewSeeded(42)
	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := g.Normal(10, 2)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	sd := math.Sqrt(sumSq/n - mean*mean)
	if math.Abs(mean-10) > 0.1 {
		t.Fatalf("expected mean near 10, got %.4f", mean)
	}
	if math.Abs(sd-2) > 0.1 {
		t.Fatalf("expected sigma near 2, got %.4f", sd)
	}
}

func TestSeededGeneratorIsDeterministic(t *testing.T) {
	a := NewSeeded(7)
	b := NewSeeded(7)
	for i := 0; i < 10; i++ {
		if a.Normal(0, 1) != b.Normal(0, 1) {
			t.Fatalf("expected identical draws at %d", i)
		}
	}
}

func TestRestrictedStaysInRange(t *testing.T) {
	g := NewSeeded(1)
	for _, n := range []int{2, 3, 17, 100, 501} {
		values := g.Synthesize(SynthesisParams{
			N:          n,
			Mean:       10,
			Sigma:      50,
			MinVal:     5,
			MaxVal:     15,
			Spec:       model.NewSpecification(model.Bilateral, ptr(0), ptr(20)),
			TargetCpk:  1.33,
			ForceRange: true,
			Decimals:   2,
		})
		if len(values) != n {
			t.Fatalf("expected %d values, got %d", n, len(values))
		}
		for _, v := range values {
			if v < 5 || v > 15 {
				t.Fatalf("value %v outside [5, 15]", v)
			}
		}
	}
}

func TestRestrictedRoundingStaysInRange(t *testing.T) {
	g := NewSeeded(1)
	values := g.Synthesize(SynthesisParams{
		N:          200,
		Mean:       0.54,
		Sigma:      0.5,
		MinVal:     0.04,
		MaxVal:     1.04,
		Spec:       model.NewSpecification(model.Bilateral, ptr(0.04), ptr(1.04)),
		TargetCpk:  1.33,
		ForceRange: true,
		Decimals:   1,
	})
	for _, v := range values {
		if v < 0.04 || v > 1.04 {
			t.Fatalf("value %v outside [0.04, 1.04]", v)
		}
	}
}

func TestGridBounds(t *testing.T) {
	cases := []struct {
		minVal, maxVal float64
		decimals       int
		lo, hi         float64
	}{
		{0.04, 1.04, 1, 0.1, 1.0},
		{5, 15, 2, 5, 15},
		{-1.25, 2.75, 1, -1.2, 2.7},
		{0.01, 0.04, 1, 0.01, 0.04},
	}
	for _, c := range cases {
		lo, hi := gridBounds(c.minVal, c.maxVal, c.decimals)
		if math.Abs(lo-c.lo) > 1e-12 || math.Abs(hi-c.hi) > 1e-12 {
			t.Fatalf("gridBounds(%v, %v, %d) = %v, %v; want %v, %v", c.minVal, c.maxVal, c.decimals, lo, hi, c.lo, c.hi)
		}
	}
}

func TestFreeModeIgnoresRange(t *testing.T) {
	g := NewSeeded(3)
	values := g.Synthesize(SynthesisParams{
		N:         2000,
		Mean:      10,
		Sigma:     5,
		MinVal:    9,
		MaxVal:    11,
		Spec:      model.NewSpecification(model.UnilateralUSL, nil, ptr(30)),
		TargetCpk: 1,
		Decimals:  3,
	})
	if len(values) != 2000 {
		t.Fatalf("expected 2000 values, got %d", len(values))
	}
	outside := 0
	for _, v := range values {
		if v < 9 || v > 11 {
			outside++
		}
	}
	if outside == 0 {
		t.Fatalf("expected free mode to produce values outside the range")
	}
}

func TestFreeModeBlendsSigmaForBilateral(t *testing.T) {
	g := NewSeeded(11)
	// ideal sigma = 12/(6*1) = 2; blended with 6 gives 4.
	values := g.Synthesize(SynthesisParams{
		N:         20000,
		Mean:      0,
		Sigma:     6,
		Spec:      model.NewSpecification(model.Bilateral, ptr(-6), ptr(6)),
		TargetCpk: 1,
		Decimals:  4,
	})
	var sumSq float64
	for _, v := range values {
		sumSq += v * v
	}
	sd := math.Sqrt(sumSq / float64(len(values)))
	if math.Abs(sd-4) > 0.15 {
		t.Fatalf("expected blended sigma near 4, got %.3f", sd)
	}
}

func TestRoundRoundTrip(t *testing.T) {
	g := NewSeeded(5)
	for decimals := 0; decimals <= 5; decimals++ {
		for i := 0; i < 200; i++ {
			r := Round(g.Normal(100, 30), decimals)
			parsed, err := strconv.ParseFloat(strconv.FormatFloat(r, 'f', decimals, 64), 64)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if math.Abs(parsed-r) >= math.Pow(10, -float64(decimals)) {
				t.Fatalf("round trip drift for %v at %d decimals", r, decimals)
			}
		}
	}
	if got := Round(1.23456, 2); got != 1.23 {
		t.Fatalf("expected 1.23, got %v", got)
	}
}
