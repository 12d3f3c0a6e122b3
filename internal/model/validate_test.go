package model

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func float(v float64) *float64 { return &v }

func validConfig() Config {
	return Config{
		Spec:          NewSpecification(Bilateral, float(10), float(20)),
		TargetCpk:     1.33,
		SampleSize:    50,
		SubgroupSize:  5,
		Decimals:      3,
		MinVal:        8,
		MaxVal:        22,
		SigmaPercent:  20,
		CenterPercent: 50,
		ForceRange:    true,
		AutoAdjust:    true,
		MaxAttempts:   100,
		Tolerance:     0.01,
		AdjFactor:     0.95,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsInvertedLimits(t *testing.T) {
	cfg := validConfig()
	cfg.Spec = NewSpecification(Bilateral, float(20), float(10))
	err := Validate(cfg)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "lsl" {
		t.Fatalf("expected lsl field, got %q", verr.Field)
	}
}

func TestValidateReportsEveryNonFiniteBound(t *testing.T) {
	cfg := validConfig()
	cfg.Spec = NewSpecification(Bilateral, float(math.NaN()), float(math.Inf(1)))
	cfg.MinVal = math.Inf(-1)
	cfg.MaxVal = math.NaN()
	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, field := range []string{"invalid lsl", "invalid usl", "invalid min", "invalid max"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %q in %v", field, err)
		}
	}
}

func TestValidateRejectsInvertedRange(t *testing.T) {
	cfg := validConfig()
	cfg.MinVal = 30
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for min >= max")
	}
}

func TestValidateUnilateralNeedsOnlyItsLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Spec = NewSpecification(UnilateralLSL, float(100), nil)
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Spec = NewSpecification(UnilateralUSL, float(100), nil)
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected missing usl error")
	}
}

func TestNewSpecificationDropsUnusedLimit(t *testing.T) {
	spec := NewSpecification(UnilateralUSL, float(1), float(5))
	if spec.LSL != nil {
		t.Fatalf("expected lsl to be dropped")
	}
	if spec.USL == nil || *spec.USL != 5 {
		t.Fatalf("expected usl 5, got %v", spec.USL)
	}
}

func TestParseNumberAcceptsDecimalComma(t *testing.T) {
	v, err := ParseNumber("target-cpk", " 1,33 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1.33 {
		t.Fatalf("expected 1.33, got %v", v)
	}
	for _, in := range []string{"", "abc", "NaN", "Inf"} {
		if _, err := ParseNumber("x", in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestInitialParameters(t *testing.T) {
	cfg := validConfig()
	if got := cfg.InitialMean(); got != 15 {
		t.Fatalf("expected mean 15, got %v", got)
	}
	if got := cfg.InitialSigma(); got != 1.4 {
		t.Fatalf("expected sigma 1.4, got %v", got)
	}
}

func TestParseSpecType(t *testing.T) {
	cases := map[string]SpecType{
		"bilateral":      Bilateral,
		"LSL":            UnilateralLSL,
		"unilateral_usl": UnilateralUSL,
	}
	for in, want := range cases {
		got, err := ParseSpecType(in)
		if err != nil || got != want {
			t.Fatalf("ParseSpecType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseSpecType("diagonal"); err == nil {
		t.Fatalf("expected error")
	}
}
