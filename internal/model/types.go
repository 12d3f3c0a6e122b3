// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SpecType selects which specification limits participate in the indices.
type SpecType string

// Specification types, named after the values used in saved configs.
const (
	Bilateral     SpecType = "bilateral"
	UnilateralLSL SpecType = "unilateral_lsl"
	UnilateralUSL SpecType = "unilateral_usl"
)

// ParseSpecType maps user input to a SpecType.
func ParseSpecType(s string) (SpecType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilateral", "both", "":
		return Bilateral, nil
	case "unilateral_lsl", "lsl", "lower":
		return UnilateralLSL, nil
	case "unilateral_usl", "usl", "upper":
		return UnilateralUSL, nil
	default:
		return "", fmt.Errorf("unknown spec type %q (want bilateral, unilateral_lsl or unilateral_usl)", s)
	}
}

// HasLSL reports whether the lower limit participates.
func (t SpecType) HasLSL() bool {
	return t != UnilateralUSL
}

// HasUSL reports whether the upper limit participates.
func (t SpecType) HasUSL() bool {
	return t != UnilateralLSL
}

// Specification holds the limits for one spec type. A nil limit is absent.
type Specification struct {
	Type SpecType
	LSL  *float64
	USL  *float64
}

// NewSpecification builds a Specification keeping only the limits its type uses.
func NewSpecification(t SpecType, lsl, usl *float64) Specification {
	spec := Specification{Type: t}
	if t.HasLSL() && lsl != nil {
		v := *lsl
		spec.LSL = &v
	}
	if t.HasUSL() && usl != nil {
		v := *usl
		spec.USL = &v
	}
	return spec
}

// Width returns USL-LSL for bilateral specifications.
func (s Specification) Width() (float64, bool) {
	if s.Type != Bilateral || s.LSL == nil || s.USL == nil {
		return 0, false
	}
	return *s.USL - *s.LSL, true
}

// Config defines a generation request.
type Config struct {
	Spec          Specification
	TargetCpk     float64
	SampleSize    int
	SubgroupSize  int
	Decimals      int
	MinVal        float64
	MaxVal        float64
	SigmaPercent  float64
	CenterPercent float64
	ForceRange    bool
	AutoAdjust    bool
	MaxAttempts   int
	Tolerance     float64
	AdjFactor     float64
	Seed          int64
}

// RangeWidth returns MaxVal-MinVal.
func (c Config) RangeWidth() float64 {
	return c.MaxVal - c.MinVal
}

// InitialMean derives the generating mean from the center percentage.
func (c Config) InitialMean() float64 {
	return c.MinVal + c.RangeWidth()*c.CenterPercent/100
}

// InitialSigma derives the starting sigma from the spread percentage.
func (c Config) InitialSigma() float64 {
	return c.RangeWidth() * c.SigmaPercent / 100 * 0.5
}

// Mode returns the synthesis mode name.
func (c Config) Mode() string {
	if c.ForceRange {
		return "restricted"
	}
	return "free"
}

// Status is the state of a Cpk search.
type Status string

// Search states.
const (
	StatusRunning   Status = "running"
	StatusConverged Status = "converged"
	StatusExhausted Status = "exhausted"
	StatusCancelled Status = "cancelled"
)

// Done reports whether the search has finished.
func (s Status) Done() bool {
	return s != StatusRunning && s != ""
}

// HistoryConfig defines filters for listing stored runs.
type HistoryConfig struct {
	SpecType SpecType
	Since    *time.Time
	Last     int
}

// RunRecord is a stored generation run.
type RunRecord struct {
	ID          int64
	UUID        string
	CreatedAt   time.Time
	Config      Config
	Status      Status
	Attempts    int
	AchievedCpk *float64
	FinalSigma  float64
	DurationMs  int64
	Values      []float64
}
