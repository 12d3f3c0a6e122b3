package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError reports a malformed generation input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseNumber parses a finite float, accepting a decimal comma.
func ParseNumber(field, text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, &ValidationError{Field: field, Reason: "value is required"}
	}
	text = strings.Replace(text, ",", ".", 1)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a finite number", text)}
	}
	return v, nil
}

// Validate checks a Config before any generation starts.
// All problems are returned together.
func Validate(cfg Config) error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}
	finite := func(field string, v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			add(field, "must be a finite number")
			return false
		}
		return true
	}

	switch cfg.Spec.Type {
	case Bilateral:
		if cfg.Spec.LSL == nil {
			add("lsl", "required for bilateral specification")
		}
		if cfg.Spec.USL == nil {
			add("usl", "required for bilateral specification")
		}
		if cfg.Spec.LSL != nil && cfg.Spec.USL != nil {
			lslOK := finite("lsl", *cfg.Spec.LSL)
			uslOK := finite("usl", *cfg.Spec.USL)
			if lslOK && uslOK && *cfg.Spec.LSL >= *cfg.Spec.USL {
				add("lsl", "must be less than usl for bilateral specification")
			}
		}
	case UnilateralLSL:
		if cfg.Spec.LSL == nil {
			add("lsl", "required for unilateral_lsl specification")
		} else {
			finite("lsl", *cfg.Spec.LSL)
		}
	case UnilateralUSL:
		if cfg.Spec.USL == nil {
			add("usl", "required for unilateral_usl specification")
		} else {
			finite("usl", *cfg.Spec.USL)
		}
	default:
		add("spec-type", fmt.Sprintf("unknown type %q", cfg.Spec.Type))
	}

	if finite("target-cpk", cfg.TargetCpk) && cfg.TargetCpk <= 0 {
		add("target-cpk", "must be > 0")
	}
	if cfg.SampleSize < 2 {
		add("sample-size", "must be >= 2")
	}
	if cfg.SubgroupSize < 1 {
		add("subgroup-size", "must be >= 1")
	}
	if cfg.Decimals < 0 || cfg.Decimals > 10 {
		add("decimals", "must be between 0 and 10")
	}
	minOK := finite("min", cfg.MinVal)
	maxOK := finite("max", cfg.MaxVal)
	if minOK && maxOK && cfg.MinVal >= cfg.MaxVal {
		add("min", "must be less than max")
	}
	if finite("sigma-percent", cfg.SigmaPercent) && (cfg.SigmaPercent <= 0 || cfg.SigmaPercent > 100) {
		add("sigma-percent", "must be in (0, 100]")
	}
	if finite("center-percent", cfg.CenterPercent) && (cfg.CenterPercent < 0 || cfg.CenterPercent > 100) {
		add("center-percent", "must be in [0, 100]")
	}
	if cfg.MaxAttempts < 0 {
		add("max-attempts", "must be >= 0")
	}
	if finite("tolerance", cfg.Tolerance) && cfg.Tolerance < 0 {
		add("tolerance", "must be >= 0")
	}
	if finite("adj-factor", cfg.AdjFactor) && cfg.AdjFactor <= 0 {
		add("adj-factor", "must be > 0")
	}
	return errors.Join(errs...)
}
