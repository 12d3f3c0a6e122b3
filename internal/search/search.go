// Package search drives the sample synthesizer toward a target Cpk.
package search

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/verte-zerg/cpkgen/internal/generator"
	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/stats"
)

// ProgressInterval is how many attempts pass between progress reports.
const ProgressInterval = 10

// ErrEmptyResult is returned when the loop finished without any sample.
var ErrEmptyResult = errors.New("search produced no sample")

// Snapshot describes the loop state after one attempt.
type Snapshot struct {
	Attempt     int
	MaxAttempts int
	Cpk         stats.Index
	BestCpk     stats.Index
	BestDiff    float64
	Sigma       float64
	Status      model.Status
}

// Observer receives a snapshot after every attempt. It runs on the search
// goroutine and must not block for long.
type Observer func(Snapshot)

// Outcome is the terminal state of a search.
type Outcome struct {
	Sample     []float64
	Report     stats.Report
	Status     model.Status
	Attempts   int
	Cpk        stats.Index
	Diff       float64
	Mean       float64
	Sigma      float64
	OutOfRange int
}

// Converged reports whether the best sample is within tolerance of the target.
func (o Outcome) Converged() bool {
	return o.Status == model.StatusConverged
}

// Run searches for a sample whose Cpk is within cfg.Tolerance of
// cfg.TargetCpk. The mean stays fixed; only sigma is adjusted between
// attempts. ctx is checked before every attempt. A cancelled run keeps the
// best sample found so far and reports StatusCancelled.
func Run(ctx context.Context, cfg model.Config, gen *generator.Generator, observe Observer) (Outcome, error) {
	if err := model.Validate(cfg); err != nil {
		return Outcome{}, err
	}
	if gen == nil {
		gen = generator.NewSeeded(cfg.Seed)
	}

	width := cfg.RangeWidth()
	mean := cfg.InitialMean()
	sigma := cfg.InitialSigma()
	out := Outcome{
		Status: model.StatusRunning,
		Mean:   mean,
		Diff:   math.Inf(1),
		Cpk:    stats.FiniteIndex(math.NaN()),
	}

	for out.Status == model.StatusRunning {
		if ctx.Err() != nil {
			out.Status = model.StatusCancelled
			break
		}
		if out.Attempts >= cfg.MaxAttempts {
			out.Status = model.StatusExhausted
			break
		}

		sample := gen.Synthesize(generator.SynthesisParams{
			N:          cfg.SampleSize,
			Mean:       mean,
			Sigma:      sigma,
			MinVal:     cfg.MinVal,
			MaxVal:     cfg.MaxVal,
			Spec:       cfg.Spec,
			TargetCpk:  cfg.TargetCpk,
			ForceRange: cfg.ForceRange,
			Decimals:   cfg.Decimals,
		})
		cpk, err := stats.Cpk(sample, cfg.Spec, cfg.SubgroupSize)
		if err != nil {
			return out, err
		}
		out.Attempts++

		diff := math.Abs(cpk.Float() - cfg.TargetCpk)
		if out.Sample == nil || diff < out.Diff {
			out.Sample = sample
			out.Cpk = cpk
			out.Diff = diff
			out.Sigma = sigma
		}
		if diff <= cfg.Tolerance {
			out.Status = model.StatusConverged
		} else if cfg.AutoAdjust {
			sigma = adjustSigma(sigma, cpk.Float(), cfg, width)
		}

		if observe != nil {
			observe(Snapshot{
				Attempt:     out.Attempts,
				MaxAttempts: cfg.MaxAttempts,
				Cpk:         cpk,
				BestCpk:     out.Cpk,
				BestDiff:    out.Diff,
				Sigma:       sigma,
				Status:      out.Status,
			})
		}
	}

	slog.Debug("search finished",
		"status", out.Status,
		"attempts", out.Attempts,
		"cpk", out.Cpk.Format(4),
		"diff", out.Diff,
	)

	if out.Sample == nil {
		if out.Status == model.StatusCancelled {
			return out, nil
		}
		return out, ErrEmptyResult
	}

	report, err := stats.Capability(out.Sample, cfg.Spec, cfg.SubgroupSize)
	if err != nil {
		return out, err
	}
	out.Report = report
	out.OutOfRange = countOutside(out.Sample, cfg.MinVal, cfg.MaxVal)
	return out, nil
}

// adjustSigma shrinks sigma when Cpk is under target and widens it when over.
func adjustSigma(sigma, cpk float64, cfg model.Config, width float64) float64 {
	if cpk < cfg.TargetCpk {
		sigma *= cfg.AdjFactor
	} else {
		sigma *= 2 - cfg.AdjFactor
	}
	if cfg.ForceRange {
		sigma = math.Min(sigma, width/6)
	}
	return math.Max(sigma, width*0.01)
}

func countOutside(values []float64, minVal, maxVal float64) int {
	n := 0
	for _, v := range values {
		if v < minVal || v > maxVal {
			n++
		}
	}
	return n
}
