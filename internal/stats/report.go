package stats

import (
	"context"

	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/store"
)

// History contains precomputed data for history rendering.
type History struct {
	Runs      []model.RunRecord
	CpkTrend  []float64
	DiffTrend []float64
	Smoothed  []float64
	Converged int
}

// BuildHistory loads stored runs and derives the Cpk trend across them.
// Runs without a finite achieved Cpk are listed but left out of the trend.
func BuildHistory(ctx context.Context, st *store.Store, cfg model.HistoryConfig, window int) (History, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return History{}, err
	}
	h := History{Runs: runs}
	for _, run := range runs {
		if run.Status == model.StatusConverged {
			h.Converged++
		}
		if run.AchievedCpk == nil {
			continue
		}
		cpk := *run.AchievedCpk
		h.CpkTrend = append(h.CpkTrend, cpk)
		h.DiffTrend = append(h.DiffTrend, absFloat(cpk-run.Config.TargetCpk))
	}
	h.Smoothed = MovingAverage(h.CpkTrend, window)
	return h, nil
}

// Series returns the trend series ready for PlotSeries.
func (h History) Series() []Series {
	return []Series{
		{Name: "cpk", Values: h.CpkTrend},
		{Name: "smoothed", Values: h.Smoothed},
		{Name: "|cpk-target|", Values: h.DiffTrend},
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
