package store

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/verte-zerg/cpkgen/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "cpkgen.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleRun(specType model.SpecType, minute int) model.RunRecord {
	lsl, usl := 10.0, 20.0
	cpk := 1.31
	return model.RunRecord{
		CreatedAt: time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC),
		Config: model.Config{
			Spec:          model.NewSpecification(specType, &lsl, &usl),
			TargetCpk:     1.33,
			SampleSize:    4,
			SubgroupSize:  2,
			Decimals:      3,
			MinVal:        8,
			MaxVal:        22,
			SigmaPercent:  20,
			CenterPercent: 50,
			ForceRange:    true,
			AutoAdjust:    true,
			MaxAttempts:   1000,
			Tolerance:     0.01,
			AdjFactor:     0.95,
			Seed:          42,
		},
		Status:      model.StatusExhausted,
		Attempts:    1000,
		AchievedCpk: &cpk,
		FinalSigma:  1.2,
		DurationMs:  35,
		Values:      []float64{14.1, 15.2, 15.9, 14.8},
	}
}

func TestInsertAndGetRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rec := sampleRun(model.Bilateral, 0)
	id, err := st.InsertRun(ctx, rec)
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}

	got, err := st.GetRun(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.UUID == "" {
		t.Fatalf("expected generated uuid")
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", got.CreatedAt, rec.CreatedAt)
	}
	if got.Config.Spec.LSL == nil || *got.Config.Spec.LSL != 10 || got.Config.Spec.USL == nil || *got.Config.Spec.USL != 20 {
		t.Fatalf("limits not restored: %+v", got.Config.Spec)
	}
	if !got.Config.ForceRange || !got.Config.AutoAdjust || got.Config.Seed != 42 {
		t.Fatalf("config not restored: %+v", got.Config)
	}
	if got.Status != model.StatusExhausted || got.Attempts != 1000 {
		t.Fatalf("unexpected summary: %s %d", got.Status, got.Attempts)
	}
	if got.AchievedCpk == nil || *got.AchievedCpk != 1.31 {
		t.Fatalf("achieved cpk not restored")
	}
	if len(got.Values) != 4 || got.Values[2] != 15.9 {
		t.Fatalf("values not restored in order: %v", got.Values)
	}

	byUUID, err := st.GetRun(ctx, got.UUID[:13])
	if err != nil {
		t.Fatalf("get run by uuid prefix: %v", err)
	}
	if byUUID.ID != id {
		t.Fatalf("expected id %d, got %d", id, byUUID.ID)
	}
}

func TestInsertRunNullables(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rec := sampleRun(model.UnilateralLSL, 0)
	rec.AchievedCpk = nil
	rec.Values = nil
	rec.Status = model.StatusCancelled
	id, err := st.InsertRun(ctx, rec)
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	got, err := st.GetRun(ctx, strconv.FormatInt(id, 10))
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Config.Spec.USL != nil {
		t.Fatalf("expected USL to be dropped for unilateral_lsl")
	}
	if got.AchievedCpk != nil {
		t.Fatalf("expected nil achieved cpk")
	}
	if len(got.Values) != 0 {
		t.Fatalf("expected no values, got %v", got.Values)
	}
}

func TestGetRunNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetRun(context.Background(), "999")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	_, err = st.GetRun(context.Background(), " ")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound for blank ref, got %v", err)
	}
}

func TestGetRunRejectsWildcardRefs(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.InsertRun(ctx, sampleRun(model.Bilateral, 0)); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	for _, ref := range []string{"%", "_", "a%", "__-"} {
		if _, err := st.GetRun(ctx, ref); !errors.Is(err, ErrRunNotFound) {
			t.Fatalf("ref %q: expected ErrRunNotFound, got %v", ref, err)
		}
	}
}

func TestListRunsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	types := []model.SpecType{model.Bilateral, model.UnilateralUSL, model.Bilateral, model.Bilateral}
	for i, typ := range types {
		if _, err := st.InsertRun(ctx, sampleRun(typ, i)); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	all, err := st.ListRuns(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
	if all[0].Values != nil {
		t.Fatalf("list should not load values")
	}

	bilateral, err := st.ListRuns(ctx, model.HistoryConfig{SpecType: model.Bilateral, Last: 2})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(bilateral) != 2 || bilateral[1].CreatedAt.Minute() != 3 {
		t.Fatalf("unexpected filtered runs: %+v", bilateral)
	}

	since := time.Date(2024, 5, 1, 12, 2, 0, 0, time.UTC)
	recent, err := st.ListRuns(ctx, model.HistoryConfig{Since: &since})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent runs, got %d", len(recent))
	}
}
