package historyui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cpkgen.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	lsl, usl := 10.0, 20.0
	for i, cpk := range []float64{1.21, 1.335} {
		achieved := cpk
		rec := model.RunRecord{
			CreatedAt: time.Date(2024, 5, 1, 12, i, 0, 0, time.UTC),
			Config: model.Config{
				Spec:         model.NewSpecification(model.Bilateral, &lsl, &usl),
				TargetCpk:    1.33,
				SampleSize:   10,
				SubgroupSize: 1,
				Decimals:     2,
				MinVal:       8,
				MaxVal:       22,
				ForceRange:   true,
				MaxAttempts:  100,
				Tolerance:    0.01,
			},
			Status:      model.StatusExhausted,
			Attempts:    100,
			AchievedCpk: &achieved,
			Values:      []float64{14.1, 15.2, 15.9, 14.8, 15.0, 15.3, 14.6, 15.4, 14.9, 15.1},
		}
		if i == 1 {
			rec.Status = model.StatusConverged
			rec.Attempts = 17
		}
		if _, err := st.InsertRun(context.Background(), rec); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}
	return st
}

func TestOverviewShowsSummary(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{}, 5)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	out := m.View()
	for _, want := range []string{"Overview", "Runs", "Converged", "1 (50%)", "Achieved Cpk per run"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestOpenRunShowsDetail(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{}, 5)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 80})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabRuns {
		t.Fatalf("expected runs tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "converged") {
		t.Fatalf("expected run table to list statuses")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabDetail {
		t.Fatalf("expected detail tab, got %d", m.activeTab)
	}
	if m.detail == nil || m.detail.ID != 2 {
		t.Fatalf("expected newest run to be opened, got %+v", m.detail)
	}
	out := m.View()
	for _, want := range []string{"Run 2", "Cpk", "Distribution"} {
		if !strings.Contains(out, want) {
			t.Fatalf("detail missing %q", want)
		}
	}
}

func TestApplyFilter(t *testing.T) {
	m := NewModel(seededStore(t), model.HistoryConfig{}, 5)
	m.filterInputs[0].SetValue("usl")
	m.filterInputs[2].SetValue("3")
	m.filterInputs[3].SetValue("2")
	if err := m.applyFilter(); err != nil {
		t.Fatalf("apply filter: %v", err)
	}
	if m.cfg.SpecType != model.UnilateralUSL || m.cfg.Last != 3 || m.window != 2 {
		t.Fatalf("unexpected filter state: %+v window=%d", m.cfg, m.window)
	}

	m.filterInputs[0].SetValue("sideways")
	if err := m.applyFilter(); err == nil {
		t.Fatalf("expected spec type error")
	}
	m.filterInputs[0].SetValue("")
	m.filterInputs[1].SetValue("yesterday")
	if err := m.applyFilter(); err == nil {
		t.Fatalf("expected date error")
	}
}

func TestWindowSteps(t *testing.T) {
	if nextWindow(1) != 5 || nextWindow(5) != 10 || nextWindow(7) != 10 {
		t.Fatalf("unexpected next window")
	}
	if prevWindow(5) != 1 || prevWindow(10) != 5 || prevWindow(7) != 5 {
		t.Fatalf("unexpected prev window")
	}
}
