// Package tui provides the Bubble Tea search progress interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cpkgen/internal/generator"
	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/search"
	statsPkg "github.com/verte-zerg/cpkgen/internal/stats"
)

const (
	progressBarWidth = 32
	previewLines     = 4
	abortGrace       = 2 * time.Second
)

type snapshotMsg search.Snapshot

type abortMsg struct{}

type doneMsg struct {
	outcome search.Outcome
	err     error
}

// Model implements the Bubble Tea search UI.
type Model struct {
	config model.Config
	cancel context.CancelFunc

	spinner spinner.Model
	width   int
	height  int

	startedAt  time.Time
	snapshot   search.Snapshot
	hasSnap    bool
	bestTrend  []float64
	cancelling bool
	aborting   bool

	done    bool
	outcome search.Outcome
	err     error
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	outOfSpecStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14"))
	outOfRangeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	barStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#1890FF"))
	statusStyles    = map[model.Status]lipgloss.Style{
		model.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#1890FF")),
		model.StatusConverged: lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		model.StatusExhausted: lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")),
		model.StatusCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
	}
)

// NewModel constructs a progress model. cancel stops the search.
func NewModel(cfg model.Config, cancel context.CancelFunc) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle))
	return &Model{
		config:    cfg,
		cancel:    cancel,
		spinner:   sp,
		startedAt: time.Now(),
	}
}

// Run executes the search while showing progress. ctrl+c or esc cancels
// the search and the best sample found so far is still returned. A second
// press quits once the search stops, or after abortGrace if it does not,
// in which case Run returns context.Canceled.
func Run(ctx context.Context, cfg model.Config, gen *generator.Generator) (search.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(cfg, cancel)
	program := tea.NewProgram(m)
	go func() {
		outcome, err := search.Run(ctx, cfg, gen, func(s search.Snapshot) {
			if s.Attempt%search.ProgressInterval == 0 || s.Status.Done() {
				program.Send(snapshotMsg(s))
			}
		})
		program.Send(doneMsg{outcome: outcome, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		return search.Outcome{}, err
	}
	fm, ok := final.(*Model)
	if !ok || !fm.done {
		return search.Outcome{}, context.Canceled
	}
	return fm.outcome, fm.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			switch {
			case m.done:
				return m, tea.Quit
			case m.cancelling:
				m.aborting = true
				return m, tea.Tick(abortGrace, func(time.Time) tea.Msg { return abortMsg{} })
			}
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		case tea.KeyEnter:
			if m.done {
				return m, tea.Quit
			}
			return m, nil
		case tea.KeyRunes:
			if m.done && string(msg.Runes) == "q" {
				return m, tea.Quit
			}
			return m, nil
		default:
			return m, nil
		}
	case snapshotMsg:
		m.snapshot = search.Snapshot(msg)
		m.hasSnap = true
		m.bestTrend = append(m.bestTrend, m.snapshot.BestCpk.Float())
		return m, nil
	case doneMsg:
		m.done = true
		m.outcome = msg.outcome
		m.err = msg.err
		if m.aborting {
			return m, tea.Quit
		}
		return m, nil
	case abortMsg:
		if m.done {
			return m, nil
		}
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := []string{m.renderHeader(), ""}
	lines = append(lines, m.renderProgress())
	if m.hasSnap {
		lines = append(lines, m.renderMetrics())
	}
	if len(m.bestTrend) > 1 {
		lines = append(lines, labelStyle.Render("Best Cpk ")+barStyle.Render(statsPkg.Sparkline(lastN(m.bestTrend, m.contentWidth()-9))))
	}
	if m.done && len(m.outcome.Sample) > 0 {
		lines = append(lines, "", wrapStyledValues(buildStyledValues(m.outcome.Sample, m.config), m.contentWidth(), previewLines))
	}
	lines = append(lines, "", m.renderFooter())
	content := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderHeader() string {
	title := fmt.Sprintf("Cpk search · target %.3f ± %.3f · %s mode", m.config.TargetCpk, m.config.Tolerance, m.config.Mode())
	status := model.StatusRunning
	switch {
	case m.done:
		status = m.outcome.Status
	case m.cancelling:
		status = model.StatusCancelled
	}
	prefix := m.spinner.View() + " "
	if m.done {
		prefix = ""
	}
	return prefix + titleStyle.Render(title) + "  " + statusStyles[status].Render(string(status))
}

func (m *Model) renderProgress() string {
	attempt := m.snapshot.Attempt
	if m.done {
		attempt = m.outcome.Attempts
	}
	frac := 0.0
	if m.config.MaxAttempts > 0 {
		frac = float64(attempt) / float64(m.config.MaxAttempts)
	}
	return fmt.Sprintf("%s %s %d/%d", labelStyle.Render("Attempt"), renderBar(frac, progressBarWidth), attempt, m.config.MaxAttempts)
}

func (m *Model) renderMetrics() string {
	s := m.snapshot
	segments := []string{
		labelStyle.Render("Cpk ") + valueStyle.Render(s.Cpk.Format(3)),
		labelStyle.Render("Best ") + valueStyle.Render(s.BestCpk.Format(3)),
		labelStyle.Render("|Δ| ") + valueStyle.Render(fmt.Sprintf("%.4f", s.BestDiff)),
		labelStyle.Render("σ ") + valueStyle.Render(fmt.Sprintf("%.4f", s.Sigma)),
	}
	return strings.Join(segments, "  ")
}

func (m *Model) renderFooter() string {
	elapsed := time.Since(m.startedAt).Round(100 * time.Millisecond)
	switch {
	case m.done && m.err != nil:
		return outOfRangeStyle.Render("error: " + m.err.Error())
	case m.done:
		return mutedStyle.Render(fmt.Sprintf("%s · %d out of range · enter/q to exit", elapsed, m.outcome.OutOfRange))
	case m.aborting:
		return mutedStyle.Render("stopping…")
	case m.cancelling:
		return mutedStyle.Render("cancelling… ctrl+c again to quit now")
	default:
		return mutedStyle.Render(fmt.Sprintf("%s · ctrl+c/esc to cancel", elapsed))
	}
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 72
	}
	return max(int(float64(m.width)*0.8), 20)
}

func renderBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	return barStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func lastN(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
