// Package historyui provides the Bubble Tea run history browser.
package historyui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/cpkgen/internal/model"
	"github.com/verte-zerg/cpkgen/internal/stats"
	"github.com/verte-zerg/cpkgen/internal/store"
)

const (
	tabOverview = iota
	tabRuns
	tabDetail
)

const plotHeight = 10

var (
	tabBase = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder(), true)
	tabOnStyle     = tabBase.Foreground(lipgloss.Color("#F0F0F0")).Bold(true).BorderForeground(lipgloss.Color("#2F9E8F"))
	tabOffStyle    = tabBase.Foreground(lipgloss.Color("#B0B0B0")).BorderForeground(lipgloss.Color("#4A4A4A"))
	cardStyle      = tabBase.BorderForeground(lipgloss.Color("#4A4A4A"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	rowStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea history UI.
type Model struct {
	store  *store.Store
	cfg    model.HistoryConfig
	window int

	history  stats.History
	detail   *model.RunRecord
	errMsg   string
	decimals int

	tabs      []string
	activeTab int
	viewports []viewport.Model
	runTable  table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a history UI model.
func NewModel(st *store.Store, cfg model.HistoryConfig, window int) *Model {
	m := &Model{
		store:    st,
		cfg:      cfg,
		window:   max(window, 1),
		tabs:     []string{"Overview", "Runs", "Run Detail"},
		decimals: 3,
	}
	m.initInputs()
	m.runTable = buildRunTable(nil, 80, 10)
	m.initViewports()
	m.refreshHistory()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		if m.activeTab == tabRuns {
			m.runTable.Focus()
		} else {
			m.runTable.Blur()
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.window = nextWindow(m.window)
			m.refreshHistory()
			return m, nil
		case "-":
			m.window = prevWindow(m.window)
			m.refreshHistory()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabRuns {
				m.openSelectedRun()
				m.activeTab = tabDetail
				m.runTable.Blur()
				return m, tea.ClearScreen
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabRuns {
				m.runTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabRuns {
				m.runTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabRuns {
				var cmd tea.Cmd
				m.runTable, cmd = m.runTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitBlock(m.renderHeader(), m.width, headerHeight)
	body := fitBlock(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitBlock(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Spec type: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Trend window: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.filterInputs[0].SetValue(string(m.cfg.SpecType))
	if m.cfg.Since != nil {
		m.filterInputs[1].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
	m.filterInputs[3].SetValue(strconv.Itoa(m.window))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(tabOnStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.runTable.SetWidth(m.width)
	m.runTable.SetHeight(max(bodyHeight-1, 1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabRuns {
		m.runTable.Focus()
	} else {
		m.runTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, tabOnStyle.Render(tab))
		} else {
			parts = append(parts, tabOffStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return fitBlock(m.renderTabs()+"\n"+m.renderFilterSummary(), m.width, 0)
}

func (m *Model) renderFilterSummary() string {
	specType := string(m.cfg.SpecType)
	if specType == "" {
		specType = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: spec=%s  since=%s  last=%s  window=%d", specType, since, last, m.window)
	return dimStyle.Render(ellipsize(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabRuns {
		help = "Nav: left/right  Select: up/down  Open run: enter  Settings: /  Quit: q"
	}
	return dimStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return dimStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitBlock(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabRuns {
		if len(m.history.Runs) == 0 {
			return fitBlock("No runs found.", m.width, height)
		}
		return fitBlock(rowStyle.Render(m.runTable.View()), m.width, height)
	}
	return fitBlock(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshHistory() {
	history, err := stats.BuildHistory(context.Background(), m.store, m.cfg, m.window)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load history.")
		}
		return
	}
	m.errMsg = ""
	m.history = history
	m.runTable.SetRows(buildRunRows(history.Runs))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.history, width))
	m.viewports[tabDetail].SetContent(renderDetail(m.detail, width))
}

// openSelectedRun loads the highlighted run with its values.
func (m *Model) openSelectedRun() {
	row := m.runTable.SelectedRow()
	if len(row) == 0 {
		return
	}
	rec, err := m.store.GetRun(context.Background(), row[0])
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.detail = &rec
	m.renderTabContents()
	m.viewports[tabDetail].GotoTop()
}

func renderOverview(h stats.History, width int) string {
	if len(h.Runs) == 0 {
		return "No runs found."
	}
	summary := renderSummaryCards(h, width)
	var buf bytes.Buffer
	if err := stats.PlotSeries(&buf, "Achieved Cpk per run", h.Series(), stats.PlotWidthFor(width), plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(h stats.History, width int) string {
	count := len(h.Runs)
	var attempts int
	for _, r := range h.Runs {
		attempts += r.Attempts
	}
	avgCpk, bestDiff := "N/A", "N/A"
	if len(h.CpkTrend) > 0 {
		avgCpk = fmt.Sprintf("%.3f", stats.Mean(h.CpkTrend))
		best := h.DiffTrend[0]
		for _, d := range h.DiffTrend[1:] {
			best = min(best, d)
		}
		bestDiff = fmt.Sprintf("%.4f", best)
	}
	cards := []string{
		metricCard("Runs", strconv.Itoa(count)),
		metricCard("Converged", fmt.Sprintf("%d (%.0f%%)", h.Converged, float64(h.Converged)/float64(count)*100)),
		metricCard("Avg attempts", fmt.Sprintf("%.1f", float64(attempts)/float64(count))),
		metricCard("Avg Cpk", avgCpk),
		metricCard("Best |Δ|", bestDiff),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardLabelStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderDetail(rec *model.RunRecord, width int) string {
	if rec == nil {
		return "Select a run in the Runs tab and press enter."
	}
	header := cardValueStyle.Render(fmt.Sprintf("Run %d · %s · %s", rec.ID, shortUUID(rec.UUID), rec.CreatedAt.Local().Format("2006-01-02 15:04")))
	if len(rec.Values) < 2 {
		return header + "\n\nNo stored values for this run."
	}
	cfg := rec.Config
	report, err := stats.Capability(rec.Values, cfg.Spec, cfg.SubgroupSize)
	if err != nil {
		return header + "\n\n" + errorStyle.Render(err.Error())
	}
	var buf bytes.Buffer
	if err := stats.RenderReport(&buf, report, stats.ReportOptions{Decimals: cfg.Decimals, Color: true}); err != nil {
		return header + "\n\n" + errorStyle.Render(err.Error())
	}
	if err := stats.RenderHistogram(&buf, rec.Values, report, cfg.Decimals, max(width-30, 20)); err != nil {
		return header + "\n\n" + errorStyle.Render(err.Error())
	}
	meta := dimStyle.Render(fmt.Sprintf("status=%s  attempts=%d/%d  mode=%s  target=%.3f±%.3f",
		rec.Status, rec.Attempts, cfg.MaxAttempts, cfg.Mode(), cfg.TargetCpk, cfg.Tolerance))
	return strings.TrimRight(header+"\n"+meta+"\n\n"+buf.String(), "\n")
}

func buildRunTable(runs []model.RunRecord, width, height int) table.Model {
	t := table.New(
		table.WithColumns(runColumns()),
		table.WithRows(buildRunRows(runs)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(runTableStyles())
	return t
}

func runColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Created", Width: 16},
		{Title: "Spec", Width: 14},
		{Title: "N", Width: 5},
		{Title: "Target", Width: 7},
		{Title: "Cpk", Width: 7},
		{Title: "Status", Width: 10},
		{Title: "Attempts", Width: 8},
		{Title: "Mode", Width: 10},
	}
}

func buildRunRows(runs []model.RunRecord) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	// Newest first.
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		cpk := "N/A"
		if r.AchievedCpk != nil {
			cpk = fmt.Sprintf("%.3f", *r.AchievedCpk)
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Config.Spec.Type),
			strconv.Itoa(r.Config.SampleSize),
			fmt.Sprintf("%.3f", r.Config.TargetCpk),
			cpk,
			string(r.Status),
			strconv.Itoa(r.Attempts),
			r.Config.Mode(),
		})
	}
	return rows
}

func runTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshHistory()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	idx = (idx + count) % count
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	var specType model.SpecType
	if raw := strings.TrimSpace(m.filterInputs[0].Value()); raw != "" {
		parsed, err := model.ParseSpecType(raw)
		if err != nil {
			return err
		}
		specType = parsed
	}

	sinceInput := strings.TrimSpace(m.filterInputs[1].Value())
	var since *time.Time
	if sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	lastInput := strings.TrimSpace(m.filterInputs[2].Value())
	last := 0
	if lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	window := m.window
	if windowInput := strings.TrimSpace(m.filterInputs[3].Value()); windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid trend window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg = model.HistoryConfig{SpecType: specType, Since: since, Last: last}
	m.window = window
	return nil
}

func nextWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func shortUUID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// fitBlock pads every line to width and clips or fills to height lines.
func fitBlock(s string, width, height int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return strings.Join(lines, "\n")
}

func ellipsize(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
