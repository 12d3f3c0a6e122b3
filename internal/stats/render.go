package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const sparkChars = " ▁▂▃▄▅▆▇█"

var gradeStyles = map[Grade]lipgloss.Style{
	GradeGood:    lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")),
	GradeOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#1890FF")),
	GradeWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")),
	GradeBad:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders values as a single line of block characters.
// Non-finite values render as blanks.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	levels := []rune(sparkChars)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	var b strings.Builder
	for _, v := range values {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			b.WriteRune(levels[0])
		case hi-lo < 1e-9:
			b.WriteRune(levels[len(levels)/2])
		default:
			idx := 1 + int(math.Round((v-lo)/(hi-lo)*float64(len(levels)-2)))
			b.WriteRune(levels[min(idx, len(levels)-1)])
		}
	}
	return b.String()
}

// ReportOptions controls RenderReport output.
type ReportOptions struct {
	Decimals int
	Color    bool
}

// RenderReport prints the specification, sample and index tables.
func RenderReport(w io.Writer, r Report, opts ReportOptions) error {
	d := opts.Decimals
	limit := func(v *float64) string {
		if v == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.*f", d, *v)
	}

	sample := newTable(column{title: "Sample"}, column{right: true})
	sample.add("LSL", limit(r.LSL))
	sample.add("USL", limit(r.USL))
	sample.add("Target", fmt.Sprintf("%.*f", d, r.Target))
	sample.add("N", fmt.Sprintf("%d", r.N))
	sample.add("Mean", fmt.Sprintf("%.*f", d, r.Mean))
	sample.add("Mean - Target", fmt.Sprintf("%.*f", d, r.MeanToTarget))
	sample.add("Min / Max", fmt.Sprintf("%.*f / %.*f", d, r.Min, d, r.Max))
	sample.add("StdDev (overall)", fmt.Sprintf("%.*f", d, r.StdDevOverall))
	sample.add("StdDev (within)", fmt.Sprintf("%.*f", d, r.StdDevWithin))
	if err := sample.write(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	indices := newTable(column{title: "Index"}, column{title: "Value", right: true}, column{title: "Grade"})
	indices.rule = true
	graded := []struct {
		name  string
		index Index
	}{
		{"Cp", r.Cp}, {"Cpk", r.Cpk}, {"Cpu", r.Cpu}, {"Cpl", r.Cpl},
		{"Pp", r.Pp}, {"Ppk", r.Ppk}, {"Ppu", r.Ppu}, {"Ppl", r.Ppl},
	}
	for _, g := range graded {
		indices.add(g.name, g.index.Format(d), renderGrade(GradeOf(g.index), opts.Color))
	}
	indices.add("K (%)", r.K.Format(2), "")
	indices.add("Cr", r.Cr.Format(d), "")
	if err := indices.write(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	ppm := newTable(column{title: "PPM out of spec"}, column{right: true})
	ppm.add("Observed", fmt.Sprintf("%.1f", r.ObservedPPM))
	ppm.add("Expected (within)", fmt.Sprintf("%.1f", r.ExpectedPPMWithin))
	ppm.add("Expected (overall)", fmt.Sprintf("%.1f", r.ExpectedPPMOverall))
	if err := ppm.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func renderGrade(g Grade, color bool) string {
	if !color {
		return string(g)
	}
	return gradeStyles[g].Render(string(g))
}

// RenderHistogram prints horizontal bars per bin with the fitted normal
// curve marked by '│' and the specification limits flagged on their bins.
func RenderHistogram(w io.Writer, values []float64, r Report, decimals, barWidth int) error {
	h := BuildHistogram(values)
	if len(h.Counts) == 0 {
		return nil
	}
	if barWidth <= 0 {
		barWidth = max(terminalWidth()-40, 20)
	}
	curve := h.Curve(r.Mean, r.StdDevOverall)
	peak := h.MaxCount()
	if _, err := fmt.Fprintln(w, "Distribution"); err != nil {
		return err
	}
	labelDecimals := max(2, decimals)
	for i, count := range h.Counts {
		lower, upper := h.Edges[i], h.Edges[i+1]
		bar := int(math.Round(float64(count) / float64(peak) * float64(barWidth)))
		mark := int(math.Round(curve[i] / float64(peak) * float64(barWidth)))
		row := []rune(strings.Repeat("█", bar) + strings.Repeat(" ", max(barWidth-bar, 0)+1))
		if mark >= 0 && mark < len(row) {
			row[mark] = '│'
		}
		flags := limitFlags(r, lower, upper, i == len(h.Counts)-1)
		if _, err := fmt.Fprintf(w, "%*.*f %s %4d%s\n", labelDecimals+6, labelDecimals, lower+h.Width/2, string(row), count, flags); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func limitFlags(r Report, lower, upper float64, last bool) string {
	in := func(v float64) bool {
		return v >= lower && (v < upper || (last && v <= upper))
	}
	var flags []string
	if r.LSL != nil && in(*r.LSL) {
		flags = append(flags, "LSL")
	}
	if r.USL != nil && in(*r.USL) {
		flags = append(flags, "USL")
	}
	if len(flags) == 0 {
		return ""
	}
	return "  ◄ " + strings.Join(flags, ", ")
}

// RenderHistory prints stored runs, newest last, followed by the Cpk trend.
func RenderHistory(w io.Writer, h History, width int) error {
	if len(h.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	runs := newTable(
		column{title: "ID", right: true},
		column{title: "Created"},
		column{title: "Spec"},
		column{title: "N", right: true},
		column{title: "Target", right: true},
		column{title: "Cpk", right: true},
		column{title: "Status"},
		column{title: "Attempts", right: true},
	)
	runs.rule = true
	for _, r := range h.Runs {
		cpk := "N/A"
		if r.AchievedCpk != nil {
			cpk = fmt.Sprintf("%.3f", *r.AchievedCpk)
		}
		runs.add(
			fmt.Sprintf("%d", r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Config.Spec.Type),
			fmt.Sprintf("%d", r.Config.SampleSize),
			fmt.Sprintf("%.3f", r.Config.TargetCpk),
			cpk,
			string(r.Status),
			fmt.Sprintf("%d", r.Attempts),
		)
	}
	if err := runs.write(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n%d runs, %d converged\n", len(h.Runs), h.Converged); err != nil {
		return err
	}
	if len(h.CpkTrend) < 2 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	plotWidth := 0
	if width > 0 {
		plotWidth = PlotWidthFor(width)
	}
	return PlotSeries(w, "Achieved Cpk per run", h.Series(), plotWidth, defaultPlotHeight, false)
}
