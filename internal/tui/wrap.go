package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/cpkgen/internal/export"
	"github.com/verte-zerg/cpkgen/internal/model"
)

type styledValue struct {
	s     string
	width int
}

// buildStyledValues renders each value, marking those outside the value
// range and those outside the specification limits.
func buildStyledValues(values []float64, cfg model.Config) []styledValue {
	out := make([]styledValue, 0, len(values))
	for _, v := range values {
		text := export.FormatValue(v, cfg.Decimals)
		style := valueStyle
		switch {
		case v < cfg.MinVal || v > cfg.MaxVal:
			style = outOfRangeStyle
		case outsideSpec(v, cfg.Spec):
			style = outOfSpecStyle
		}
		out = append(out, styledValue{
			s:     style.Render(text),
			width: runewidth.StringWidth(text),
		})
	}
	return out
}

func outsideSpec(v float64, spec model.Specification) bool {
	if spec.LSL != nil && v < *spec.LSL {
		return true
	}
	return spec.USL != nil && v > *spec.USL
}

// wrapStyledValues joins values with single spaces, breaking lines so no
// line exceeds width cells. maxLines > 0 truncates with an ellipsis line.
func wrapStyledValues(values []styledValue, width, maxLines int) string {
	if len(values) == 0 {
		return ""
	}
	var lines []string
	var line strings.Builder
	lineWidth := 0
	for _, item := range values {
		if lineWidth > 0 && width > 0 && lineWidth+1+item.width > width {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(item.s)
		lineWidth += item.width
	}
	lines = append(lines, line.String())
	if maxLines > 0 && len(lines) > maxLines {
		lines = append(lines[:maxLines], mutedStyle.Render("…"))
	}
	return strings.Join(lines, "\n")
}
