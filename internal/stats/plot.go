package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisLabelWidth      = 8
	axisSeparator       = " ┤"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var seriesColors = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m", "\x1b[32m"}

// PlotSeries renders series on a shared vertical scale using braille dots.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	var kept []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range kept {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) {
		lo, hi = 0, 1
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}

	// Each cell holds a 2x4 braille dot grid.
	dotsW, dotsH := width*2, height*4
	layers := make([][][]uint8, len(kept))
	for si, s := range kept {
		cells := make([][]uint8, height)
		for y := range cells {
			cells[y] = make([]uint8, width)
		}
		points := resample(s.Values, dotsW)
		prevX, prevY := -1, -1
		for x, v := range points {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				prevX = -1
				continue
			}
			y := scaleRow(v, lo, hi, dotsH)
			if prevX < 0 {
				setDot(cells, x, y)
			} else {
				line(prevX, prevY, x, y, func(px, py int) { setDot(cells, px, py) })
			}
			prevX, prevY = x, y
		}
		layers[si] = cells
	}

	useColor := shouldUseColor(w, forceColor)
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteByte('\n')
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = fmt.Sprintf("%.3f", hi)
		case height - 1:
			label = fmt.Sprintf("%.3f", lo)
		case height / 2:
			label = fmt.Sprintf("%.3f", (hi+lo)/2)
		}
		fmt.Fprintf(&b, "%*s%s", axisLabelWidth, label, axisSeparator)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for si, cells := range layers {
				if m := cells[y][x]; m != 0 {
					mask |= m
					if owner < 0 {
						owner = si
					}
				}
			}
			ch := rune(0x2800 + int(mask))
			if useColor && owner >= 0 {
				b.WriteString(seriesColors[owner%len(seriesColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
			} else {
				b.WriteRune(ch)
			}
		}
		b.WriteByte('\n')
	}
	names := make([]string, len(kept))
	for i, s := range kept {
		names[i] = s.Name
		if useColor {
			names[i] = seriesColors[i%len(seriesColors)] + s.Name + colorReset
		}
	}
	b.WriteString("Legend: " + strings.Join(names, "  ") + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisLabelWidth-displayWidth(axisSeparator), minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// resample stretches or averages values onto width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == 0:
		return nil
	case n == 1:
		for i := range out {
			out[i] = values[0]
		}
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			out[i] = Mean(values[start:end])
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(max(width-1, 1))
			idx := min(int(pos), n-2)
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func scaleRow(v, lo, hi float64, rows int) int {
	pos := (v - lo) / (hi - lo)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

// line walks a Bresenham segment between two dot coordinates.
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// brailleBits indexes dot masks by [column][row] inside a cell.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(cells [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(cells) || cx >= len(cells[cy]) {
		return
	}
	cells[cy][cx] |= brailleBits[x%2][y%4]
}
