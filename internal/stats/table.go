package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	title string
	right bool
}

// textTable lays out aligned plain-text columns.
type textTable struct {
	cols []column
	rows [][]string
	rule bool
}

func newTable(cols ...column) *textTable {
	return &textTable{cols: cols}
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *textTable) widths() []int {
	widths := make([]int, len(t.cols))
	for i, c := range t.cols {
		widths[i] = displayWidth(c.title)
	}
	for _, row := range t.rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			widths[i] = max(widths[i], displayWidth(row[i]))
		}
	}
	return widths
}

func (t *textTable) lines() []string {
	if len(t.cols) == 0 {
		return nil
	}
	widths := t.widths()
	lines := make([]string, 0, len(t.rows)+2)
	headers := make([]string, len(t.cols))
	hasHeader := false
	for i, c := range t.cols {
		headers[i] = c.title
		hasHeader = hasHeader || c.title != ""
	}
	if hasHeader {
		lines = append(lines, t.formatRow(headers, widths))
		if t.rule {
			total := 0
			for _, w := range widths {
				total += w
			}
			lines = append(lines, strings.Repeat("─", total+len(widths)-1))
		}
	}
	for _, row := range t.rows {
		lines = append(lines, t.formatRow(row, widths))
	}
	return lines
}

func (t *textTable) formatRow(row []string, widths []int) string {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(padCell(cell, w, t.cols[i].right))
	}
	return strings.TrimRight(b.String(), " ")
}

func (t *textTable) write(w io.Writer) error {
	for _, line := range t.lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func padCell(value string, width int, rightAlign bool) string {
	gap := width - displayWidth(value)
	if gap <= 0 {
		return value
	}
	if rightAlign {
		return strings.Repeat(" ", gap) + value
	}
	return value + strings.Repeat(" ", gap)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
