package stats

import "testing"

func TestTableAlignsColumns(t *testing.T) {
	tbl := newTable(column{title: "Index"}, column{title: "Value", right: true}, column{title: "Grade"})
	tbl.add("Cpk", "1.334", "ok")
	tbl.add("Cp", "∞", "bad")

	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Index Value Grade" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Cpk   1.334 ok" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Cp        ∞ bad" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTableRule(t *testing.T) {
	tbl := newTable(column{title: "A"}, column{title: "BB"})
	tbl.rule = true
	tbl.add("x", "y")
	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected header, rule and row, got %d lines", len(lines))
	}
	if lines[1] != "────" {
		t.Fatalf("unexpected rule: %q", lines[1])
	}
}
