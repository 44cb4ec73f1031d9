// Package ascii provides width-aware helpers for aligned terminal output
package ascii

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Box builds a box containing the provided lines and returns it as a string.
// Lines are left-aligned with single-space padding on each side. Multi-width
// runes (emoji, CJK, etc.) are accounted for so the borders stay aligned.
func Box(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	trimmed := make([]string, len(lines))
	maxWidth := 0
	for i, line := range lines {
		trimmed[i] = strings.TrimRight(line, " ")
		if w := StringWidth(trimmed[i]); w > maxWidth {
			maxWidth = w
		}
	}

	innerWidth := maxWidth + 2
	border := strings.Repeat("─", innerWidth)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	for _, line := range trimmed {
		sb.WriteString("│ " + runewidth.FillRight(line, maxWidth) + " │\n")
	}
	sb.WriteString("└" + border + "┘\n")
	return sb.String()
}

// Table aligns rows into columns separated by two spaces. The first row is treated as a
// header and underlined. Cells wider than maxCell (when > 0) are truncated.
func Table(rows [][]string, maxCell int) string {
	if len(rows) == 0 {
		return ""
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}

	cells := make([][]string, len(rows))
	widths := make([]int, cols)
	for i, r := range rows {
		cells[i] = make([]string, cols)
		for j := 0; j < cols; j++ {
			if j < len(r) {
				cells[i][j] = r[j]
				if maxCell > 0 {
					cells[i][j] = Truncate(r[j], maxCell)
				}
			}
			widths[j] = max(widths[j], StringWidth(cells[i][j]))
		}
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		var line strings.Builder
		for j, c := range row {
			if j > 0 {
				line.WriteString("  ")
			}
			line.WriteString(runewidth.FillRight(c, widths[j]))
		}
		sb.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}
	writeRow(cells[0])
	rule := make([]string, cols)
	for j, w := range widths {
		rule[j] = strings.Repeat("-", w)
	}
	writeRow(rule)
	for _, row := range cells[1:] {
		writeRow(row)
	}
	return sb.String()
}

// Truncate shortens value to fit width display columns, appending "..." when there is room.
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// StringWidth returns the display width of a string, accounting for multi-width
// Unicode characters (emoji, CJK, etc.).
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
