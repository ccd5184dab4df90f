// ABOUTME: Terminal rendering helpers shared by the CLI commands.
// ABOUTME: Prints query tables as aligned columns with a faint header.
package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/harperreed/vamos/internal/query"
)

const maxCell = 40

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}

func padRight(s string, length int) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

// printTable writes t as space-aligned columns.
func printTable(w io.Writer, t query.Table) {
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, "No data.")
		return
	}

	cells := make([][]string, len(t.Rows))
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			s := truncate(query.FormatValue(v), maxCell)
			cells[r][i] = s
			widths[i] = max(widths[i], utf8.RuneCountInString(s))
		}
	}

	faint := color.New(color.Faint)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = padRight(c, widths[i])
	}
	fmt.Fprintln(w, faint.Sprint(strings.TrimRight(strings.Join(header, "  "), " ")))
	for _, row := range cells {
		line := make([]string, len(row))
		for i, s := range row {
			line[i] = padRight(s, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(line, "  "), " "))
	}
}

// heading prints a bold section title.
func heading(w io.Writer, title string) {
	fmt.Fprintln(w, color.New(color.Bold).Sprint(title))
}
