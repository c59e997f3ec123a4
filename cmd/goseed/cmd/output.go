package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/goseed/internal/seeder"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// table renders left-aligned columns. style, when set, colours a cell after
// padding so escape codes do not disturb alignment.
type table struct {
	headers []string
	rows    [][]string
	style   func(row, col int, cell string) string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string, row int) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			padded := runewidth.FillRight(cell, widths[i])
			if t.style != nil && row >= 0 {
				padded = t.style(row, i, padded)
			}
			parts[i] = padded
		}
		fmt.Fprintf(w, "  %s\n", strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(t.headers, -1)
	sep := make([]string, len(widths))
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}
	line(sep, -1)
	for i, row := range t.rows {
		line(row, i)
	}
}

// printRunSummary prints the per-unit counts followed by every warning and
// failure of a run.
func printRunSummary(w io.Writer, kind string, s *seeder.RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.OpBold.Sprintf("=== Seed Summary: %s ===", kind))

	t := &table{headers: []string{"UNIT", "CREATED", "UPDATED", "WARNINGS", "FAILURES"}}
	t.style = func(row, col int, cell string) string {
		u := s.Units[row]
		switch {
		case col == 4 && len(u.Failures) > 0:
			return color.Red.Sprint(cell)
		case col == 3 && len(u.Warnings) > 0:
			return color.Yellow.Sprint(cell)
		case col == 1 && u.Created > 0:
			return color.Green.Sprint(cell)
		}
		return cell
	}
	for _, u := range s.Units {
		t.add(u.Name,
			strconv.Itoa(u.Created),
			strconv.Itoa(u.Updated),
			strconv.Itoa(len(u.Warnings)),
			strconv.Itoa(len(u.Failures)))
	}
	t.render(w)

	created, updated := s.Totals()
	fmt.Fprintf(w, "\nTotal: %d created, %d updated, %d warnings, %d failures\n",
		created, updated, len(s.Warnings), len(s.Failures))

	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.Yellow.Sprint("Warnings:"))
		for _, msg := range s.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.Red.Sprint("Failures:"))
		for _, msg := range s.Failures {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}
