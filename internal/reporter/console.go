package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"portfolio-reconciliation-service/internal/models"
)

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(rep *report, writer io.Writer) error {
	fmt.Fprintf(writer, "PORTFOLIO RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run: %s\n\n", rep.RunID)

	for _, t := range rep.Tables {
		fmt.Fprintf(writer, "=== %s ===\n", strings.ToUpper(t.Name))
		rg.printTable(t, writer)
		fmt.Fprintf(writer, "\n")
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintf(writer, "=== WARNINGS ===\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(rep.Stages) > 0 {
		fmt.Fprintf(writer, "=== STAGES ===\n")
		for _, s := range rep.Stages {
			fmt.Fprintf(writer, "  %-22s %8v rows  %s\n", s["name"], s["rows"], s["duration"])
		}
	}

	return nil
}

func (rg *ReportGenerator) printTable(t *models.Table, writer io.Writer) {
	if len(t.Rows) == 0 {
		fmt.Fprintf(writer, "  (no rows)\n")
		return
	}

	rows := t.Rows
	if rg.config.MaxRows > 0 && len(rows) > rg.config.MaxRows {
		rows = rows[:rg.config.MaxRows]
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(t.Columns))
		for i := range t.Columns {
			var value string
			if i < len(row) {
				value = displayCell(t.Columns[i], row[i], rg.config.Currency)
			}
			cells[r][i] = value
			if w := runewidth.StringWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}

	rg.printRow(writer, t.Columns, t.Columns, widths)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	fmt.Fprintf(writer, "  %s\n", strings.Join(rule, "  "))
	for _, row := range cells {
		rg.printRow(writer, t.Columns, row, widths)
	}

	if hidden := len(t.Rows) - len(rows); hidden > 0 {
		fmt.Fprintf(writer, "  ... and %d more\n", hidden)
	}
}

func (rg *ReportGenerator) printRow(writer io.Writer, columns, cells []string, widths []int) {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		if kindOf(columns[i]) == kindText {
			padded[i] = runewidth.FillRight(cell, widths[i])
		} else {
			padded[i] = runewidth.FillLeft(cell, widths[i])
		}
	}
	fmt.Fprintf(writer, "  %s\n", strings.TrimRight(strings.Join(padded, "  "), " "))
}
