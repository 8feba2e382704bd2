package reporter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	md "github.com/nao1215/markdown"

	"portfolio-reconciliation-service/internal/models"
)

// markdown renders the report tables as a markdown document.
func (rg *ReportGenerator) markdown(rep *report) (string, error) {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolio Reconciliation")
	doc.PlainText(fmt.Sprintf("Run `%s`", rep.RunID))

	for _, t := range rep.Tables {
		doc.H2(t.Name)
		if len(t.Rows) == 0 {
			doc.PlainText("_No rows._")
			continue
		}
		doc.Table(rg.tableSet(t))
		if hidden := len(t.Rows) - rg.visibleRows(t); hidden > 0 {
			doc.PlainText(fmt.Sprintf("... and %d more", hidden))
		}
	}

	if len(rep.Warnings) > 0 {
		doc.H2("Warnings")
		doc.BulletList(rep.Warnings...)
	}

	if err := doc.Build(); err != nil {
		return "", fmt.Errorf("failed to build markdown report: %w", err)
	}
	return buf.String(), nil
}

func (rg *ReportGenerator) visibleRows(t *models.Table) int {
	if rg.config.MaxRows > 0 && len(t.Rows) > rg.config.MaxRows {
		return rg.config.MaxRows
	}
	return len(t.Rows)
}

func (rg *ReportGenerator) tableSet(t *models.Table) md.TableSet {
	set := md.TableSet{
		Header:    t.Columns,
		Alignment: make([]md.TableAlignment, len(t.Columns)),
	}
	for i, c := range t.Columns {
		if kindOf(c) == kindText {
			set.Alignment[i] = md.AlignLeft
		} else {
			set.Alignment[i] = md.AlignRight
		}
	}

	for r := 0; r < rg.visibleRows(t); r++ {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			value := displayCell(c, t.Cell(r, i), rg.config.Currency)
			if t.IsTotalRow(r) && value != "" {
				value = md.Bold(value)
			}
			row[i] = value
		}
		set.Rows = append(set.Rows, row)
	}
	return set
}

// generateMarkdownReport writes the markdown source, or its terminal
// rendering when RenderMarkdown is set.
func (rg *ReportGenerator) generateMarkdownReport(rep *report, writer io.Writer) error {
	text, err := rg.markdown(rep)
	if err != nil {
		return err
	}

	if rg.config.RenderMarkdown {
		rendered, err := rg.renderTerminal(text)
		if err != nil {
			return err
		}
		text = rendered
	}

	_, err = io.WriteString(writer, text)
	return err
}

func (rg *ReportGenerator) renderTerminal(text string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(rg.config.MarkdownStyle),
		glamour.WithWordWrap(rg.config.WordWrap),
	)
	if err != nil {
		return "", &renderError{err: err}
	}
	out, err := renderer.Render(text)
	if err != nil {
		return "", &renderError{err: err}
	}
	return out, nil
}

// renderError marks a failure in terminal rendering; the markdown source
// itself is still valid.
type renderError struct {
	err error
}

func (e *renderError) Error() string { return "failed to render markdown: " + e.err.Error() }

func (e *renderError) Unwrap() error { return e.err }
