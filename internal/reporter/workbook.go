package reporter

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"portfolio-reconciliation-service/internal/models"
)

const (
	defaultSheet  = "Sheet1"
	maxSheetName  = 31
	maxColumnWide = 60.0
	minColumnWide = 8.0
)

// workbookStyles are the cell styles shared by every sheet.
type workbookStyles struct {
	header     int
	bold       int
	amount     int
	boldAmount int
}

func newWorkbookStyles(f *excelize.File) (*workbookStyles, error) {
	amountFmt := 4 // #,##0.00
	var s workbookStyles
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, err
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return nil, err
	}
	if s.amount, err = f.NewStyle(&excelize.Style{NumFmt: amountFmt}); err != nil {
		return nil, err
	}
	if s.boldAmount, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: amountFmt}); err != nil {
		return nil, err
	}
	return &s, nil
}

// BuildWorkbook writes one worksheet per table, in order. Header and
// grand-total rows are bold and column widths fit their content.
func BuildWorkbook(tables []*models.Table) (*excelize.File, error) {
	f := excelize.NewFile()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create workbook styles: %w", err)
	}

	for i, t := range tables {
		sheet := sheetName(t.Name)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, t, styles); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, t *models.Table, styles *workbookStyles) error {
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(t.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			values[i] = typedCell(c, t.Cell(r, i))
		}
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}

		total := t.IsTotalRow(r)
		for i, c := range t.Columns {
			style := 0
			switch {
			case kindOf(c) == kindAmount && total:
				style = styles.boldAmount
			case kindOf(c) == kindAmount:
				style = styles.amount
			case total:
				style = styles.bold
			}
			if style == 0 || i >= len(row) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return autofit(f, sheet, t)
}

// autofit sizes each column to its widest header or cell.
func autofit(f *excelize.File, sheet string, t *models.Table) error {
	for i, c := range t.Columns {
		width := float64(runewidth.StringWidth(c))
		for r := range t.Rows {
			if w := float64(runewidth.StringWidth(t.Cell(r, i))); w > width {
				width = w
			}
		}
		width += 2
		if width < minColumnWide {
			width = minColumnWide
		}
		if width > maxColumnWide {
			width = maxColumnWide
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}

// generateWorkbook streams the workbook to writer.
func (rg *ReportGenerator) generateWorkbook(rep *report, writer io.Writer) error {
	f, err := BuildWorkbook(rep.Tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
