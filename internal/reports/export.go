package reports

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	reportsSheet    = "Reports"
	parametersSheet = "Parameters"

	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	reportsHeader    = []any{"Report ID", "Date", "Type", "Status", "Risk Level", "Summary", "Diet", "Exercise", "Lifestyle", "Source File"}
	parametersHeader = []any{"Report ID", "Date", "Parameter", "Value", "Raw Value", "Unit", "Reference Range", "Status", "Explanation"}
)

// WriteWorkbook writes the session's reports as an XLSX workbook with one
// sheet of reports and one row per parameter on a second sheet.
func WriteWorkbook(w io.Writer, reports []MedicalReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(parametersSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if err := setRow(f, reportsSheet, 1, reportsHeader); err != nil {
		return err
	}
	if err := setRow(f, parametersSheet, 1, parametersHeader); err != nil {
		return err
	}

	paramRow := 2
	for i, r := range reports {
		date := r.Date.UTC().Format(time.RFC3339)
		row := []any{
			r.ID, date, r.Type, r.Status, r.RiskLevel, r.Summary,
			strings.Join(r.Recommendations.Diet, "; "),
			strings.Join(r.Recommendations.Exercise, "; "),
			strings.Join(r.Recommendations.Lifestyle, "; "),
			r.SourceFileName,
		}
		if err := setRow(f, reportsSheet, i+2, row); err != nil {
			return err
		}
		for _, p := range r.Parameters {
			var value any = ""
			if p.Value != nil {
				value = *p.Value
			}
			row := []any{r.ID, date, p.Name, value, p.RawValue, p.Unit, p.ReferenceRange, p.Status, p.Explanation}
			if err := setRow(f, parametersSheet, paramRow, row); err != nil {
				return err
			}
			paramRow++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
