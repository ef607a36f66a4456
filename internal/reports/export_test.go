package reports

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	reports := []MedicalReport{
		{
			ID:        "r2",
			Date:      fixedNow(),
			Type:      ReportTypePDFUpload,
			Status:    ReportStatusCompleted,
			Summary:   "Lipids improved",
			RiskLevel: RiskLow,
			Parameters: []HealthParameter{
				{Name: "HDL", Value: ptr(52), Unit: "mg/dL", Status: StatusNormal},
				{Name: "Culture", RawValue: "negative", Status: StatusNormal},
			},
			Recommendations: Recommendations{Diet: []string{"Fish", "Oats"}},
		},
		{ID: "r1", Date: fixedNow(), Summary: "Baseline", RiskLevel: RiskMedium},
	}

	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, reports); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	reportRows, err := f.GetRows(reportsSheet)
	if err != nil {
		t.Fatalf("GetRows reports: %v", err)
	}
	if len(reportRows) != 3 {
		t.Fatalf("expected header + 2 report rows, got %d", len(reportRows))
	}
	if reportRows[1][0] != "r2" || reportRows[1][6] != "Fish; Oats" {
		t.Fatalf("unexpected report row %v", reportRows[1])
	}

	paramRows, err := f.GetRows(parametersSheet)
	if err != nil {
		t.Fatalf("GetRows parameters: %v", err)
	}
	if len(paramRows) != 3 {
		t.Fatalf("expected header + 2 parameter rows, got %d", len(paramRows))
	}
	if paramRows[1][2] != "HDL" || paramRows[1][3] != "52" {
		t.Fatalf("unexpected HDL row %v", paramRows[1])
	}
	if paramRows[2][3] != "" || paramRows[2][4] != "negative" {
		t.Fatalf("unexpected sentinel row %v", paramRows[2])
	}
}
