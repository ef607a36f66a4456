package reports

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
}

func TestIntegrate_NonNumericValueBecomesSentinel(t *testing.T) {
	store := newMemReports()
	in := &Integrator{Store: store, NewID: sequentialIDs("r1"), Now: fixedNow}
	summary := AIReportSummary{
		Summary:   "s",
		RiskLevel: RiskLow,
		Parameters: []ReportParameter{
			{Name: "Culture", Value: StringValue("abc"), Status: StatusNormal},
		},
	}

	report, err := in.Integrate(context.Background(), "s1", summary, ReportMeta{})
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	p := report.Parameters[0]
	if p.Value != nil {
		t.Fatalf("expected nil sentinel, got %v", *p.Value)
	}
	if p.RawValue != "abc" {
		t.Fatalf("expected raw value kept, got %q", p.RawValue)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"value":null`) {
		t.Fatalf("expected null value in JSON, got %s", data)
	}
}

func TestIntegrate_CoercesLeadingNumbers(t *testing.T) {
	cases := []struct {
		in   Value
		want float64
		ok   bool
	}{
		{in: NumberValue(45), want: 45, ok: true},
		{in: NumberValue(5.6), want: 5.6, ok: true},
		{in: StringValue("45 mg/dL"), want: 45, ok: true},
		{in: StringValue(" 7.2%"), want: 7.2, ok: true},
		{in: StringValue("-3"), want: -3, ok: true},
		{in: StringValue("1,250 cells/uL"), want: 1250, ok: true},
		{in: StringValue(".5"), want: 0.5, ok: true},
		{in: StringValue("<0.5"), ok: false},
		{in: StringValue("abc"), ok: false},
		{in: StringValue(""), ok: false},
		{in: StringValue("Negative"), ok: false},
	}
	for _, tc := range cases {
		hp, ok := CoerceParameter(ReportParameter{Name: "x", Value: tc.in})
		if ok != tc.ok {
			t.Fatalf("CoerceParameter(%q) ok=%v, want %v", tc.in.String(), ok, tc.ok)
		}
		if !ok {
			if hp.Value != nil {
				t.Fatalf("expected nil for %q", tc.in.String())
			}
			continue
		}
		if hp.Value == nil || *hp.Value != tc.want {
			t.Fatalf("CoerceParameter(%q) = %v, want %v", tc.in.String(), hp.Value, tc.want)
		}
	}
}

func TestIntegrate_NewestFirst(t *testing.T) {
	store := newMemReports()
	in := &Integrator{Store: store, NewID: sequentialIDs("r1", "r2"), Now: fixedNow}
	summary := AIReportSummary{Summary: "s", RiskLevel: RiskLow}

	for range 2 {
		if _, err := in.Integrate(context.Background(), "s1", summary, ReportMeta{}); err != nil {
			t.Fatalf("Integrate: %v", err)
		}
	}
	list, _ := store.ListReports(context.Background(), "s1")
	if len(list) != 2 || list[0].ID != "r2" || list[1].ID != "r1" {
		t.Fatalf("expected [r2 r1], got %+v", list)
	}
}

func TestIntegrate_StoreFailureLeavesNothing(t *testing.T) {
	store := newMemReports()
	store.err = errors.New("disk full")
	in := &Integrator{Store: store, Now: fixedNow}

	_, err := in.Integrate(context.Background(), "s1", AIReportSummary{Summary: "s", RiskLevel: RiskLow}, ReportMeta{})
	if err == nil {
		t.Fatal("expected error")
	}
	if store.adds != 1 {
		t.Fatalf("expected exactly one add attempt, got %d", store.adds)
	}
	list, _ := store.ListReports(context.Background(), "s1")
	if len(list) != 0 {
		t.Fatalf("expected empty store, got %d", len(list))
	}
}

func TestBuildReport_Fields(t *testing.T) {
	in := &Integrator{NewID: sequentialIDs("r1"), Now: fixedNow}
	summary, err := ParseSummary(hdlSummaryJSON)
	if err != nil {
		t.Fatalf("ParseSummary: %v", err)
	}
	report := in.BuildReport(summary, ReportMeta{SourceFileName: "lab.pdf"})

	if report.Status != ReportStatusCompleted || report.Type != ReportTypePDFUpload {
		t.Fatalf("unexpected status/type %q/%q", report.Status, report.Type)
	}
	if !report.Date.Equal(fixedNow()) {
		t.Fatalf("unexpected date %v", report.Date)
	}
	if report.SourceFileName != "lab.pdf" {
		t.Fatalf("unexpected source %q", report.SourceFileName)
	}
	if report.Recommendations.Diet[0] != "Eat more fish" {
		t.Fatalf("unexpected recommendations %+v", report.Recommendations)
	}
}

func TestBuildReport_DefaultIDIsTimeOrderedUUID(t *testing.T) {
	in := &Integrator{}
	report := in.BuildReport(AIReportSummary{Summary: "s", RiskLevel: RiskLow}, ReportMeta{})
	id, err := uuid.Parse(report.ID)
	if err != nil {
		t.Fatalf("expected uuid id, got %q", report.ID)
	}
	if id.Version() != 7 {
		t.Fatalf("expected UUIDv7, got version %d", id.Version())
	}
	if report.Recommendations.Diet == nil {
		t.Fatal("expected non-nil recommendation slices")
	}
}
