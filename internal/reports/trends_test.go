package reports

import (
	"testing"
	"time"
)

func ptr(f float64) *float64 { return &f }

func TestBuildTrends(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC) }
	// newest first, as stored
	reports := []MedicalReport{
		{ID: "r3", Date: day(3), Parameters: []HealthParameter{
			{Name: "Cholesterol", Value: ptr(180), Unit: "mg/dL"},
			{Name: "Culture", Value: nil, RawValue: "negative"},
		}},
		{ID: "r2", Date: day(2), Parameters: []HealthParameter{
			{Name: "cholesterol ", Value: ptr(220), Unit: "mg/dL"},
			{Name: "HbA1c", Value: ptr(5.6), Unit: "%"},
		}},
		{ID: "r1", Date: day(1), Parameters: []HealthParameter{
			{Name: "Cholesterol", Value: ptr(220)},
		}},
	}

	trends := BuildTrends(reports)
	if len(trends) != 2 {
		t.Fatalf("expected 2 trends, got %d: %+v", len(trends), trends)
	}

	chol := trends[0]
	if chol.Name != "Cholesterol" || chol.Unit != "mg/dL" {
		t.Fatalf("unexpected cholesterol trend %+v", chol)
	}
	if len(chol.Points) != 3 || chol.Points[0].ReportID != "r1" || chol.Points[2].ReportID != "r3" {
		t.Fatalf("expected oldest-first points, got %+v", chol.Points)
	}
	if chol.Direction != TrendDown {
		t.Fatalf("expected down, got %q", chol.Direction)
	}
	if chol.ChangePct == nil || *chol.ChangePct != -18.2 {
		t.Fatalf("expected -18.2%%, got %v", chol.ChangePct)
	}

	hba1c := trends[1]
	if hba1c.Current == nil || *hba1c.Current != 5.6 || hba1c.Previous != nil || hba1c.Direction != "" {
		t.Fatalf("unexpected single-point trend %+v", hba1c)
	}
}

func TestBuildTrends_Empty(t *testing.T) {
	if got := BuildTrends(nil); len(got) != 0 {
		t.Fatalf("expected no trends, got %+v", got)
	}
}
