package reports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"medreport-backend/internal/shared/metrics"
	"medreport-backend/internal/shared/telemetry"
)

// ReportAdder is the state-store hook the integrator commits through.
type ReportAdder interface {
	AddReport(ctx context.Context, sessionID string, report MedicalReport) error
}

// ReportMeta carries upload details that are not part of the model output.
type ReportMeta struct {
	SourceFileName string
	PromptHash     string
}

// Integrator converts a validated summary into a MedicalReport and stores it.
type Integrator struct {
	Store ReportAdder
	NewID func() string
	Now   func() time.Time
}

// Integrate builds the report and calls AddReport exactly once.
// Nothing is stored when it returns an error.
func (i *Integrator) Integrate(ctx context.Context, sessionID string, summary AIReportSummary, meta ReportMeta) (MedicalReport, error) {
	if i.Store == nil {
		return MedicalReport{}, errors.New("integrator has no store")
	}
	if err := ctx.Err(); err != nil {
		return MedicalReport{}, err
	}
	report := i.BuildReport(summary, meta)
	if err := i.Store.AddReport(ctx, sessionID, report); err != nil {
		return MedicalReport{}, fmt.Errorf("add report: %w", err)
	}
	return report, nil
}

// BuildReport assembles a completed report without storing it.
func (i *Integrator) BuildReport(summary AIReportSummary, meta ReportMeta) MedicalReport {
	newID := i.NewID
	if newID == nil {
		newID = newReportID
	}
	now := i.Now
	if now == nil {
		now = time.Now
	}
	id := newID()
	return MedicalReport{
		ID:         id,
		Date:       now().UTC(),
		Type:       ReportTypePDFUpload,
		Status:     ReportStatusCompleted,
		Summary:    summary.Summary,
		RiskLevel:  summary.RiskLevel,
		Parameters: coerceParameters(id, summary.Parameters),
		Recommendations: Recommendations{
			Diet:      cloneStrings(summary.Recommendations.Diet),
			Exercise:  cloneStrings(summary.Recommendations.Exercise),
			Lifestyle: cloneStrings(summary.Recommendations.Lifestyle),
		},
		SourceFileName: meta.SourceFileName,
		PromptHash:     meta.PromptHash,
	}
}

// CoerceParameter maps a model parameter to its stored form. Values with no
// leading number are stored as nil with the original text in RawValue.
func CoerceParameter(p ReportParameter) (HealthParameter, bool) {
	out := HealthParameter{
		Name:           p.Name,
		Unit:           p.Unit,
		ReferenceRange: p.ReferenceRange,
		Status:         p.Status,
		Explanation:    p.Explanation,
	}
	f, ok := p.Value.Float()
	if ok {
		out.Value = &f
	}
	if !ok || p.Value.IsString() {
		out.RawValue = p.Value.String()
	}
	return out, ok
}

func coerceParameters(reportID string, params []ReportParameter) []HealthParameter {
	out := make([]HealthParameter, 0, len(params))
	for _, p := range params {
		hp, ok := CoerceParameter(p)
		if !ok {
			metrics.IncCoercionFallback()
			telemetry.Warn("report.parameter.non_numeric", map[string]any{
				"report_id": reportID,
				"parameter": p.Name,
				"raw_value": p.Value.String(),
			})
		}
		out = append(out, hp)
	}
	return out
}

func newReportID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
