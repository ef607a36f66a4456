package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medreport-backend/internal/extract"
	"medreport-backend/internal/llm"
	"medreport-backend/internal/shared/metrics"
	"medreport-backend/internal/shared/telemetry"
)

const (
	StageExtract      = "extract"
	StagePrecondition = "precondition"
	StageRequest      = "request"
	StageParse        = "parse"
	StageIntegrate    = "integrate"
	StageConflict     = "conflict"
)

// InFlightGuard serializes uploads per session.
type InFlightGuard interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// CompletionHook runs after a report has been committed. It must not fail the upload.
type CompletionHook interface {
	ReportCompleted(ctx context.Context, sessionID string, report MedicalReport)
}

// ReportSummarizer is satisfied by *Summarizer.
type ReportSummarizer interface {
	SummarizeReport(ctx context.Context, extractedText string, apiKey string) (AIReportSummary, error)
}

// Upload is one file submitted for processing.
type Upload struct {
	SessionID string
	FileName  string
	MimeType  string
	Data      []byte
	APIKey    string
}

// Pipeline runs extract, summarize and integrate in order for one upload.
type Pipeline struct {
	Extract    func(ctx context.Context, data []byte, mimeType string, fileName string) (string, error)
	Summarizer ReportSummarizer
	Integrator *Integrator
	Guard      InFlightGuard
	Hooks      []CompletionHook
	Timeout    time.Duration
}

// Process runs the whole upload. On any error the session state is unchanged.
func (p *Pipeline) Process(ctx context.Context, up Upload) (result UploadResult, err error) {
	if strings.TrimSpace(up.SessionID) == "" {
		return UploadResult{}, &PreconditionError{Field: "session_id", Reason: "a session is required"}
	}
	if p.Summarizer == nil || p.Integrator == nil {
		return UploadResult{}, errors.New("pipeline is not fully configured")
	}

	if p.Guard != nil {
		release, err := p.Guard.Acquire(ctx, up.SessionID)
		if err != nil {
			if errors.Is(err, ErrUploadInFlight) {
				metrics.IncUploadFailed(StageConflict)
			}
			return UploadResult{}, err
		}
		defer release()
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	started := time.Now()
	metrics.IncUploadStarted()
	defer func() {
		elapsed := time.Since(started)
		metrics.ObserveUploadDurationMs(float64(elapsed.Milliseconds()))
		fields := map[string]any{
			"request_id":  telemetry.RequestID(ctx),
			"session_id":  up.SessionID,
			"file_name":   up.FileName,
			"duration_ms": elapsed.Milliseconds(),
		}
		if err != nil {
			stage := Stage(err)
			metrics.IncUploadFailed(stage)
			fields["stage"] = stage
			fields["error"] = err.Error()
			telemetry.Error("upload.failed", fields)
			return
		}
		metrics.IncUploadCompleted()
		fields["report_id"] = result.ID
		fields["risk_level"] = result.Summary.RiskLevel
		fields["parameters"] = len(result.Summary.Parameters)
		telemetry.Info("upload.completed", fields)
	}()

	extractFn := p.Extract
	if extractFn == nil {
		extractFn = extract.FromUpload
	}
	text, err := extractFn(ctx, up.Data, up.MimeType, up.FileName)
	if err != nil {
		return UploadResult{}, fmt.Errorf("extract: %w", err)
	}

	var promptHash string
	summary, err := p.Summarizer.SummarizeReport(llm.WithPromptHashSink(ctx, &promptHash), text, up.APIKey)
	if err != nil {
		return UploadResult{}, err
	}

	report, err := p.Integrator.Integrate(ctx, up.SessionID, summary, ReportMeta{
		SourceFileName: up.FileName,
		PromptHash:     promptHash,
	})
	if err != nil {
		return UploadResult{}, err
	}

	for _, hook := range p.Hooks {
		hook.ReportCompleted(context.WithoutCancel(ctx), up.SessionID, report)
	}
	return UploadResult{ID: report.ID, Summary: summary}, nil
}

// Stage names the pipeline step an error came from.
func Stage(err error) string {
	var (
		docErr    *extract.DocumentParseError
		preErr    *PreconditionError
		extErr    *llm.ExternalServiceError
		parseErr  *ResponseParseError
		schemaErr *SchemaValidationError
	)
	switch {
	case errors.Is(err, ErrUploadInFlight):
		return StageConflict
	case errors.As(err, &docErr):
		return StageExtract
	case errors.As(err, &preErr):
		return StagePrecondition
	case errors.As(err, &extErr):
		return StageRequest
	case errors.As(err, &parseErr), errors.As(err, &schemaErr):
		return StageParse
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return StageRequest
	default:
		return StageIntegrate
	}
}
