package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medreport-backend/internal/llm"
	"medreport-backend/internal/shared/metrics"
	"medreport-backend/internal/shared/telemetry"
)

// Summarizer turns extracted report text into a validated summary with one model call.
type Summarizer struct {
	LLM         llm.Client
	Model       string
	Temperature float64
	Cache       *SummaryCache
}

// SummarizeReport checks its inputs, sends one completion request and parses the reply.
// Missing inputs fail with *PreconditionError before anything is sent.
func (s *Summarizer) SummarizeReport(ctx context.Context, extractedText string, apiKey string) (AIReportSummary, error) {
	if strings.TrimSpace(extractedText) == "" {
		return AIReportSummary{}, &PreconditionError{Field: "extracted_text", Reason: "no text was extracted from the document"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return AIReportSummary{}, &PreconditionError{Field: "api_key", Reason: "an LLM API key is required"}
	}
	if s.LLM == nil {
		return AIReportSummary{}, errors.New("summarizer has no llm client")
	}

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: BuildSummaryPrompt(extractedText)},
	}
	key := summaryCacheKey(s.Model, extractedText)
	if cached, ok := s.Cache.Get(key); ok {
		// the client fills the sink only on a real request
		if sink, ok := llm.PromptHashSinkFromContext(ctx); ok && sink != nil {
			*sink = llm.HashMessages(messages)
		}
		metrics.IncSummaryCacheHit()
		return cached, nil
	}

	temp := s.Temperature
	raw, err := s.LLM.Complete(ctx, llm.Request{
		APIKey:      apiKey,
		Model:       s.Model,
		Temperature: &temp,
		Messages:    messages,
	})
	if err != nil {
		return AIReportSummary{}, fmt.Errorf("summarize report: %w", err)
	}

	summary, err := ParseSummary(raw)
	if err != nil {
		telemetry.Warn("summary.rejected", map[string]any{
			"model":  s.Model,
			"error":  err.Error(),
			"output": truncate(raw, 500),
		})
		return AIReportSummary{}, fmt.Errorf("summarize report: %w", err)
	}
	s.Cache.Add(key, summary)
	return summary, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
