package reports

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"medreport-backend/internal/llm"
)

func TestSummarizeReport_EmptyTextFailsBeforeNetwork(t *testing.T) {
	client := &fakeLLM{reply: hdlSummaryJSON}
	s := &Summarizer{LLM: client, Model: "m"}

	_, err := s.SummarizeReport(context.Background(), "   \n", "key")
	var preErr *PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no llm call, got %d", client.calls)
	}
}

func TestSummarizeReport_MissingKeyFailsBeforeNetwork(t *testing.T) {
	client := &fakeLLM{reply: hdlSummaryJSON}
	s := &Summarizer{LLM: client, Model: "m"}

	_, err := s.SummarizeReport(context.Background(), "HDL: 45 mg/dL", "")
	var preErr *PreconditionError
	if !errors.As(err, &preErr) || preErr.Field != "api_key" {
		t.Fatalf("expected api_key PreconditionError, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no llm call, got %d", client.calls)
	}
}

func TestSummarizeReport_SendsPromptWithReportText(t *testing.T) {
	client := &fakeLLM{reply: "```json\n" + hdlSummaryJSON + "\n```"}
	s := &Summarizer{LLM: client, Model: "deepseek/test", Temperature: 0.3}

	got, err := s.SummarizeReport(context.Background(), "HDL: 45 mg/dL", "key")
	if err != nil {
		t.Fatalf("SummarizeReport: %v", err)
	}
	if got.RiskLevel != RiskMedium {
		t.Fatalf("unexpected risk %q", got.RiskLevel)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", client.calls)
	}
	req := client.requests[0]
	if req.APIKey != "key" || req.Model != "deepseek/test" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.3 {
		t.Fatalf("unexpected temperature %v", req.Temperature)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser {
		t.Fatalf("expected one user message, got %+v", req.Messages)
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, "HDL: 45 mg/dL") || !strings.Contains(prompt, `"risk_level"`) {
		t.Fatalf("prompt missing report text or keys: %q", prompt)
	}
}

func TestSummarizeReport_PropagatesExternalServiceError(t *testing.T) {
	client := &fakeLLM{err: &llm.ExternalServiceError{StatusCode: http.StatusUnauthorized, Body: "bad key"}}
	s := &Summarizer{LLM: client}

	_, err := s.SummarizeReport(context.Background(), "text", "key")
	var extErr *llm.ExternalServiceError
	if !errors.As(err, &extErr) || extErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 ExternalServiceError, got %v", err)
	}
}

func TestSummarizeReport_CacheAvoidsSecondCall(t *testing.T) {
	cache, err := NewSummaryCache(4)
	if err != nil {
		t.Fatalf("NewSummaryCache: %v", err)
	}
	client := &fakeLLM{reply: hdlSummaryJSON}
	s := &Summarizer{LLM: client, Model: "m", Cache: cache}

	for range 2 {
		if _, err := s.SummarizeReport(context.Background(), "HDL: 45 mg/dL", "key"); err != nil {
			t.Fatalf("SummarizeReport: %v", err)
		}
	}
	if client.calls != 1 {
		t.Fatalf("expected one llm call with cache, got %d", client.calls)
	}
}

func TestSummarizeReport_CacheHitRecordsPromptHash(t *testing.T) {
	cache, _ := NewSummaryCache(4)
	client := &fakeLLM{reply: hdlSummaryJSON}
	s := &Summarizer{LLM: client, Model: "m", Cache: cache}
	text := "HDL: 45 mg/dL"

	if _, err := s.SummarizeReport(context.Background(), text, "key"); err != nil {
		t.Fatalf("SummarizeReport: %v", err)
	}

	var hash string
	if _, err := s.SummarizeReport(llm.WithPromptHashSink(context.Background(), &hash), text, "key"); err != nil {
		t.Fatalf("SummarizeReport cached: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected cache hit, got %d llm calls", client.calls)
	}
	want := llm.HashMessages([]llm.Message{{Role: llm.RoleUser, Content: BuildSummaryPrompt(text)}})
	if hash == "" || hash != want {
		t.Fatalf("expected prompt hash %q, got %q", want, hash)
	}
}

func TestSummarizeReport_RejectedOutputNotCached(t *testing.T) {
	cache, _ := NewSummaryCache(4)
	client := &fakeLLM{reply: "not json"}
	s := &Summarizer{LLM: client, Model: "m", Cache: cache}

	_, err := s.SummarizeReport(context.Background(), "text", "key")
	var parseErr *ResponseParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ResponseParseError, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestNewSummaryCache_DisabledWhenZero(t *testing.T) {
	cache, err := NewSummaryCache(0)
	if err != nil || cache != nil {
		t.Fatalf("expected nil cache, got %v %v", cache, err)
	}
	if _, ok := cache.Get("x"); ok {
		t.Fatal("nil cache must miss")
	}
}
