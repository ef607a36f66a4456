package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"medreport-backend/internal/llm"
	"medreport-backend/internal/reports"
)

type fakeLLM struct {
	reply string
	err   error
	last  llm.Request
	calls int
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

type fakeStore struct {
	mu   sync.Mutex
	msgs map[string][]Message
}

func (f *fakeStore) AppendChatMessages(ctx context.Context, sessionID string, msgs ...Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgs == nil {
		f.msgs = map[string][]Message{}
	}
	f.msgs[sessionID] = append(f.msgs[sessionID], msgs...)
	return nil
}

func (f *fakeStore) ListChatMessages(ctx context.Context, sessionID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.msgs[sessionID]...), nil
}

type fakeReports []reports.MedicalReport

func (f fakeReports) ListReports(context.Context, string) ([]reports.MedicalReport, error) {
	return f, nil
}

func TestSend_UsesLatestReportAsContext(t *testing.T) {
	hdl := 45.0
	client := &fakeLLM{reply: " Your HDL is a bit low. "}
	store := &fakeStore{}
	source := fakeReports{
		{ID: "r2", Summary: "HDL is low", RiskLevel: reports.RiskMedium, Date: time.Now(),
			Parameters: []reports.HealthParameter{{Name: "HDL", Value: &hdl, Unit: "mg/dL", Status: reports.StatusLow}}},
		{ID: "r1", Summary: "older report", RiskLevel: reports.RiskLow},
	}
	svc := NewService(client, "chat-model", store, source)

	reply, err := svc.Send(context.Background(), "s1", "key", "What does my HDL mean?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Role != llm.RoleAssistant || reply.Content != "Your HDL is a bit low." {
		t.Fatalf("unexpected reply %+v", reply)
	}
	system := client.last.Messages[0]
	if system.Role != llm.RoleSystem || !strings.Contains(system.Content, "HDL is low") || strings.Contains(system.Content, "older report") {
		t.Fatalf("unexpected system prompt %q", system.Content)
	}
	if client.last.Model != "chat-model" {
		t.Fatalf("unexpected model %q", client.last.Model)
	}

	history, _ := svc.History(context.Background(), "s1")
	if len(history) != 2 || history[0].Role != llm.RoleUser || history[1].Role != llm.RoleAssistant {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestSend_IncludesPriorTurns(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	svc := NewService(client, "", &fakeStore{}, fakeReports{})

	_, _ = svc.Send(context.Background(), "s1", "key", "first")
	_, _ = svc.Send(context.Background(), "s1", "key", "second")

	msgs := client.last.Messages
	if len(msgs) != 4 || msgs[1].Content != "first" || msgs[2].Content != "ok" || msgs[3].Content != "second" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestSend_FailureStoresNothing(t *testing.T) {
	client := &fakeLLM{err: &llm.ExternalServiceError{StatusCode: 500}}
	store := &fakeStore{}
	svc := NewService(client, "", store, fakeReports{})

	if _, err := svc.Send(context.Background(), "s1", "key", "hello"); err == nil {
		t.Fatal("expected error")
	}
	history, _ := svc.History(context.Background(), "s1")
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestSend_Validation(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	svc := NewService(client, "", &fakeStore{}, fakeReports{})

	if _, err := svc.Send(context.Background(), "s1", "key", "  "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := svc.Send(context.Background(), "s1", "", "hi"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := svc.Send(context.Background(), "s1", "key", strings.Repeat("x", maxMessageLen+1)); !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("expected ErrMessageTooLong, got %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("expected no llm calls, got %d", client.calls)
	}
}
