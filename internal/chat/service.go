package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medreport-backend/internal/llm"
	"medreport-backend/internal/reports"
	"medreport-backend/internal/shared/metrics"
)

const (
	maxMessageLen       = 4000
	defaultHistoryTurns = 10
)

var (
	ErrEmptyMessage   = errors.New("message must not be empty")
	ErrMessageTooLong = errors.New("message is too long")
	ErrMissingAPIKey  = errors.New("an LLM API key is required")
)

// Message is one stored chat turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists chat history per session, oldest first.
type Store interface {
	AppendChatMessages(ctx context.Context, sessionID string, msgs ...Message) error
	ListChatMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// ReportSource supplies the session's reports, newest first.
type ReportSource interface {
	ListReports(ctx context.Context, sessionID string) ([]reports.MedicalReport, error)
}

// Service answers health questions using the latest report as context.
type Service struct {
	llm          llm.Client
	model        string
	store        Store
	reports      ReportSource
	historyTurns int
	now          func() time.Time
}

func NewService(client llm.Client, model string, store Store, source ReportSource) *Service {
	return &Service{
		llm:          client,
		model:        model,
		store:        store,
		reports:      source,
		historyTurns: defaultHistoryTurns,
		now:          time.Now,
	}
}

// Send asks the model and stores both turns only when it answers.
func (s *Service) Send(ctx context.Context, sessionID, apiKey, message string) (Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Message{}, ErrEmptyMessage
	}
	if len(message) > maxMessageLen {
		return Message{}, ErrMessageTooLong
	}
	if strings.TrimSpace(apiKey) == "" {
		return Message{}, ErrMissingAPIKey
	}

	history, err := s.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return Message{}, fmt.Errorf("load chat history: %w", err)
	}
	list, err := s.reports.ListReports(ctx, sessionID)
	if err != nil {
		return Message{}, fmt.Errorf("load reports: %w", err)
	}
	var latest *reports.MedicalReport
	if len(list) > 0 {
		latest = &list[0]
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt(latest)}}
	if len(history) > s.historyTurns {
		history = history[len(history)-s.historyTurns:]
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	reply, err := s.llm.Complete(ctx, llm.Request{APIKey: apiKey, Model: s.model, Messages: messages})
	if err != nil {
		return Message{}, err
	}

	now := s.now().UTC()
	user := Message{Role: llm.RoleUser, Content: message, Timestamp: now}
	assistant := Message{Role: llm.RoleAssistant, Content: strings.TrimSpace(reply), Timestamp: now}
	if err := s.store.AppendChatMessages(ctx, sessionID, user, assistant); err != nil {
		return Message{}, fmt.Errorf("store chat messages: %w", err)
	}
	metrics.IncChatMessage()
	return assistant, nil
}

func (s *Service) History(ctx context.Context, sessionID string) ([]Message, error) {
	msgs, err := s.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

func systemPrompt(latest *reports.MedicalReport) string {
	var b strings.Builder
	b.WriteString("You are a friendly health assistant. Answer in plain language, keep answers short, ")
	b.WriteString("and remind the user to consult a doctor for diagnosis or treatment.")
	if latest == nil {
		b.WriteString("\nThe user has not uploaded any medical report yet.")
		return b.String()
	}
	fmt.Fprintf(&b, "\n\nThe user's latest report (%s) summary: %s\nOverall risk level: %s.",
		latest.Date.Format("2006-01-02"), latest.Summary, latest.RiskLevel)
	if len(latest.Parameters) > 0 {
		b.WriteString("\nParameters:")
		for _, p := range latest.Parameters {
			value := p.RawValue
			if p.Value != nil {
				value = fmt.Sprintf("%g", *p.Value)
			}
			fmt.Fprintf(&b, "\n- %s: %s %s (reference %s, %s)", p.Name, value, p.Unit, p.ReferenceRange, p.Status)
		}
	}
	return b.String()
}
