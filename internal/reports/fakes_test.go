package reports

import (
	"context"
	"sync"

	"medreport-backend/internal/llm"
)

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	requests []llm.Request
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// memReports mimics the session store's newest-first report list.
type memReports struct {
	mu      sync.Mutex
	reports map[string][]MedicalReport
	adds    int
	err     error
}

func newMemReports() *memReports {
	return &memReports{reports: map[string][]MedicalReport{}}
}

func (m *memReports) AddReport(ctx context.Context, sessionID string, report MedicalReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds++
	if m.err != nil {
		return m.err
	}
	m.reports[sessionID] = append([]MedicalReport{report}, m.reports[sessionID]...)
	return nil
}

func (m *memReports) ListReports(ctx context.Context, sessionID string) ([]MedicalReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MedicalReport(nil), m.reports[sessionID]...), nil
}

func (m *memReports) GetReport(ctx context.Context, sessionID, reportID string) (MedicalReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports[sessionID] {
		if r.ID == reportID {
			return r, nil
		}
	}
	return MedicalReport{}, ErrNotFound
}

type recordingHook struct {
	mu      sync.Mutex
	reports []MedicalReport
}

func (h *recordingHook) ReportCompleted(ctx context.Context, sessionID string, report MedicalReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, report)
}

func sequentialIDs(ids ...string) func() string {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[next%len(ids)]
		next++
		return id
	}
}
