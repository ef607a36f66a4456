package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medreport-backend/internal/reports"
	"medreport-backend/internal/shared/telemetry"
)

// Store persists notifications per session. AddNotification assigns the ID.
type Store interface {
	AddNotification(ctx context.Context, sessionID string, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, sessionID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, sessionID string, id int64) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ReportCompleted records a completion notice and, for high-risk reports,
// a health alert naming the out-of-range parameters.
func (s *Service) ReportCompleted(ctx context.Context, sessionID string, report reports.MedicalReport) {
	for _, n := range s.notificationsFor(report) {
		if _, err := s.store.AddNotification(ctx, sessionID, n); err != nil {
			telemetry.Error("notification.add_failed", map[string]any{
				"session_id": sessionID,
				"report_id":  report.ID,
				"type":       n.Type,
				"error":      err.Error(),
			})
		}
	}
}

func (s *Service) notificationsFor(report reports.MedicalReport) []Notification {
	now := s.now().UTC()
	out := []Notification{{
		Type:      TypeReportComplete,
		Title:     "Report Analysis Complete",
		Message:   fmt.Sprintf("Your report has been analyzed. Risk level: %s.", report.RiskLevel),
		Icon:      "file-check",
		ReportID:  report.ID,
		Timestamp: now,
	}}
	if report.RiskLevel != reports.RiskHigh {
		return out
	}

	var flagged []string
	for _, p := range report.Parameters {
		if p.Status == reports.StatusHigh || p.Status == reports.StatusLow {
			flagged = append(flagged, p.Name)
		}
	}
	msg := "Your latest report was rated high risk. Consider discussing it with your doctor."
	if len(flagged) > 0 {
		msg = fmt.Sprintf("Out-of-range values: %s. Consider discussing them with your doctor.", strings.Join(flagged, ", "))
	}
	return append(out, Notification{
		Type:      TypeHealthAlert,
		Title:     "Health Alert",
		Message:   msg,
		Icon:      "alert-triangle",
		ReportID:  report.ID,
		Timestamp: now,
	})
}

func (s *Service) Inbox(ctx context.Context, sessionID string) (Inbox, error) {
	items, err := s.store.ListNotifications(ctx, sessionID)
	if err != nil {
		return Inbox{}, err
	}
	if items == nil {
		items = []Notification{}
	}
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return Inbox{Notifications: items, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, sessionID string, id int64) error {
	return s.store.MarkNotificationRead(ctx, sessionID, id)
}

var _ reports.CompletionHook = (*Service)(nil)
