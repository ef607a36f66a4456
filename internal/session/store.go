package session

import (
	"context"
	"time"

	"medreport-backend/internal/chat"
	"medreport-backend/internal/notifications"
	"medreport-backend/internal/reports"
)

// Store holds all per-session application state. Reports and notifications
// list newest first; chat history lists oldest first.
type Store interface {
	AddReport(ctx context.Context, sessionID string, report reports.MedicalReport) error
	ListReports(ctx context.Context, sessionID string) ([]reports.MedicalReport, error)
	GetReport(ctx context.Context, sessionID, reportID string) (reports.MedicalReport, error)

	AddNotification(ctx context.Context, sessionID string, n notifications.Notification) (notifications.Notification, error)
	ListNotifications(ctx context.Context, sessionID string) ([]notifications.Notification, error)
	MarkNotificationRead(ctx context.Context, sessionID string, id int64) error

	AppendChatMessages(ctx context.Context, sessionID string, msgs ...chat.Message) error
	ListChatMessages(ctx context.Context, sessionID string) ([]chat.Message, error)

	// Reset drops everything held for the session.
	Reset(ctx context.Context, sessionID string) error
	// PurgeExpired drops sessions with no writes since cutoff and returns how many.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ reports.ReportAdder  = Store(nil)
	_ reports.ReportReader = Store(nil)
	_ notifications.Store  = Store(nil)
	_ chat.Store           = Store(nil)
	_ chat.ReportSource    = Store(nil)
)
