package notifications

import (
	"errors"
	"time"
)

const (
	TypeReportComplete = "report_complete"
	TypeHealthAlert    = "health_alert"
	TypeReminder       = "reminder"
	TypeSystem         = "system"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	ReportID  string    `json:"report_id,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Inbox is a session's notifications, newest first, with the unread count.
type Inbox struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
