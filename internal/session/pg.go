package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medreport-backend/internal/chat"
	"medreport-backend/internal/notifications"
	"medreport-backend/internal/reports"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s *PGStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

const touchSessionQuery = `
INSERT INTO sessions (id, created_at, last_seen_at)
VALUES ($1, $2, $2)
ON CONFLICT (id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at`

// withSession runs fn in a transaction after upserting the session row.
func (s *PGStore) withSession(ctx context.Context, sessionID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, touchSessionQuery, sessionID, s.now()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AddReport inserts a report for the session.
func (s *PGStore) AddReport(ctx context.Context, sessionID string, report reports.MedicalReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.withSession(ctx, sessionID, func(tx *sql.Tx) error {
		const query = `
INSERT INTO session_reports (id, session_id, created_at, risk_level, report)
VALUES ($1, $2, $3, $4, $5)`
		_, err := tx.ExecContext(ctx, query, report.ID, sessionID, report.Date.UTC(), report.RiskLevel, payload)
		return err
	})
}

// ListReports returns the session's reports newest first.
func (s *PGStore) ListReports(ctx context.Context, sessionID string) ([]reports.MedicalReport, error) {
	const query = `
SELECT report
FROM session_reports
WHERE session_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []reports.MedicalReport{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var report reports.MedicalReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// GetReport returns one report owned by the session.
func (s *PGStore) GetReport(ctx context.Context, sessionID, reportID string) (reports.MedicalReport, error) {
	const query = `
SELECT report
FROM session_reports
WHERE session_id = $1 AND id = $2
LIMIT 1`
	var payload []byte
	err := s.DB.QueryRowContext(ctx, query, sessionID, reportID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return reports.MedicalReport{}, reports.ErrNotFound
	}
	if err != nil {
		return reports.MedicalReport{}, err
	}
	var report reports.MedicalReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return reports.MedicalReport{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

// AddNotification inserts a notification and returns it with its assigned ID.
func (s *PGStore) AddNotification(ctx context.Context, sessionID string, n notifications.Notification) (notifications.Notification, error) {
	err := s.withSession(ctx, sessionID, func(tx *sql.Tx) error {
		const query = `
INSERT INTO session_notifications (session_id, type, title, message, icon, report_id, read, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
		return tx.QueryRowContext(ctx, query,
			sessionID,
			n.Type,
			n.Title,
			n.Message,
			n.Icon,
			nullString(n.ReportID),
			n.Read,
			n.Timestamp.UTC(),
		).Scan(&n.ID)
	})
	if err != nil {
		return notifications.Notification{}, err
	}
	return n, nil
}

// ListNotifications returns the session's notifications newest first.
func (s *PGStore) ListNotifications(ctx context.Context, sessionID string) ([]notifications.Notification, error) {
	const query = `
SELECT id, type, title, message, icon, report_id, read, created_at
FROM session_notifications
WHERE session_id = $1
ORDER BY id DESC`
	rows, err := s.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []notifications.Notification{}
	for rows.Next() {
		var n notifications.Notification
		var reportID sql.NullString
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Icon, &reportID, &n.Read, &n.Timestamp); err != nil {
			return nil, err
		}
		n.ReportID = reportID.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one notification as read.
func (s *PGStore) MarkNotificationRead(ctx context.Context, sessionID string, id int64) error {
	const query = `
UPDATE session_notifications
SET read = TRUE
WHERE session_id = $1 AND id = $2`
	res, err := s.DB.ExecContext(ctx, query, sessionID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

// AppendChatMessages stores chat turns in order.
func (s *PGStore) AppendChatMessages(ctx context.Context, sessionID string, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.withSession(ctx, sessionID, func(tx *sql.Tx) error {
		const query = `
INSERT INTO session_chat_messages (session_id, role, content, created_at)
VALUES ($1, $2, $3, $4)`
		for _, m := range msgs {
			if _, err := tx.ExecContext(ctx, query, sessionID, m.Role, m.Content, m.Timestamp.UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListChatMessages returns the session's chat history oldest first.
func (s *PGStore) ListChatMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	const query = `
SELECT role, content, created_at
FROM session_chat_messages
WHERE session_id = $1
ORDER BY id ASC`
	rows, err := s.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []chat.Message{}
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Reset deletes the session row; child rows cascade.
func (s *PGStore) Reset(ctx context.Context, sessionID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

// PurgeExpired deletes sessions not written since cutoff.
func (s *PGStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

var _ Store = (*PGStore)(nil)
