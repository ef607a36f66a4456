package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"medreport-backend/internal/chat"
	"medreport-backend/internal/notifications"
	"medreport-backend/internal/reports"
)

func newClockedStore(start time.Time) (*MemoryStore, *time.Time) {
	now := start
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestMemoryStore_ReportsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.AddReport(ctx, "s1", reports.MedicalReport{ID: "r1"}); err != nil {
		t.Fatalf("AddReport: %v", err)
	}
	if err := s.AddReport(ctx, "s1", reports.MedicalReport{ID: "r2"}); err != nil {
		t.Fatalf("AddReport: %v", err)
	}

	got, err := s.ListReports(ctx, "s1")
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r2" || got[1].ID != "r1" {
		t.Fatalf("expected [r2 r1], got %+v", got)
	}
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.AddReport(ctx, "s1", reports.MedicalReport{ID: "r1"})

	if _, err := s.GetReport(ctx, "s2", "r1"); !errors.Is(err, reports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across sessions, got %v", err)
	}
	got, err := s.ListReports(ctx, "s2")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %+v err=%v", got, err)
	}
	if _, err := s.GetReport(ctx, "s1", "r1"); err != nil {
		t.Fatalf("GetReport own session: %v", err)
	}
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.AddReport(ctx, "s1", reports.MedicalReport{ID: "r1"})

	got, _ := s.ListReports(ctx, "s1")
	got[0].ID = "mutated"

	again, _ := s.ListReports(ctx, "s1")
	if again[0].ID != "r1" {
		t.Fatalf("store was mutated through list result: %+v", again)
	}
}

func TestMemoryStore_Notifications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.AddNotification(ctx, "s1", notifications.Notification{Type: notifications.TypeReportComplete})
	if err != nil {
		t.Fatalf("AddNotification: %v", err)
	}
	second, _ := s.AddNotification(ctx, "s1", notifications.Notification{Type: notifications.TypeHealthAlert})
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("unexpected ids %d %d", first.ID, second.ID)
	}

	if err := s.MarkNotificationRead(ctx, "s1", first.ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if err := s.MarkNotificationRead(ctx, "s2", first.ID); !errors.Is(err, notifications.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other session, got %v", err)
	}
	if err := s.MarkNotificationRead(ctx, "s1", 99); !errors.Is(err, notifications.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	list, _ := s.ListNotifications(ctx, "s1")
	if len(list) != 2 || list[0].ID != 2 || list[0].Read || !list[1].Read {
		t.Fatalf("unexpected notifications %+v", list)
	}
}

func TestMemoryStore_ChatOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.AppendChatMessages(ctx, "s1",
		chat.Message{Role: "user", Content: "hi"},
		chat.Message{Role: "assistant", Content: "hello"},
	)
	_ = s.AppendChatMessages(ctx, "s1", chat.Message{Role: "user", Content: "again"})

	got, err := s.ListChatMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	if len(got) != 3 || got[0].Content != "hi" || got[2].Content != "again" {
		t.Fatalf("unexpected history %+v", got)
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.AddReport(ctx, "s1", reports.MedicalReport{ID: "r1"})
	_ = s.AddReport(ctx, "s2", reports.MedicalReport{ID: "r2"})

	if err := s.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got, _ := s.ListReports(ctx, "s1"); len(got) != 0 {
		t.Fatalf("expected s1 empty, got %+v", got)
	}
	if got, _ := s.ListReports(ctx, "s2"); len(got) != 1 {
		t.Fatalf("expected s2 untouched, got %+v", got)
	}
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s, now := newClockedStore(start)

	_ = s.AddReport(ctx, "old", reports.MedicalReport{ID: "r1"})
	*now = start.Add(2 * time.Hour)
	_ = s.AddReport(ctx, "fresh", reports.MedicalReport{ID: "r2"})

	purged, err := s.PurgeExpired(ctx, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if got, _ := s.ListReports(ctx, "old"); len(got) != 0 {
		t.Fatalf("expected old session gone, got %+v", got)
	}
	if got, _ := s.ListReports(ctx, "fresh"); len(got) != 1 {
		t.Fatalf("expected fresh session kept, got %+v", got)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	if err := s.AddReport(ctx, "s1", reports.MedicalReport{ID: "r1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
