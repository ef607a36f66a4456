package session

import (
	"context"
	"sync"
	"time"

	"medreport-backend/internal/chat"
	"medreport-backend/internal/notifications"
	"medreport-backend/internal/reports"
)

type state struct {
	reports            []reports.MedicalReport
	notifications      []notifications.Notification
	nextNotificationID int64
	chat               []chat.Message
	lastSeen           time.Time
}

// MemoryStore keeps session state in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*state
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*state), now: time.Now}
}

// touch returns the session's state, creating it. Callers hold the write lock.
func (s *MemoryStore) touch(sessionID string) *state {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	st.lastSeen = s.now()
	return st
}

func (s *MemoryStore) AddReport(ctx context.Context, sessionID string, report reports.MedicalReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.touch(sessionID)
	next := make([]reports.MedicalReport, 0, len(st.reports)+1)
	next = append(next, report)
	st.reports = append(next, st.reports...)
	return nil
}

func (s *MemoryStore) ListReports(ctx context.Context, sessionID string) ([]reports.MedicalReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return []reports.MedicalReport{}, nil
	}
	return append([]reports.MedicalReport{}, st.reports...), nil
}

func (s *MemoryStore) GetReport(ctx context.Context, sessionID, reportID string) (reports.MedicalReport, error) {
	if err := ctx.Err(); err != nil {
		return reports.MedicalReport{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sessions[sessionID]; ok {
		for _, r := range st.reports {
			if r.ID == reportID {
				return r, nil
			}
		}
	}
	return reports.MedicalReport{}, reports.ErrNotFound
}

func (s *MemoryStore) AddNotification(ctx context.Context, sessionID string, n notifications.Notification) (notifications.Notification, error) {
	if err := ctx.Err(); err != nil {
		return notifications.Notification{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.touch(sessionID)
	st.nextNotificationID++
	n.ID = st.nextNotificationID
	st.notifications = append([]notifications.Notification{n}, st.notifications...)
	return n, nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, sessionID string) ([]notifications.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return []notifications.Notification{}, nil
	}
	return append([]notifications.Notification{}, st.notifications...), nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, sessionID string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return notifications.ErrNotFound
	}
	for i := range st.notifications {
		if st.notifications[i].ID == id {
			st.notifications[i].Read = true
			st.lastSeen = s.now()
			return nil
		}
	}
	return notifications.ErrNotFound
}

func (s *MemoryStore) AppendChatMessages(ctx context.Context, sessionID string, msgs ...chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.touch(sessionID)
	st.chat = append(st.chat, msgs...)
	return nil
}

func (s *MemoryStore) ListChatMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return []chat.Message{}, nil
	}
	return append([]chat.Message{}, st.chat...), nil
}

func (s *MemoryStore) Reset(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, st := range s.sessions {
		if st.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

var _ Store = (*MemoryStore)(nil)
