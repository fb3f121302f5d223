package service

import (
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is a timed breathing or meditation guide started by a ritual.
type Session struct {
	ID        string            `json:"id"`
	Kind      domain.ActionKind `json:"kind"`
	RitualID  string            `json:"ritual_id"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
}

type runningSession struct {
	Session
	timer  *time.Timer
	cancel domain.CancelFunc
}

// SessionScheduler tracks running sessions and ends them when their duration
// elapses or when they are cancelled.
type SessionScheduler struct {
	mu       sync.Mutex
	sessions map[string]*runningSession
	now      Clock
	logger   *zap.Logger
}

func NewSessionScheduler(now Clock, logger *zap.Logger) *SessionScheduler {
	return &SessionScheduler{
		sessions: make(map[string]*runningSession),
		now:      now,
		logger:   logger,
	}
}

// Start registers a session that ends after d. cancel may be nil.
func (s *SessionScheduler) Start(kind domain.ActionKind, ritualID string, d time.Duration, cancel domain.CancelFunc) Session {
	rs := &runningSession{
		Session: Session{
			ID:        uuid.New().String(),
			Kind:      kind,
			RitualID:  ritualID,
			StartedAt: s.now(),
			Duration:  d,
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.sessions[rs.ID] = rs
	rs.timer = time.AfterFunc(d, func() { s.finish(rs.ID, "completed") })
	s.mu.Unlock()

	s.logger.Debug("session started",
		zap.String("session_id", rs.ID),
		zap.String("kind", string(kind)),
		zap.String("ritual_id", ritualID),
		zap.Duration("duration", d))
	return rs.Session
}

// Cancel ends a running session early. It reports false for unknown sessions.
func (s *SessionScheduler) Cancel(id string) bool {
	return s.finish(id, "cancelled")
}

// Active lists running sessions ordered by start time.
func (s *SessionScheduler) Active() []Session {
	s.mu.Lock()
	out := make([]Session, 0, len(s.sessions))
	for _, rs := range s.sessions {
		out = append(out, rs.Session)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Stop cancels every running session.
func (s *SessionScheduler) Stop() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.finish(id, "cancelled")
	}
}

func (s *SessionScheduler) finish(id, reason string) bool {
	s.mu.Lock()
	rs, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		rs.timer.Stop()
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	if rs.cancel != nil {
		rs.cancel()
	}
	s.logger.Debug("session ended",
		zap.String("session_id", id),
		zap.String("kind", string(rs.Kind)),
		zap.String("reason", reason))
	return true
}
