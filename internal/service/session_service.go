package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/logger"
	"hunter_trials/internal/metrics"
	"hunter_trials/internal/progression"
)

var ErrSessionNotFound = errors.New("session not found")

const DefaultSessionTTL = 6 * time.Hour

// SessionService keeps the live sessions in memory
type SessionService struct {
	base     progression.Options
	ttl      time.Duration
	sessions map[string]*progression.Controller // sessionID -> controller
	onRemove []func(sessionID string)
	mu       sync.RWMutex
}

// NewSessionService creates a registry whose sessions share base. SessionID
// is set per session.
func NewSessionService(base progression.Options, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if base.Clock == nil {
		base.Clock = progression.SystemClock()
	}
	return &SessionService{
		base:     base,
		ttl:      ttl,
		sessions: make(map[string]*progression.Controller),
	}
}

// OnRemove registers fn to run after a session is removed or expires.
// Register hooks before serving requests.
func (s *SessionService) OnRemove(fn func(sessionID string)) {
	if fn != nil {
		s.onRemove = append(s.onRemove, fn)
	}
}

func (s *SessionService) closeSession(ctrl *progression.Controller) {
	ctrl.Close()
	for _, fn := range s.onRemove {
		fn(ctrl.SessionID())
	}
}

// Create starts a session and logs the team in
func (s *SessionService) Create(teamName string) (*progression.Controller, domain.Snapshot, error) {
	opts := s.base
	opts.SessionID = uuid.New().String()

	ctrl := progression.NewController(opts)
	snap, err := ctrl.Login(teamName)
	if err != nil {
		ctrl.Close()
		return nil, snap, err
	}

	s.mu.Lock()
	s.sessions[opts.SessionID] = ctrl
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	logger.Info("session started", "session_id", opts.SessionID, "team", snap.TeamName)
	return ctrl, snap, nil
}

// Get returns the controller of a live session
func (s *SessionService) Get(sessionID string) (*progression.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctrl, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

func (s *SessionService) Remove(sessionID string) {
	s.mu.Lock()
	ctrl, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		s.closeSession(ctrl)
		metrics.SessionsActive.Set(float64(n))
	}
}

// ExpireIdle drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionService) ExpireIdle() int {
	now := s.base.Clock.Now()

	s.mu.Lock()
	var expired []*progression.Controller
	for id, ctrl := range s.sessions {
		if now.Sub(ctrl.LastActivity()) > s.ttl {
			expired = append(expired, ctrl)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, ctrl := range expired {
		s.closeSession(ctrl)
		logger.Info("session expired", "session_id", ctrl.SessionID())
	}
	if len(expired) > 0 {
		metrics.SessionsActive.Set(float64(n))
	}
	return len(expired)
}

// StartCleanup expires idle sessions every interval until ctx is done
func (s *SessionService) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ExpireIdle()
			}
		}
	}()
}

// ActiveCount returns the number of live sessions
func (s *SessionService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
