package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"firmsite/internal/adminauth"
	"firmsite/internal/session"
	"firmsite/pkg/logger"
)

// AuthService keeps one login flow per browser session. Flows left idle for
// longer than the session TTL are closed by a sweep loop.
type AuthService struct {
	backend  adminauth.Backend
	sessions session.Store
	cooldown int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	flows map[string]*flowEntry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type flowEntry struct {
	flow     *adminauth.Flow
	lastSeen time.Time
}

func NewAuthService(ctx context.Context, backend adminauth.Backend, sessions session.Store, cooldownSeconds int, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	serviceCtx, cancel := context.WithCancel(ctx)

	s := &AuthService{
		backend:  backend,
		sessions: sessions,
		cooldown: cooldownSeconds,
		ttl:      ttl,
		now:      time.Now,
		flows:    make(map[string]*flowEntry),
		ctx:      serviceCtx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.sweepLoop()

	return s
}

// Sessions exposes the store the flows write their tokens to.
func (s *AuthService) Sessions() session.Store {
	return s.sessions
}

func (s *AuthService) flow(sessionID string) *adminauth.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flows[sessionID]
	if !ok {
		flow := adminauth.NewFlow(s.backend, session.NewTokens(s.sessions, sessionID), adminauth.Options{
			CooldownSeconds: s.cooldown,
			Navigate: func() {
				logger.Info("Admin signed in", map[string]interface{}{"session_id": sessionID})
			},
		})
		entry = &flowEntry{flow: flow}
		s.flows[sessionID] = entry
	}
	entry.lastSeen = s.now()
	return entry.flow
}

// State returns the login state for a session, starting a flow when none exists.
func (s *AuthService) State(sessionID string) adminauth.State {
	return s.flow(sessionID).State()
}

func (s *AuthService) SubmitEmail(ctx context.Context, sessionID, email string) error {
	return s.flow(sessionID).SubmitEmail(ctx, email)
}

func (s *AuthService) Resend(ctx context.Context, sessionID string) error {
	return s.flow(sessionID).Resend(ctx)
}

func (s *AuthService) SubmitOTP(ctx context.Context, sessionID, otp string) error {
	return s.flow(sessionID).SubmitOTP(ctx, otp)
}

// SubmitPassword finishes the login. On success the admin email is recorded
// on the session and the flow is released.
func (s *AuthService) SubmitPassword(ctx context.Context, sessionID, password string) error {
	flow := s.flow(sessionID)
	if err := flow.SubmitPassword(ctx, password); err != nil {
		return err
	}

	if err := session.NewTokens(s.sessions, sessionID).SetEmail(ctx, flow.State().Email); err != nil {
		logger.Warn("Failed to record admin email on session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	s.Reset(sessionID)
	return nil
}

// Reset drops the login flow for a session so the next visit starts at the
// email step.
func (s *AuthService) Reset(sessionID string) {
	s.mu.Lock()
	entry, ok := s.flows[sessionID]
	delete(s.flows, sessionID)
	s.mu.Unlock()

	if ok {
		entry.flow.Close()
	}
}

// Logout drops the flow and the session itself.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	s.Reset(sessionID)
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	return nil
}

// ActiveFlows reports how many login flows are in memory.
func (s *AuthService) ActiveFlows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

func (s *AuthService) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *AuthService) sweep() {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var stale []*adminauth.Flow
	for id, entry := range s.flows {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry.flow)
			delete(s.flows, id)
		}
	}
	s.mu.Unlock()

	for _, flow := range stale {
		flow.Close()
	}
}

// Shutdown stops the sweep loop and closes every open flow.
func (s *AuthService) Shutdown() error {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	flows := s.flows
	s.flows = make(map[string]*flowEntry)
	s.mu.Unlock()

	for _, entry := range flows {
		entry.flow.Close()
	}
	return nil
}
