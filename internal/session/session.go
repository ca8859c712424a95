// Package session keeps admin browser sessions and the tokens the login flow
// hands out.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is one browser's admin state. SessionToken is the short lived
// token from OTP verification; AuthToken is the admin token used for
// authenticated backend calls.
type Session struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	SessionToken string    `json:"sessionToken,omitempty"`
	AuthToken    string    `json:"authToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.AuthToken != ""
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func newSession(ttl time.Duration, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Tokens binds the adminauth token store contract to one session.
type Tokens struct {
	store Store
	id    string
}

func NewTokens(store Store, id string) *Tokens {
	return &Tokens{store: store, id: id}
}

func (t *Tokens) SetSessionToken(ctx context.Context, token string) error {
	return t.update(ctx, func(s *Session) {
		s.SessionToken = token
	})
}

func (t *Tokens) SetAuthToken(ctx context.Context, token string) error {
	return t.update(ctx, func(s *Session) {
		s.AuthToken = token
		s.SessionToken = ""
	})
}

// SetEmail records which admin is signing in on this session.
func (t *Tokens) SetEmail(ctx context.Context, email string) error {
	return t.update(ctx, func(s *Session) {
		s.Email = email
	})
}

func (t *Tokens) update(ctx context.Context, fn func(*Session)) error {
	s, err := t.store.Get(ctx, t.id)
	if err != nil {
		return err
	}
	fn(s)
	return t.store.Save(ctx, s)
}
