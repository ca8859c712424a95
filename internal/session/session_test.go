package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T, ttl time.Duration) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(context.Background(), ttl)
	t.Cleanup(func() { _ = store.Shutdown() })
	return store
}

func TestTokensWriteThroughToSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour)

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Authenticated() {
		t.Fatalf("new session must not be authenticated")
	}

	tokens := NewTokens(store, sess.ID)
	if err := tokens.SetEmail(ctx, "admin@example.com"); err != nil {
		t.Fatalf("SetEmail: %v", err)
	}
	if err := tokens.SetSessionToken(ctx, "sess-1"); err != nil {
		t.Fatalf("SetSessionToken: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SessionToken != "sess-1" || got.Email != "admin@example.com" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := tokens.SetAuthToken(ctx, "admin-1"); err != nil {
		t.Fatalf("SetAuthToken: %v", err)
	}
	got, _ = store.Get(ctx, sess.ID)
	if !got.Authenticated() || got.AuthToken != "admin-1" {
		t.Fatalf("expected authenticated session, got %+v", got)
	}
	if got.SessionToken != "" {
		t.Fatalf("expected session token cleared after login, got %q", got.SessionToken)
	}
}

func TestTokensOnMissingSession(t *testing.T) {
	store := newTestStore(t, time.Hour)
	err := NewTokens(store, "missing").SetAuthToken(context.Background(), "x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess, _ := store.Create(ctx)
	if _, err := store.Get(ctx, sess.ID); err != nil {
		t.Fatalf("expected live session, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	expired, _ := store.Create(ctx)
	now = now.Add(30 * time.Second)
	live, _ := store.Create(ctx)
	now = now.Add(45 * time.Second)

	store.cleanup()

	store.mu.RLock()
	_, hasExpired := store.sessions[expired.ID]
	_, hasLive := store.sessions[live.ID]
	store.mu.RUnlock()

	if hasExpired || !hasLive {
		t.Fatalf("expected only the expired session removed, expired=%v live=%v", hasExpired, hasLive)
	}
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Hour)
	sess, _ := store.Create(ctx)

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Save(ctx, sess); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected save after delete to fail, got %v", err)
	}
}
