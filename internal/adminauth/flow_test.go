package adminauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

// manualClock hands out tickers that only fire when the test says so.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
	ticks   chan int
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan int, 128)}
}

func (c *manualClock) newTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) onTick(remaining int) {
	c.ticks <- remaining
}

// advance fires the newest ticker n times and waits for each tick to land.
func (c *manualClock) advance(t *testing.T, n int) {
	t.Helper()
	c.mu.Lock()
	ticker := c.tickers[len(c.tickers)-1]
	c.mu.Unlock()

	for i := 0; i < n; i++ {
		ticker.ch <- time.Now()
		<-c.ticks
	}
}

type rejection struct {
	message string
}

func (r *rejection) Error() string       { return "rejected: " + r.message }
func (r *rejection) UserMessage() string { return r.message }

type stubBackend struct {
	mu          sync.Mutex
	requestOTPs int
	verifies    int
	logins      int

	requestErr error
	verifyErr  error
	loginErr   error

	gotEmail  string
	gotOTP    string
	gotBearer string
	gotPass   string
}

func (b *stubBackend) RequestOTP(_ context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requestOTPs++
	b.gotEmail = email
	return b.requestErr
}

func (b *stubBackend) VerifyOTP(_ context.Context, email, otp string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifies++
	b.gotOTP = otp
	if b.verifyErr != nil {
		return "", b.verifyErr
	}
	return "abc", nil
}

func (b *stubBackend) Login(_ context.Context, email, password, sessionToken string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logins++
	b.gotBearer = sessionToken
	b.gotPass = password
	if b.loginErr != nil {
		return "", b.loginErr
	}
	return "xyz", nil
}

func (b *stubBackend) counts() (int, int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requestOTPs, b.verifies, b.logins
}

type memoryTokens struct {
	session string
	auth    string
}

func (m *memoryTokens) SetSessionToken(_ context.Context, token string) error {
	m.session = token
	return nil
}

func (m *memoryTokens) SetAuthToken(_ context.Context, token string) error {
	m.auth = token
	return nil
}

func newTestFlow(backend Backend, tokens TokenStore, clock *manualClock, navigate func()) *Flow {
	return NewFlow(backend, tokens, Options{
		NewTicker: clock.newTicker,
		OnTick:    clock.onTick,
		Navigate:  navigate,
	})
}

func TestFlowHappyPath(t *testing.T) {
	ctx := context.Background()
	backend := &stubBackend{}
	tokens := &memoryTokens{}
	clock := newManualClock()
	navigations := 0

	flow := newTestFlow(backend, tokens, clock, func() { navigations++ })
	defer flow.Close()

	if err := flow.SubmitEmail(ctx, " ok@example.com "); err != nil {
		t.Fatalf("submit email: %v", err)
	}
	state := flow.State()
	if state.Step != StepOTP {
		t.Fatalf("expected otp step, got %s", state.Step)
	}
	if state.Cooldown != 60 {
		t.Fatalf("expected cooldown of 60, got %d", state.Cooldown)
	}
	if state.CanResend {
		t.Fatalf("resend must be disabled while cooling down")
	}
	if backend.gotEmail != "ok@example.com" {
		t.Fatalf("expected trimmed email, got %q", backend.gotEmail)
	}

	if err := flow.SubmitOTP(ctx, "000000"); err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	if flow.Step() != StepPassword {
		t.Fatalf("expected password step, got %s", flow.Step())
	}
	if tokens.session != "abc" {
		t.Fatalf("expected session token to be stored, got %q", tokens.session)
	}
	if flow.State().Cooldown != 0 {
		t.Fatalf("expected cooldown to stop after otp verification")
	}

	if err := flow.SubmitPassword(ctx, "secret"); err != nil {
		t.Fatalf("submit password: %v", err)
	}
	if flow.Step() != StepAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.Step())
	}
	if tokens.auth != "xyz" {
		t.Fatalf("expected auth token to be stored, got %q", tokens.auth)
	}
	if backend.gotBearer != "abc" || backend.gotPass != "secret" {
		t.Fatalf("login called with bearer %q password %q", backend.gotBearer, backend.gotPass)
	}
	if navigations != 1 {
		t.Fatalf("expected exactly one navigation, got %d", navigations)
	}

	if err := flow.SubmitPassword(ctx, "secret"); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("expected ErrWrongStep after authentication, got %v", err)
	}
	if navigations != 1 {
		t.Fatalf("navigation repeated: %d", navigations)
	}
}

func TestFlowResendGating(t *testing.T) {
	ctx := context.Background()
	backend := &stubBackend{}
	clock := newManualClock()

	flow := newTestFlow(backend, nil, clock, nil)
	defer flow.Close()

	if err := flow.SubmitEmail(ctx, "ok@example.com"); err != nil {
		t.Fatalf("submit email: %v", err)
	}

	clock.advance(t, 59)
	if err := flow.Resend(ctx); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive with 1s left, got %v", err)
	}
	if requests, _, _ := backend.counts(); requests != 1 {
		t.Fatalf("resend during cooldown must not call the backend, got %d requests", requests)
	}

	clock.advance(t, 1)
	if !flow.State().CanResend {
		t.Fatalf("expected resend to be enabled at zero")
	}
	if err := flow.Resend(ctx); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if requests, _, _ := backend.counts(); requests != 2 {
		t.Fatalf("expected exactly one resend call, got %d requests", requests)
	}
	if got := flow.State().Cooldown; got != 60 {
		t.Fatalf("expected cooldown reset to 60, got %d", got)
	}
}

func TestFlowErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("email rejected keeps step", func(t *testing.T) {
		backend := &stubBackend{requestErr: &rejection{message: "unknown admin"}}
		flow := newTestFlow(backend, nil, newManualClock(), nil)
		defer flow.Close()

		err := flow.SubmitEmail(ctx, "nobody@example.com")
		var stepErr *StepError
		if !errors.As(err, &stepErr) || stepErr.Message != MsgEmailNotVerified {
			t.Fatalf("expected %q, got %v", MsgEmailNotVerified, err)
		}
		if state := flow.State(); state.Step != StepEmail || state.Error != MsgEmailNotVerified {
			t.Fatalf("unexpected state %+v", state)
		}
	})

	t.Run("otp uses server message", func(t *testing.T) {
		backend := &stubBackend{verifyErr: &rejection{message: "OTP expired"}}
		flow := newTestFlow(backend, nil, newManualClock(), nil)
		defer flow.Close()

		if err := flow.SubmitEmail(ctx, "ok@example.com"); err != nil {
			t.Fatalf("submit email: %v", err)
		}
		flow.SubmitOTP(ctx, "123456")
		if state := flow.State(); state.Step != StepOTP || state.Error != "OTP expired" {
			t.Fatalf("unexpected state %+v", state)
		}
	})

	t.Run("otp transport failure uses fallback", func(t *testing.T) {
		backend := &stubBackend{verifyErr: errors.New("connection refused")}
		flow := newTestFlow(backend, nil, newManualClock(), nil)
		defer flow.Close()

		if err := flow.SubmitEmail(ctx, "ok@example.com"); err != nil {
			t.Fatalf("submit email: %v", err)
		}
		flow.SubmitOTP(ctx, "123456")
		if state := flow.State(); state.Error != MsgInvalidOTP {
			t.Fatalf("expected %q, got %+v", MsgInvalidOTP, state)
		}
	})

	t.Run("password rejected stays on password step", func(t *testing.T) {
		backend := &stubBackend{loginErr: errors.New("boom")}
		navigated := false
		flow := newTestFlow(backend, nil, newManualClock(), func() { navigated = true })
		defer flow.Close()

		flow.SubmitEmail(ctx, "ok@example.com")
		flow.SubmitOTP(ctx, "000000")
		flow.SubmitPassword(ctx, "wrong")

		if state := flow.State(); state.Step != StepPassword || state.Error != MsgInvalidCredentials {
			t.Fatalf("unexpected state %+v", state)
		}
		if navigated {
			t.Fatalf("must not navigate on failed login")
		}
	})

	t.Run("resend failure", func(t *testing.T) {
		backend := &stubBackend{}
		clock := newManualClock()
		flow := newTestFlow(backend, nil, clock, nil)
		defer flow.Close()

		flow.SubmitEmail(ctx, "ok@example.com")
		clock.advance(t, 60)

		backend.mu.Lock()
		backend.requestErr = errors.New("boom")
		backend.mu.Unlock()

		err := flow.Resend(ctx)
		var stepErr *StepError
		if !errors.As(err, &stepErr) || stepErr.Message != MsgResendFailed {
			t.Fatalf("expected %q, got %v", MsgResendFailed, err)
		}
	})

	t.Run("steps cannot be skipped", func(t *testing.T) {
		flow := newTestFlow(&stubBackend{}, nil, newManualClock(), nil)
		defer flow.Close()

		if err := flow.SubmitOTP(ctx, "000000"); !errors.Is(err, ErrWrongStep) {
			t.Fatalf("expected ErrWrongStep, got %v", err)
		}
		if err := flow.SubmitPassword(ctx, "secret"); !errors.Is(err, ErrWrongStep) {
			t.Fatalf("expected ErrWrongStep, got %v", err)
		}
		if err := flow.Resend(ctx); !errors.Is(err, ErrWrongStep) {
			t.Fatalf("expected ErrWrongStep, got %v", err)
		}
	})
}

type blockingBackend struct {
	stubBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) RequestOTP(ctx context.Context, email string) error {
	b.entered <- struct{}{}
	<-b.release
	return b.stubBackend.RequestOTP(ctx, email)
}

func TestFlowRejectsConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	backend := &blockingBackend{entered: make(chan struct{}), release: make(chan struct{})}
	flow := newTestFlow(backend, nil, newManualClock(), nil)
	defer flow.Close()

	done := make(chan error, 1)
	go func() { done <- flow.SubmitEmail(ctx, "ok@example.com") }()
	<-backend.entered

	if !flow.State().Loading {
		t.Fatalf("expected loading while the request is in flight")
	}
	if err := flow.SubmitEmail(ctx, "ok@example.com"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if requests, _, _ := backend.counts(); requests != 1 {
		t.Fatalf("expected one backend call, got %d", requests)
	}
}

func TestCooldownStopReleasesGoroutine(t *testing.T) {
	cooldown := NewCooldown(time.Millisecond, nil, nil)
	cooldown.Start(60)
	if cooldown.Ready() {
		t.Fatalf("expected cooldown to be running")
	}
	cooldown.Stop()
	if !cooldown.Ready() {
		t.Fatalf("expected stopped cooldown to be ready")
	}
	goleak.VerifyNone(t)
}

func TestCooldownCountsDownWithRealTicker(t *testing.T) {
	ticks := make(chan int, 4)
	cooldown := NewCooldown(time.Millisecond, nil, func(remaining int) { ticks <- remaining })
	defer cooldown.Stop()

	cooldown.Start(3)
	for want := 2; want >= 0; want-- {
		select {
		case got := <-ticks:
			if got != want {
				t.Fatalf("expected %d remaining, got %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("cooldown did not tick")
		}
	}
	if !cooldown.Ready() {
		t.Fatalf("expected cooldown to finish")
	}
}
