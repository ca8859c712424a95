// Package adminauth drives the three step admin login: the email is verified
// by sending an OTP, the OTP is exchanged for a short lived session token and
// the password login with that token yields the admin auth token.
package adminauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

type Step int

const (
	StepEmail Step = iota + 1
	StepOTP
	StepPassword
	StepAuthenticated
)

func (s Step) String() string {
	switch s {
	case StepEmail:
		return "awaiting_email"
	case StepOTP:
		return "awaiting_otp"
	case StepPassword:
		return "awaiting_password"
	case StepAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// DefaultCooldown is the wait between OTP requests.
const DefaultCooldown = 60

const (
	MsgEmailNotVerified   = "Email is not verified"
	MsgInvalidOTP         = "Invalid OTP"
	MsgResendFailed       = "Resend failed"
	MsgInvalidCredentials = "Invalid Credentials"
)

var (
	ErrBusy           = errors.New("a login request is already in progress")
	ErrWrongStep      = errors.New("action not allowed at the current login step")
	ErrCooldownActive = errors.New("otp resend is still cooling down")
)

// Backend is the admin auth API.
type Backend interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) (sessionToken string, err error)
	Login(ctx context.Context, email, password, sessionToken string) (token string, err error)
}

// TokenStore persists the tokens the flow obtains.
type TokenStore interface {
	SetSessionToken(ctx context.Context, token string) error
	SetAuthToken(ctx context.Context, token string) error
}

// MessageError is implemented by backend errors that carry a message meant for the user.
type MessageError interface {
	error
	UserMessage() string
}

// StepError is returned when a backend call for a step fails. Message is what
// the admin sees; transport failures and rejections read the same.
type StepError struct {
	Step    Step
	Message string
	Err     error
}

func (e *StepError) Error() string {
	return e.Step.String() + ": " + e.Message
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Options struct {
	// CooldownSeconds defaults to DefaultCooldown.
	CooldownSeconds int
	// TickInterval defaults to one second.
	TickInterval time.Duration
	NewTicker    func(time.Duration) Ticker
	OnTick       func(remaining int)
	// Navigate is called once when the password login succeeds.
	Navigate func()
}

// State is a snapshot of the flow for rendering.
type State struct {
	Step      Step   `json:"step"`
	Email     string `json:"email"`
	Error     string `json:"error,omitempty"`
	Loading   bool   `json:"loading"`
	Cooldown  int    `json:"cooldown"`
	CanResend bool   `json:"can_resend"`
}

type Flow struct {
	backend  Backend
	tokens   TokenStore
	navigate func()
	cooldown *Cooldown
	seconds  int

	mu           sync.Mutex
	step         Step
	email        string
	sessionToken string
	errMsg       string
	loading      bool
	navigated    bool
}

func NewFlow(backend Backend, tokens TokenStore, opts Options) *Flow {
	seconds := opts.CooldownSeconds
	if seconds <= 0 {
		seconds = DefaultCooldown
	}
	return &Flow{
		backend:  backend,
		tokens:   tokens,
		navigate: opts.Navigate,
		cooldown: NewCooldown(opts.TickInterval, opts.NewTicker, opts.OnTick),
		seconds:  seconds,
		step:     StepEmail,
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	remaining := f.cooldown.Remaining()
	return State{
		Step:      f.step,
		Email:     f.email,
		Error:     f.errMsg,
		Loading:   f.loading,
		Cooldown:  remaining,
		CanResend: f.step == StepOTP && remaining == 0 && !f.loading,
	}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// begin claims the busy flag for an action allowed in step.
func (f *Flow) begin(step Step) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loading {
		return ErrBusy
	}
	if f.step != step {
		return ErrWrongStep
	}
	f.loading = true
	return nil
}

func (f *Flow) finish(apply func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	apply()
}

func (f *Flow) fail(step Step, fallback string, err error, useServerMessage bool) error {
	message := fallback
	var msgErr MessageError
	if useServerMessage && errors.As(err, &msgErr) && strings.TrimSpace(msgErr.UserMessage()) != "" {
		message = msgErr.UserMessage()
	}
	f.finish(func() { f.errMsg = message })
	return &StepError{Step: step, Message: message, Err: err}
}

// SubmitEmail requests an OTP for email and moves to the OTP step.
func (f *Flow) SubmitEmail(ctx context.Context, email string) error {
	if err := f.begin(StepEmail); err != nil {
		return err
	}

	email = strings.TrimSpace(email)
	if err := f.backend.RequestOTP(ctx, email); err != nil {
		return f.fail(StepEmail, MsgEmailNotVerified, err, false)
	}

	f.cooldown.Start(f.seconds)
	f.finish(func() {
		f.email = email
		f.step = StepOTP
		f.errMsg = ""
	})
	return nil
}

// Resend requests a fresh OTP. It does nothing while the cooldown runs.
func (f *Flow) Resend(ctx context.Context) error {
	if err := f.begin(StepOTP); err != nil {
		return err
	}
	if !f.cooldown.Ready() {
		f.finish(func() {})
		return ErrCooldownActive
	}

	f.mu.Lock()
	email := f.email
	f.mu.Unlock()

	if err := f.backend.RequestOTP(ctx, email); err != nil {
		return f.fail(StepOTP, MsgResendFailed, err, false)
	}

	f.cooldown.Start(f.seconds)
	f.finish(func() { f.errMsg = "" })
	return nil
}

// SubmitOTP exchanges the OTP for a session token and moves to the password step.
func (f *Flow) SubmitOTP(ctx context.Context, otp string) error {
	if err := f.begin(StepOTP); err != nil {
		return err
	}

	f.mu.Lock()
	email := f.email
	f.mu.Unlock()

	sessionToken, err := f.backend.VerifyOTP(ctx, email, strings.TrimSpace(otp))
	if err != nil {
		return f.fail(StepOTP, MsgInvalidOTP, err, true)
	}
	if f.tokens != nil {
		if err := f.tokens.SetSessionToken(ctx, sessionToken); err != nil {
			return f.fail(StepOTP, MsgInvalidOTP, err, false)
		}
	}

	f.cooldown.Stop()
	f.finish(func() {
		f.sessionToken = sessionToken
		f.step = StepPassword
		f.errMsg = ""
	})
	return nil
}

// SubmitPassword logs in with the session token and finishes the flow.
func (f *Flow) SubmitPassword(ctx context.Context, password string) error {
	if err := f.begin(StepPassword); err != nil {
		return err
	}

	f.mu.Lock()
	email, sessionToken := f.email, f.sessionToken
	f.mu.Unlock()

	token, err := f.backend.Login(ctx, email, password, sessionToken)
	if err != nil {
		return f.fail(StepPassword, MsgInvalidCredentials, err, true)
	}
	if f.tokens != nil {
		if err := f.tokens.SetAuthToken(ctx, token); err != nil {
			return f.fail(StepPassword, MsgInvalidCredentials, err, false)
		}
	}

	var navigate bool
	f.finish(func() {
		f.step = StepAuthenticated
		f.errMsg = ""
		navigate = !f.navigated
		f.navigated = true
	})

	if navigate && f.navigate != nil {
		f.navigate()
	}
	return nil
}

// Close stops the cooldown. The flow must not be used afterwards.
func (f *Flow) Close() {
	f.cooldown.Stop()
}
