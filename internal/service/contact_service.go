package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"firmsite/internal/background"
	"firmsite/internal/cmsapi"
	"firmsite/internal/models"
	"firmsite/pkg/logger"
	"firmsite/pkg/validator"
)

type ContactService struct {
	backend   ContactBackend
	mailer    Mailer
	scheduler JobScheduler
	notifyTo  string
	siteName  string
}

func NewContactService(backend ContactBackend, mailer Mailer, scheduler JobScheduler, notifyTo, siteName string) *ContactService {
	return &ContactService{
		backend:   backend,
		mailer:    mailer,
		scheduler: scheduler,
		notifyTo:  strings.TrimSpace(notifyTo),
		siteName:  siteName,
	}
}

// Submit stores a public contact message and notifies staff. A failed
// notification is logged and does not fail the submission.
func (s *ContactService) Submit(ctx context.Context, form models.ContactForm) error {
	req := cmsapi.ContactRequest{
		Name:    validator.NormalizeSpaces(validator.SanitizeString(form.Name)),
		Email:   strings.TrimSpace(form.Email),
		Phone:   strings.TrimSpace(validator.SanitizeString(form.Phone)),
		Subject: validator.NormalizeSpaces(validator.SanitizeString(form.Subject)),
		Message: strings.TrimSpace(validator.SanitizeString(form.Message)),
	}

	if err := s.backend.SubmitContact(ctx, req); err != nil {
		return fmt.Errorf("submit contact: %w", err)
	}

	if s.mailer != nil && s.mailer.Enabled() && s.notifyTo != "" {
		s.notify(ctx, req)
	}
	return nil
}

// notify sends the staff email on the scheduler, or inline when no
// scheduler is available or its queue is full.
func (s *ContactService) notify(ctx context.Context, req cmsapi.ContactRequest) {
	subject := "New contact message"
	if req.Subject != "" {
		subject += ": " + req.Subject
	}
	body := s.notificationBody(req)
	send := func(ctx context.Context) error {
		return s.mailer.Send(ctx, s.notifyTo, subject, body)
	}

	if s.scheduler != nil {
		err := s.scheduler.Schedule(background.Job{
			Name:        "contact_notification",
			Run:         send,
			Timeout:     15 * time.Second,
			RetryPolicy: background.RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second},
		})
		if err == nil {
			return
		}
		logger.Warn("Sending contact notification inline", map[string]interface{}{"error": err.Error()})
	}

	if err := send(ctx); err != nil {
		logger.Error(err, "Failed to send contact notification", map[string]interface{}{"email": req.Email})
	}
}

func (s *ContactService) notificationBody(req cmsapi.ContactRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>New message from the %s contact form.</p><ul>", html.EscapeString(s.siteName))
	fmt.Fprintf(&b, "<li><strong>Name:</strong> %s</li>", html.EscapeString(req.Name))
	fmt.Fprintf(&b, "<li><strong>Email:</strong> %s</li>", html.EscapeString(req.Email))
	if req.Phone != "" {
		fmt.Fprintf(&b, "<li><strong>Phone:</strong> %s</li>", html.EscapeString(req.Phone))
	}
	b.WriteString("</ul><p>")
	b.WriteString(strings.ReplaceAll(html.EscapeString(req.Message), "\n", "<br>"))
	b.WriteString("</p>")
	return b.String()
}

func (s *ContactService) List(ctx context.Context, token string) ([]cmsapi.Contact, error) {
	return s.backend.ListContacts(ctx, token)
}

func (s *ContactService) Delete(ctx context.Context, token, id string) error {
	return s.backend.DeleteContact(ctx, token, id)
}
