package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"

	"firmsite/internal/config"
)

var ErrEmailDisabled = errors.New("email service is disabled or not configured")

// EmailService sends notifications through Resend.
type EmailService struct {
	client  *resend.Client
	from    string
	enabled bool
}

func NewEmailService(cfg *config.Config) *EmailService {
	if cfg == nil || !cfg.EmailConfigured() {
		return &EmailService{}
	}

	from := strings.TrimSpace(cfg.EmailFrom)
	if name := strings.TrimSpace(cfg.SiteName); name != "" {
		from = fmt.Sprintf("%s <%s>", name, from)
	}

	return &EmailService{
		client:  resend.NewClient(cfg.ResendAPIKey),
		from:    from,
		enabled: true,
	}
}

func (s *EmailService) Enabled() bool {
	return s != nil && s.enabled
}

func (s *EmailService) Send(ctx context.Context, to, subject, html string) error {
	if !s.Enabled() {
		return ErrEmailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      []string{strings.TrimSpace(to)},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send email via Resend: %w", err)
	}
	return nil
}
