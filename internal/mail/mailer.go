// Package mail sends transactional email. Delivery is a collaborator
// concern; callers only see the Mailer interface.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Mailer interface {
	Send(ctx context.Context, to string, subject string, text string, html string) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
	log    zerolog.Logger
}

func NewSendGridMailer(apiKey string, fromName string, fromAddress string, log zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddress),
		log:    log,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to string, subject string, text string, html string) error {
	message := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail("", to), text, html)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", response.StatusCode, response.Body)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

// LogMailer stands in for a provider in development; it only logs the
// message.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to string, subject string, text string, _ string) error {
	m.log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("text", text).
		Msg("mail suppressed (log mailer)")
	return nil
}
