// Package mail composes and sends workflow notification emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log"

	gomail "github.com/wneessen/go-mail"

	"maintline/internal/config"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one fully composed notification. To carries the counterparty
// and Cc the acting user, so both sides always have the thread.
type Message struct {
	To          []string
	Cc          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer dials the configured relay per message.
type SMTPMailer struct {
	Cfg config.Email
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.Cfg.From); err != nil {
		return fmt.Errorf("compose from: %w", err)
	}
	if err := msg.To(m.To...); err != nil {
		return fmt.Errorf("compose to: %w", err)
	}
	if len(m.Cc) > 0 {
		if err := msg.Cc(m.Cc...); err != nil {
			return fmt.Errorf("compose cc: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	for _, a := range m.Attachments {
		if err := msg.AttachReader(a.Filename, bytes.NewReader(a.Data)); err != nil {
			return fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	opts := []gomail.Option{gomail.WithPort(s.Cfg.Port)}
	if s.Cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.Cfg.Username),
			gomail.WithPassword(s.Cfg.Password))
	}
	client, err := gomail.NewClient(s.Cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer prints messages instead of dispatching them. Used when
// email.skip_send is set, and as the fallback for local development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Message) error {
	log.Printf("mail: skipped send to=%v cc=%v subject=%q (%d attachment(s))",
		m.To, m.Cc, m.Subject, len(m.Attachments))
	return nil
}

// FromConfig picks the transport the config asks for.
func FromConfig(cfg config.Email) Mailer {
	if cfg.SkipSend {
		return LogMailer{}
	}
	return &SMTPMailer{Cfg: cfg}
}
