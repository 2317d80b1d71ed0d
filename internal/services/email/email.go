// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers one-time codes over SMTP.
package email

import (
	"context"
	"fmt"

	"github.com/gatekit/gatekit/internal/config"
	"github.com/wneessen/go-mail"
)

// Dispatcher sends a one-time code to an address out-of-band. A failed
// send never invalidates the code that was issued.
type Dispatcher interface {
	SendCode(ctx context.Context, to, purpose, code string) error
}

// SMTP is the production Dispatcher backed by go-mail.
type SMTP struct {
	cfg *config.SMTPConfig
}

// NewSMTP creates an SMTP dispatcher.
func NewSMTP(cfg *config.SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTP{cfg: cfg}, nil
}

// SendCode sends the code for the given purpose.
func (s *SMTP) SendCode(_ context.Context, to, purpose, code string) error {
	subject, body := message(purpose, code)
	return s.send(to, subject, body)
}

func message(purpose, code string) (subject, body string) {
	switch purpose {
	case "verify-email":
		subject = "Confirm your email address"
		body = fmt.Sprintf("Your confirmation code is %s.\n\nIt expires shortly. If you did not sign up, you can ignore this message.\n", code)
	default:
		subject = "Your password reset code"
		body = fmt.Sprintf("Your password reset code is %s.\n\nIt expires shortly. If you did not request a reset, you can ignore this message.\n", code)
	}
	return subject, body
}

func (s *SMTP) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Implicit TLS for 465, STARTTLS otherwise
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
