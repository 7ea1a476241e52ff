// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification links by mail.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/oliverandrich/courses/internal/config"
	"codeberg.org/oliverandrich/courses/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service sends verification mail through an SMTP server.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, errors.New("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// VerifyURL returns the redemption link for token.
func (s *Service) VerifyURL(token string) string {
	return VerifyURL(s.baseURL, token)
}

// SendVerification sends a verification email with the given token.
func (s *Service) SendVerification(ctx context.Context, to, token string) error {
	subject, body := verificationContent(ctx, s.VerifyURL(token))

	msg, err := s.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (s *Service) buildMessage(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return msg, nil
}

func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Implicit TLS on 465, STARTTLS everywhere else
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
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

	return opts
}

// LogMailer writes verification links to the log instead of sending mail.
// It is used when no SMTP host is configured.
type LogMailer struct {
	baseURL string
}

// NewLogMailer creates a mailer for local development.
func NewLogMailer(baseURL string) *LogMailer {
	return &LogMailer{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// SendVerification logs the verification link for to.
func (m *LogMailer) SendVerification(ctx context.Context, to, token string) error {
	subject, _ := verificationContent(ctx, "")
	slog.InfoContext(ctx, "verification_mail_logged",
		"to", to,
		"subject", subject,
		"url", VerifyURL(m.baseURL, token),
	)
	return nil
}

// VerifyURL builds the redemption link {baseURL}/verify/{token}/.
func VerifyURL(baseURL, token string) string {
	return strings.TrimSuffix(baseURL, "/") + "/verify/" + url.PathEscape(token) + "/"
}

func verificationContent(ctx context.Context, verifyURL string) (subject, body string) {
	subject = i18n.T(ctx, "email_verification_subject")
	body = i18n.TData(ctx, "email_verification_body", map[string]any{
		"VerifyURL": verifyURL,
	})
	return subject, body
}
