// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"codeberg.org/oliverandrich/courses/internal/config"
	"codeberg.org/oliverandrich/courses/internal/i18n"
	"codeberg.org/oliverandrich/courses/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Test App",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com")

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg, "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg, "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestVerifyURL(t *testing.T) {
	svc, err := email.NewService(validSMTPConfig(), "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/verify/abc123/", svc.VerifyURL("abc123"))
}

func TestVerifyURL_EscapesToken(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/verify/a%2Fb/", email.VerifyURL("http://localhost:8080", "a/b"))
}

func TestSendVerification_ConnectionRefused(t *testing.T) {
	require.NoError(t, i18n.Init())

	cfg := validSMTPConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.TLS = false
	svc, err := email.NewService(cfg, "https://example.com")
	require.NoError(t, err)

	err = svc.SendVerification(context.Background(), "user@example.com", "token")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending email")
}

func TestSendVerification_InvalidRecipient(t *testing.T) {
	require.NoError(t, i18n.Init())

	svc, err := email.NewService(validSMTPConfig(), "https://example.com")
	require.NoError(t, err)

	err = svc.SendVerification(context.Background(), "not an address", "token")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting to address")
}

func TestLogMailer_SendVerification(t *testing.T) {
	require.NoError(t, i18n.Init())

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	mailer := email.NewLogMailer("http://localhost:8080/")
	ctx := i18n.WithLocale(context.Background(), language.English)

	err := mailer.SendVerification(ctx, "user@example.com", "abc123")

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "verification_mail_logged")
	assert.Contains(t, out, "to=user@example.com")
	assert.Contains(t, out, "url=http://localhost:8080/verify/abc123/")
}
