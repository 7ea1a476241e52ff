// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification issues and redeems one-time email verification tokens.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	emailverifier "github.com/AfterShip/email-verifier"

	"codeberg.org/oliverandrich/courses/internal/metrics"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/repository"
)

// User-facing outcome messages of VerifyToken.
const (
	MessageInvalidToken     = "invalid token"
	MessageTokenAlreadyUsed = "token already used"
	MessageTokenExpired     = "token expired"
	MessageVerified         = "verified"
)

var (
	// ErrInvalidAddress is returned for syntactically invalid email addresses.
	ErrInvalidAddress = errors.New("invalid email address")
	// ErrPersistence wraps storage failures.
	ErrPersistence = errors.New("persistence error")
	// ErrTooManyRequests is returned when an address holds too many open tokens.
	ErrTooManyRequests = errors.New("too many open verification requests")

	ErrInvalidToken     = errors.New(MessageInvalidToken)
	ErrTokenAlreadyUsed = errors.New(MessageTokenAlreadyUsed)
	ErrTokenExpired     = errors.New(MessageTokenExpired)
)

// Config holds the settings of the verification flow.
type Config struct {
	SenderAddress  string
	TokenTTL       time.Duration
	MaxOutstanding int // 0 disables the limit
}

// Store is the persistence the service needs. It is implemented by
// *repository.Repository.
type Store interface {
	FindOrCreateEmail(ctx context.Context, address string, now time.Time) (*models.Email, error)
	GetEmailByID(ctx context.Context, id int64) (*models.Email, error)
	CreateEmailVerificationEvent(ctx context.Context, emailID int64, tokenHash string, createdAt, expiresAt time.Time) (*models.EmailVerificationEvent, error)
	GetEmailVerificationEventByHash(ctx context.Context, tokenHash string) (*models.EmailVerificationEvent, error)
	GetEmailVerificationEventByID(ctx context.Context, id int64) (*models.EmailVerificationEvent, error)
	ConsumeEmailVerificationEvent(ctx context.Context, id int64, now time.Time) (bool, error)
	CountOutstandingEmailVerificationEvents(ctx context.Context, emailID int64, now time.Time) (int, error)
}

// Mailer delivers a verification token to an address.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
}

// Result is the outcome of VerifyToken. Email is only set when OK is true.
type Result struct {
	OK      bool
	Message string
	Email   *models.Email
	Err     error
}

// Service issues and redeems verification tokens. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	cfg      Config
	store    Store
	mailer   Mailer
	verifier *emailverifier.Verifier
	now      func() time.Time
}

// NewService creates a verification service.
func NewService(cfg Config, store Store, mailer Mailer) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		mailer:   mailer,
		verifier: emailverifier.NewVerifier(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SenderAddress is the address verification mail is sent from.
func (s *Service) SenderAddress() string {
	return s.cfg.SenderAddress
}

// NormalizeAddress trims and lower-cases an email address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidAddress reports whether address is syntactically valid.
func (s *Service) ValidAddress(address string) bool {
	return s.verifier.ParseAddress(strings.TrimSpace(address)).Valid
}

// StartVerification issues a new token for address and mails it. Mail
// delivery failures are logged, not returned.
func (s *Service) StartVerification(ctx context.Context, address string) (*models.EmailVerificationEvent, error) {
	event, err := s.startVerification(ctx, address)
	switch {
	case err == nil:
		metrics.VerificationsStarted.WithLabelValues("issued").Inc()
	case errors.Is(err, ErrInvalidAddress):
		metrics.VerificationsStarted.WithLabelValues("invalid").Inc()
	case errors.Is(err, ErrTooManyRequests):
		metrics.VerificationsStarted.WithLabelValues("rate_limited").Inc()
	default:
		metrics.VerificationsStarted.WithLabelValues("error").Inc()
	}
	return event, err
}

func (s *Service) startVerification(ctx context.Context, address string) (*models.EmailVerificationEvent, error) {
	if !s.ValidAddress(address) {
		return nil, ErrInvalidAddress
	}
	address = NormalizeAddress(address)
	now := s.now()

	email, err := s.store.FindOrCreateEmail(ctx, address, now)
	if err != nil {
		return nil, fmt.Errorf("%w: find or create email: %w", ErrPersistence, err)
	}

	if s.cfg.MaxOutstanding > 0 {
		open, err := s.store.CountOutstandingEmailVerificationEvents(ctx, email.ID, now)
		if err != nil {
			return nil, fmt.Errorf("%w: count open tokens: %w", ErrPersistence, err)
		}
		if open >= s.cfg.MaxOutstanding {
			slog.WarnContext(ctx, "verification_rate_limited", "email", address, "open", open)
			return nil, ErrTooManyRequests
		}
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	event, err := s.store.CreateEmailVerificationEvent(ctx, email.ID, hash, now, now.Add(s.cfg.TokenTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: create verification event: %w", ErrPersistence, err)
	}
	event.Token = token

	slog.InfoContext(ctx, "verification_started", "email", address, "event_id", event.ID)

	if err := s.mailer.SendVerification(ctx, address, token); err != nil {
		metrics.VerificationMailFailures.Inc()
		slog.ErrorContext(ctx, "verification_mail_failed", "email", address, "event_id", event.ID, "error", err)
	}

	return event, nil
}

// VerifyToken redeems token. Expected outcomes (unknown, expired or reused
// tokens) are reported in the Result; only storage failures return an error.
func (s *Service) VerifyToken(ctx context.Context, token string) (Result, error) {
	res, err := s.verifyToken(ctx, token)
	if err == nil {
		metrics.VerificationsRedeemed.WithLabelValues(res.Message).Inc()
	}
	return res, err
}

func (s *Service) verifyToken(ctx context.Context, token string) (Result, error) {
	if token == "" {
		return failure(ErrInvalidToken), nil
	}

	event, err := s.store.GetEmailVerificationEventByHash(ctx, HashToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		slog.InfoContext(ctx, "verification_failed", "reason", MessageInvalidToken)
		return failure(ErrInvalidToken), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: lookup token: %w", ErrPersistence, err)
	}

	now := s.now()
	if res, done := checkState(event, now); done {
		slog.InfoContext(ctx, "verification_failed", "reason", res.Message, "event_id", event.ID)
		return res, nil
	}

	consumed, err := s.store.ConsumeEmailVerificationEvent(ctx, event.ID, now)
	if err != nil {
		return Result{}, fmt.Errorf("%w: consume token: %w", ErrPersistence, err)
	}
	if !consumed {
		// Another request won the race or the token expired in between.
		event, err = s.store.GetEmailVerificationEventByID(ctx, event.ID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: reload token: %w", ErrPersistence, err)
		}
		res, done := checkState(event, now)
		if !done {
			res = failure(ErrTokenAlreadyUsed)
		}
		slog.InfoContext(ctx, "verification_failed", "reason", res.Message, "event_id", event.ID)
		return res, nil
	}

	email, err := s.store.GetEmailByID(ctx, event.EmailID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: load email: %w", ErrPersistence, err)
	}

	slog.InfoContext(ctx, "verification_succeeded", "email", email.Address, "event_id", event.ID)
	return Result{OK: true, Message: MessageVerified, Email: email}, nil
}

// checkState reports the failure result for an event that cannot be redeemed
// at now. Expiry takes precedence over consumption.
func checkState(event *models.EmailVerificationEvent, now time.Time) (Result, bool) {
	switch {
	case event.IsExpired(now):
		return failure(ErrTokenExpired), true
	case event.IsConsumed():
		return failure(ErrTokenAlreadyUsed), true
	}
	return Result{}, false
}

func failure(err error) Result {
	return Result{Message: err.Error(), Err: err}
}
