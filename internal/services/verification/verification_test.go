// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/courses/internal/metrics"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"codeberg.org/oliverandrich/courses/internal/services/verification"
	"codeberg.org/oliverandrich/courses/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to    string
	token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerification(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, token: token})
	return m.err
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// brokenStore fails every email lookup.
type brokenStore struct {
	verification.Store
}

func (brokenStore) FindOrCreateEmail(context.Context, string, time.Time) (*models.Email, error) {
	return nil, errors.New("database is locked")
}

func newService(t *testing.T, cfg verification.Config) (*verification.Service, *repository.Repository, *fakeMailer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	mailer := &fakeMailer{}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	return verification.NewService(cfg, repo, mailer), repo, mailer
}

func TestStartVerification(t *testing.T) {
	svc, repo, mailer := newService(t, verification.Config{})
	ctx := context.Background()

	event, err := svc.StartVerification(ctx, "user@example.com")

	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.Len(t, event.Token, 64)
	assert.Equal(t, verification.HashToken(event.Token), event.TokenHash)
	assert.Nil(t, event.ConsumedAt)
	assert.WithinDuration(t, event.CreatedAt.Add(time.Hour), event.ExpiresAt, time.Second)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "user@example.com", sent[0].to)
	assert.Equal(t, event.Token, sent[0].token)

	email, err := repo.GetEmailByID(ctx, event.EmailID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email.Address)
}

func TestStartVerification_TwiceSameAddress(t *testing.T) {
	svc, repo, mailer := newService(t, verification.Config{})
	ctx := context.Background()

	first, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)
	second, err := svc.StartVerification(ctx, "  User@Example.com ")
	require.NoError(t, err)

	assert.Equal(t, first.EmailID, second.EmailID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Token, second.Token)

	count, err := repo.CountEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	events, err := repo.ListEmailVerificationEvents(ctx, first.EmailID)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	assert.Len(t, mailer.Sent(), 2)
}

func TestStartVerification_InvalidAddress(t *testing.T) {
	svc, repo, mailer := newService(t, verification.Config{})
	ctx := context.Background()

	for _, address := range []string{"", "not-an-email", "user@", "@example.com"} {
		t.Run(address, func(t *testing.T) {
			_, err := svc.StartVerification(ctx, address)
			assert.ErrorIs(t, err, verification.ErrInvalidAddress)
		})
	}

	assert.Empty(t, mailer.Sent())
	count, err := repo.CountEmails(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStartVerification_PersistenceFailure(t *testing.T) {
	mailer := &fakeMailer{}
	svc := verification.NewService(verification.Config{TokenTTL: time.Hour}, brokenStore{}, mailer)

	_, err := svc.StartVerification(context.Background(), "user@example.com")

	require.ErrorIs(t, err, verification.ErrPersistence)
	assert.Empty(t, mailer.Sent())
}

func TestStartVerification_MailFailureStillReturnsEvent(t *testing.T) {
	svc, _, mailer := newService(t, verification.Config{})
	mailer.err = errors.New("connection refused")

	event, err := svc.StartVerification(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.NotEmpty(t, event.Token)
	assert.Len(t, mailer.Sent(), 1)
}

func TestStartVerification_RateLimit(t *testing.T) {
	svc, _, mailer := newService(t, verification.Config{MaxOutstanding: 2})
	ctx := context.Background()

	first, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)
	_, err = svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	_, err = svc.StartVerification(ctx, "user@example.com")
	require.ErrorIs(t, err, verification.ErrTooManyRequests)
	assert.Len(t, mailer.Sent(), 2)

	// Other addresses are not affected
	_, err = svc.StartVerification(ctx, "other@example.com")
	require.NoError(t, err)

	// Redeeming a token frees a slot
	res, err := svc.VerifyToken(ctx, first.Token)
	require.NoError(t, err)
	require.True(t, res.OK)

	_, err = svc.StartVerification(ctx, "user@example.com")
	assert.NoError(t, err)
}

func TestStartVerification_RateLimitIgnoresExpired(t *testing.T) {
	svc, _, _ := newService(t, verification.Config{MaxOutstanding: 1, TokenTTL: time.Minute})
	ctx := context.Background()

	now := time.Now().UTC()
	svc.SetClock(func() time.Time { return now })

	_, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	_, err = svc.StartVerification(ctx, "user@example.com")
	require.ErrorIs(t, err, verification.ErrTooManyRequests)

	svc.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	_, err = svc.StartVerification(ctx, "user@example.com")
	assert.NoError(t, err)
}

func TestStartVerification_Unlimited(t *testing.T) {
	svc, _, mailer := newService(t, verification.Config{MaxOutstanding: 0})
	ctx := context.Background()

	for range 8 {
		_, err := svc.StartVerification(ctx, "user@example.com")
		require.NoError(t, err)
	}

	assert.Len(t, mailer.Sent(), 8)
}

func TestVerifyToken_InvalidToken(t *testing.T) {
	svc, repo, _ := newService(t, verification.Config{})
	ctx := context.Background()

	event, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	for _, token := range []string{"", "never-issued", event.TokenHash} {
		res, err := svc.VerifyToken(ctx, token)

		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, verification.MessageInvalidToken, res.Message)
		assert.ErrorIs(t, res.Err, verification.ErrInvalidToken)
		assert.Nil(t, res.Email)
	}

	// Nothing was consumed
	unchanged, err := repo.GetEmailVerificationEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.ConsumedAt)
}

func TestVerifyToken_TwiceInSuccession(t *testing.T) {
	svc, repo, _ := newService(t, verification.Config{})
	ctx := context.Background()

	event, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	first, err := svc.VerifyToken(ctx, event.Token)
	require.NoError(t, err)
	assert.True(t, first.OK)
	assert.Equal(t, verification.MessageVerified, first.Message)

	consumed, err := repo.GetEmailVerificationEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.NotNil(t, consumed.ConsumedAt)

	second, err := svc.VerifyToken(ctx, event.Token)
	require.NoError(t, err)
	assert.False(t, second.OK)
	assert.Equal(t, verification.MessageTokenAlreadyUsed, second.Message)
	assert.ErrorIs(t, second.Err, verification.ErrTokenAlreadyUsed)
	assert.Nil(t, second.Email)
}

func TestVerifyToken_Expired(t *testing.T) {
	svc, repo, _ := newService(t, verification.Config{TokenTTL: time.Hour})
	ctx := context.Background()

	now := time.Now().UTC()
	svc.SetClock(func() time.Time { return now })

	event, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return now.Add(time.Hour + time.Second) })

	res, err := svc.VerifyToken(ctx, event.Token)

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, verification.MessageTokenExpired, res.Message)
	assert.ErrorIs(t, res.Err, verification.ErrTokenExpired)
	assert.Nil(t, res.Email)

	unchanged, err := repo.GetEmailVerificationEventByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.ConsumedAt)
}

func TestVerifyToken_AtExpiry(t *testing.T) {
	svc, _, _ := newService(t, verification.Config{TokenTTL: time.Hour})
	ctx := context.Background()

	now := time.Now().UTC()
	svc.SetClock(func() time.Time { return now })

	event, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	svc.SetClock(func() time.Time { return now.Add(time.Hour) })

	res, err := svc.VerifyToken(ctx, event.Token)

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, verification.MessageVerified, res.Message)
}

func TestVerifyToken_ExpiredAndConsumed(t *testing.T) {
	svc, _, _ := newService(t, verification.Config{TokenTTL: time.Hour})
	ctx := context.Background()

	now := time.Now().UTC()
	svc.SetClock(func() time.Time { return now })

	event, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	res, err := svc.VerifyToken(ctx, event.Token)
	require.NoError(t, err)
	require.True(t, res.OK)

	svc.SetClock(func() time.Time { return now.Add(2 * time.Hour) })

	res, err = svc.VerifyToken(ctx, event.Token)

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, verification.MessageTokenExpired, res.Message)
}

func TestVerifyToken_Concurrent(t *testing.T) {
	svc, _, _ := newService(t, verification.Config{})
	ctx := context.Background()

	event, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	const workers = 10
	results := make([]verification.Result, workers)
	errs := make([]error, workers)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = svc.VerifyToken(ctx, event.Token)
		}()
	}
	close(start)
	wg.Wait()

	successes := 0
	for i := range workers {
		require.NoError(t, errs[i])
		if results[i].OK {
			successes++
			continue
		}
		assert.Equal(t, verification.MessageTokenAlreadyUsed, results[i].Message)
	}
	assert.Equal(t, 1, successes)
}

func TestVerifyToken_EndToEnd(t *testing.T) {
	svc, _, mailer := newService(t, verification.Config{})
	ctx := context.Background()

	_, err := svc.StartVerification(ctx, "user@example.com")
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)

	res, err := svc.VerifyToken(ctx, sent[0].token)

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, verification.MessageVerified, res.Message)
	assert.NoError(t, res.Err)
	require.NotNil(t, res.Email)
	assert.Equal(t, "user@example.com", res.Email.Address)
}

func TestSenderAddress(t *testing.T) {
	svc, _, _ := newService(t, verification.Config{SenderAddress: "courses@example.com"})

	assert.Equal(t, "courses@example.com", svc.SenderAddress())
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "user@example.com", verification.NormalizeAddress("  User@EXAMPLE.com\n"))
}

func TestMetrics(t *testing.T) {
	svc, _, _ := newService(t, verification.Config{MaxOutstanding: 1})
	ctx := context.Background()

	issued := promtest.ToFloat64(metrics.VerificationsStarted.WithLabelValues("issued"))
	limited := promtest.ToFloat64(metrics.VerificationsStarted.WithLabelValues("rate_limited"))
	invalid := promtest.ToFloat64(metrics.VerificationsStarted.WithLabelValues("invalid"))
	verified := promtest.ToFloat64(metrics.VerificationsRedeemed.WithLabelValues(verification.MessageVerified))
	used := promtest.ToFloat64(metrics.VerificationsRedeemed.WithLabelValues(verification.MessageTokenAlreadyUsed))

	event, err := svc.StartVerification(ctx, "metrics@example.com")
	require.NoError(t, err)
	_, err = svc.StartVerification(ctx, "metrics@example.com")
	require.ErrorIs(t, err, verification.ErrTooManyRequests)
	_, err = svc.StartVerification(ctx, "not an address")
	require.ErrorIs(t, err, verification.ErrInvalidAddress)

	_, err = svc.VerifyToken(ctx, event.Token)
	require.NoError(t, err)
	_, err = svc.VerifyToken(ctx, event.Token)
	require.NoError(t, err)

	assert.InDelta(t, issued+1, promtest.ToFloat64(metrics.VerificationsStarted.WithLabelValues("issued")), 0)
	assert.InDelta(t, limited+1, promtest.ToFloat64(metrics.VerificationsStarted.WithLabelValues("rate_limited")), 0)
	assert.InDelta(t, invalid+1, promtest.ToFloat64(metrics.VerificationsStarted.WithLabelValues("invalid")), 0)
	assert.InDelta(t, verified+1, promtest.ToFloat64(metrics.VerificationsRedeemed.WithLabelValues(verification.MessageVerified)), 0)
	assert.InDelta(t, used+1, promtest.ToFloat64(metrics.VerificationsRedeemed.WithLabelValues(verification.MessageTokenAlreadyUsed)), 0)
}
