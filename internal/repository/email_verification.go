// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/courses/internal/models"
)

const eventColumns = `id, email_id, token_hash, created_at, expires_at, consumed_at`

// CreateEmailVerificationEvent stores a new verification event for an email.
func (r *Repository) CreateEmailVerificationEvent(ctx context.Context, emailID int64, tokenHash string, createdAt, expiresAt time.Time) (*models.EmailVerificationEvent, error) {
	var event models.EmailVerificationEvent
	err := r.db.GetContext(ctx, &event,
		`INSERT INTO email_verification_events (email_id, token_hash, created_at, expires_at)
		 VALUES (?, ?, ?, ?) RETURNING `+eventColumns,
		emailID, tokenHash, createdAt, expiresAt)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetEmailVerificationEventByHash retrieves a verification event by token hash.
func (r *Repository) GetEmailVerificationEventByHash(ctx context.Context, tokenHash string) (*models.EmailVerificationEvent, error) {
	var event models.EmailVerificationEvent
	err := r.db.GetContext(ctx, &event,
		`SELECT `+eventColumns+` FROM email_verification_events WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &event, nil
}

// GetEmailVerificationEventByID retrieves a verification event by ID.
func (r *Repository) GetEmailVerificationEventByID(ctx context.Context, id int64) (*models.EmailVerificationEvent, error) {
	var event models.EmailVerificationEvent
	err := r.db.GetContext(ctx, &event,
		`SELECT `+eventColumns+` FROM email_verification_events WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &event, nil
}

// ConsumeEmailVerificationEvent marks an event as consumed if it is neither
// consumed nor expired at now. It reports whether this call consumed it.
func (r *Repository) ConsumeEmailVerificationEvent(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE email_verification_events SET consumed_at = ?
		 WHERE id = ? AND consumed_at IS NULL AND expires_at >= ?`,
		now, id, now)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountOutstandingEmailVerificationEvents counts the unconsumed, unexpired
// events of an email.
func (r *Repository) CountOutstandingEmailVerificationEvents(ctx context.Context, emailID int64, now time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM email_verification_events
		 WHERE email_id = ? AND consumed_at IS NULL AND expires_at >= ?`,
		emailID, now)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListEmailVerificationEvents returns all events of an email, oldest first.
func (r *Repository) ListEmailVerificationEvents(ctx context.Context, emailID int64) ([]models.EmailVerificationEvent, error) {
	var events []models.EmailVerificationEvent
	err := r.db.SelectContext(ctx, &events,
		`SELECT `+eventColumns+` FROM email_verification_events WHERE email_id = ? ORDER BY id`, emailID)
	if err != nil {
		return nil, err
	}
	return events, nil
}
