// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/courses/internal/models"
)

// FindOrCreateEmail returns the email row for address, inserting it first if
// it does not exist yet. Concurrent callers with the same address end up with
// the same row.
func (r *Repository) FindOrCreateEmail(ctx context.Context, address string, now time.Time) (*models.Email, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO emails (address, created_at) VALUES (?, ?) ON CONFLICT (address) DO NOTHING`,
		address, now); err != nil {
		return nil, err
	}
	return r.GetEmailByAddress(ctx, address)
}

// GetEmailByAddress retrieves an email by address (case-insensitive).
func (r *Repository) GetEmailByAddress(ctx context.Context, address string) (*models.Email, error) {
	var email models.Email
	err := r.db.GetContext(ctx, &email,
		`SELECT id, address, created_at FROM emails WHERE address = ?`, address)
	if err != nil {
		return nil, wrapError(err)
	}
	return &email, nil
}

// GetEmailByID retrieves an email by ID.
func (r *Repository) GetEmailByID(ctx context.Context, id int64) (*models.Email, error) {
	var email models.Email
	err := r.db.GetContext(ctx, &email,
		`SELECT id, address, created_at FROM emails WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &email, nil
}

// CountEmails returns the number of known addresses.
func (r *Repository) CountEmails(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM emails`); err != nil {
		return 0, err
	}
	return count, nil
}
