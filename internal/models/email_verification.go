// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// EmailVerificationEvent is one issued verification token for an Email.
// Only the SHA256 hash of the token is stored.
type EmailVerificationEvent struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64      `db:"id" json:"id"`
	EmailID    int64      `db:"email_id" json:"email_id"`
	TokenHash  string     `db:"token_hash" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`

	// Token is the plaintext token, only set on the event returned at issue time.
	Token string `db:"-" json:"-"`
}

// IsConsumed reports whether the token has already been redeemed.
func (e *EmailVerificationEvent) IsConsumed() bool {
	return e.ConsumedAt != nil
}

// IsExpired reports whether the token can no longer be redeemed at now.
// A token is still valid at its expiration instant.
func (e *EmailVerificationEvent) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
