// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package appcontext_test

import (
	"testing"

	"codeberg.org/oliverandrich/courses/internal/appcontext"
	"codeberg.org/oliverandrich/courses/internal/htmx"
	"codeberg.org/oliverandrich/courses/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestContext_GetVisitor(t *testing.T) {
	visitor := &models.Email{ID: 123, Address: "user@example.com"}
	ctx := &appcontext.Context{Visitor: visitor}

	result := ctx.GetVisitor()

	assert.Equal(t, visitor, result)
	assert.Equal(t, int64(123), result.ID)
}

func TestContext_GetVisitor_Nil(t *testing.T) {
	ctx := &appcontext.Context{}

	assert.Nil(t, ctx.GetVisitor())
}

func TestContext_IsVerified(t *testing.T) {
	assert.True(t, (&appcontext.Context{Visitor: &models.Email{ID: 1}}).IsVerified())
	assert.False(t, (&appcontext.Context{}).IsVerified())
}

func TestContext_IsHtmx(t *testing.T) {
	assert.False(t, (&appcontext.Context{}).IsHtmx())
	assert.False(t, (&appcontext.Context{Htmx: &htmx.Request{}}).IsHtmx())
	assert.True(t, (&appcontext.Context{Htmx: &htmx.Request{IsHtmx: true}}).IsHtmx())
}
