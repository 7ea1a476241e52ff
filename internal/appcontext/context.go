// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context.
package appcontext

import (
	"codeberg.org/oliverandrich/courses/internal/htmx"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/services/session"
	"github.com/labstack/echo/v4"
)

// Assets holds paths to static assets.
type Assets struct {
	CSSPath string
	JSPath  string
}

// Context is a custom Echo context with typed fields for htmx, assets and the
// visitor session.
type Context struct {
	echo.Context
	Htmx    *htmx.Request
	Assets  *Assets
	Session *session.Data
	Visitor *models.Email // nil until the visitor verified an email
}

// GetVisitor returns the verified email of the visitor, or nil.
func (c *Context) GetVisitor() *models.Email {
	return c.Visitor
}

// IsVerified returns true if a verified email is bound to the session.
func (c *Context) IsVerified() bool {
	return c.Visitor != nil
}

// IsHtmx reports whether the request was made by htmx.
func (c *Context) IsHtmx() bool {
	return c.Htmx != nil && c.Htmx.IsHtmx
}
