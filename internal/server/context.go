// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"

	"codeberg.org/oliverandrich/courses/internal/appcontext"
	"codeberg.org/oliverandrich/courses/internal/ctxkeys"
	"codeberg.org/oliverandrich/courses/internal/htmx"
	"github.com/labstack/echo/v4"
)

// customContext wraps the Echo context with appcontext.Context and copies
// the asset paths into the request context for templates.
func customContext(assets *appcontext.Assets) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ctxkeys.CSSPath{}, assets.CSSPath)
			ctx = context.WithValue(ctx, ctxkeys.JSPath{}, assets.JSPath)
			c.SetRequest(c.Request().WithContext(ctx))

			cc := &appcontext.Context{
				Context: c,
				Htmx:    htmx.ParseRequest(c.Request()),
				Assets:  assets,
			}
			return next(cc)
		}
	}
}
