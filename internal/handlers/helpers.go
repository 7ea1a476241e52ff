// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"

	"codeberg.org/oliverandrich/courses/internal/appcontext"
	"codeberg.org/oliverandrich/courses/internal/ctxkeys"
	"codeberg.org/oliverandrich/courses/internal/htmx"
	"codeberg.org/oliverandrich/courses/internal/i18n"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// page renders a full page. Pending flashes are moved from the session into
// the request context so the layout shows them exactly once.
func (h *Handlers) page(c echo.Context, statusCode int, component templ.Component) error {
	sess := h.session(c)
	if flashes := sess.PopFlashes(); len(flashes) > 0 {
		ctx := context.WithValue(c.Request().Context(), ctxkeys.Flashes{}, flashes)
		c.SetRequest(c.Request().WithContext(ctx))
	}
	h.saveSession(c, sess)
	return Render(c, statusCode, component)
}

// partial renders an htmx fragment. Flashes stay queued for the next page.
func (h *Handlers) partial(c echo.Context, statusCode int, component templ.Component) error {
	h.saveSession(c, h.session(c))
	return Render(c, statusCode, component)
}

// redirect saves the session and redirects, using HX-Redirect for htmx.
func (h *Handlers) redirect(c echo.Context, url string) error {
	h.saveSession(c, h.session(c))
	htmx.Redirect(c.Response(), c.Request(), url)
	return nil
}

func htmxRequest(c echo.Context) *htmx.Request {
	if cc, ok := c.(*appcontext.Context); ok && cc.Htmx != nil {
		return cc.Htmx
	}
	return htmx.ParseRequest(c.Request())
}

func isHtmx(c echo.Context) bool {
	return htmxRequest(c).IsHtmx
}

// wantsFragment reports whether a page that also has a fragment form should
// render only the fragment.
func wantsFragment(c echo.Context) bool {
	return htmxRequest(c).WantsFragment()
}

func t(c echo.Context, messageID string) string {
	return i18n.T(c.Request().Context(), messageID)
}

