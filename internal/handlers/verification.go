// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/courses/internal/i18n"
	"codeberg.org/oliverandrich/courses/internal/services/session"
	"codeberg.org/oliverandrich/courses/internal/services/verification"
	"codeberg.org/oliverandrich/courses/internal/templates"
	"github.com/labstack/echo/v4"
)

// EmailForm is the submitted email verification form.
type EmailForm struct {
	Email string `form:"email" validate:"required,email,max=254"`
}

// Home renders the home page.
func (h *Handlers) Home(c echo.Context) error {
	return h.page(c, http.StatusOK, templates.Home(templates.EmailForm{}))
}

// SubmitEmail starts the verification of the submitted address and shows the
// outcome on the home page. Problems are reported in the form with status 200.
func (h *Handlers) SubmitEmail(c echo.Context) error {
	return h.page(c, http.StatusOK, templates.Home(h.startVerification(c)))
}

// LoginPage renders the login or logout controls.
func (h *Handlers) LoginPage(c echo.Context) error {
	return h.page(c, http.StatusOK, templates.LoginPage())
}

// HxLoginForm renders the htmx email form.
func (h *Handlers) HxLoginForm(c echo.Context) error {
	if !isHtmx(c) {
		return h.redirect(c, "/")
	}
	return h.partial(c, http.StatusOK, templates.LoginForm(templates.EmailForm{}))
}

// HxLogin handles the htmx email form.
func (h *Handlers) HxLogin(c echo.Context) error {
	if !isHtmx(c) {
		return h.redirect(c, "/")
	}
	if visitor(c) != nil {
		return h.partial(c, http.StatusOK, templates.LoginForm(templates.EmailForm{}))
	}
	return h.partial(c, http.StatusOK, templates.LoginForm(h.startVerification(c)))
}

// HxLogoutButton renders the htmx logout button.
func (h *Handlers) HxLogoutButton(c echo.Context) error {
	if !isHtmx(c) {
		return h.redirect(c, "/")
	}
	return h.partial(c, http.StatusOK, templates.LogoutButton())
}

// HxLogout unbinds the email from the session and sends the visitor home.
func (h *Handlers) HxLogout(c echo.Context) error {
	sess := h.session(c)
	if sess.Authenticated() {
		sess.EmailID = 0
		sess.AddFlash(session.FlashSuccess, t(c, "logged_out"))
	}
	return h.redirect(c, "/")
}

// Verify redeems the token of a verification link. On success the email is
// bound to the session and the visitor continues where the gate stopped them.
func (h *Handlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	sess := h.session(c)

	res, err := h.verification.VerifyToken(ctx, c.Param("token"))
	if err != nil {
		slog.ErrorContext(ctx, "verification_error", "error", err)
		sess.EmailID = 0
		sess.AddFlash(session.FlashError, t(c, "verification_failed"))
		return h.redirect(c, "/login/")
	}

	if !res.OK {
		sess.EmailID = 0
		sess.AddFlash(session.FlashError, t(c, verifyMessageID(res.Err)))
		return h.redirect(c, "/login/")
	}

	next := verification.SafeNextURL(sess.NextURL)
	sess.EmailID = res.Email.ID
	sess.NextURL = ""
	sess.AddFlash(session.FlashSuccess, t(c, "verify_success"))
	return h.redirect(c, next)
}

// startVerification binds the email form and issues a verification mail.
// The returned form carries either the confirmation or the problem.
func (h *Handlers) startVerification(c echo.Context) templates.EmailForm {
	ctx := c.Request().Context()

	var form EmailForm
	if err := c.Bind(&form); err != nil {
		return templates.EmailForm{Error: t(c, "invalid_email")}
	}
	view := templates.EmailForm{Email: form.Email}
	if err := c.Validate(&form); err != nil {
		view.Error = t(c, "invalid_email")
		return view
	}

	_, err := h.verification.StartVerification(ctx, form.Email)
	switch {
	case err == nil:
		return templates.EmailForm{
			Message: i18n.TData(ctx, "verification_started", map[string]any{
				"Sender": h.verification.SenderAddress(),
			}),
		}
	case errors.Is(err, verification.ErrInvalidAddress):
		view.Error = t(c, "invalid_email")
	case errors.Is(err, verification.ErrTooManyRequests):
		view.Error = t(c, "verification_too_many")
	default:
		slog.ErrorContext(ctx, "verification_error", "error", err)
		view.Error = t(c, "verification_failed")
	}
	return view
}

func verifyMessageID(err error) string {
	switch {
	case errors.Is(err, verification.ErrTokenExpired):
		return "verify_token_expired"
	case errors.Is(err, verification.ErrTokenAlreadyUsed):
		return "verify_token_already_used"
	default:
		return "verify_invalid_token"
	}
}
