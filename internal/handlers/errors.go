// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/courses/internal/templates"
	"github.com/labstack/echo/v4"
)

// errorMessages maps status codes to translated page messages.
var errorMessages = map[int]string{
	http.StatusBadRequest: "error_bad_request",
	http.StatusForbidden:  "error_forbidden",
	http.StatusNotFound:   "error_not_found",
}

// HTTPErrorHandler renders errors as HTML pages. Internal errors are logged
// and shown with a generic message.
func (h *Handlers) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}

	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = Render(c, code, templates.ErrorPage(code, errorMessage(c, code)))
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to render error page", "error", err)
	}
}

func errorMessage(c echo.Context, code int) string {
	if id, ok := errorMessages[code]; ok {
		return t(c, id)
	}
	if code >= http.StatusInternalServerError {
		return t(c, "error_internal")
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return t(c, "error_internal")
}
