// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers of the application.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/courses/internal/appcontext"
	"codeberg.org/oliverandrich/courses/internal/ctxkeys"
	"codeberg.org/oliverandrich/courses/internal/media"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"codeberg.org/oliverandrich/courses/internal/services/courses"
	"codeberg.org/oliverandrich/courses/internal/services/session"
	"codeberg.org/oliverandrich/courses/internal/services/verification"
	"codeberg.org/oliverandrich/courses/internal/validator"
	"github.com/labstack/echo/v4"
)

// sessionKey stores the session in the echo context when no custom context
// is in use.
const sessionKey = "session"

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo         *repository.Repository
	sessions     *session.Manager
	verification *verification.Service
	courses      *courses.Service
	media        *media.Builder
}

// New creates a new Handlers instance.
func New(
	repo *repository.Repository,
	sessions *session.Manager,
	verifier *verification.Service,
	catalogue *courses.Service,
	mediaBuilder *media.Builder,
) *Handlers {
	return &Handlers{
		repo:         repo,
		sessions:     sessions,
		verification: verifier,
		courses:      catalogue,
		media:        mediaBuilder,
	}
}

// Register adds all routes to e. Everything except the health check runs
// behind LoadVisitor.
func (h *Handlers) Register(e *echo.Echo) {
	if e.Validator == nil {
		e.Validator = validator.Echo{}
	}
	e.HTTPErrorHandler = h.HTTPErrorHandler

	e.GET("/health", h.Health)

	g := e.Group("", h.LoadVisitor)
	g.GET("/", h.Home)
	g.POST("/", h.SubmitEmail)
	g.GET("/login/", h.LoginPage)
	g.GET("/hx/login/", h.HxLoginForm)
	g.POST("/hx/login/", h.HxLogin)
	g.GET("/hx/logout/", h.HxLogoutButton)
	g.POST("/hx/logout/", h.HxLogout)
	g.GET("/verify/:token/", h.Verify)
	g.GET("/courses/", h.CourseList)
	g.GET("/courses/:course_id/", h.CourseDetail)
	g.GET("/courses/:course_id/lessons/:lesson_id/", h.LessonDetail)
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// LoadVisitor reads the session cookie and resolves the verified email it
// points to. A session whose email no longer exists is treated as anonymous.
func (h *Handlers) LoadVisitor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		sess := h.sessions.Load(c.Request())

		var visitor *models.Email
		if sess.EmailID != 0 {
			email, err := h.repo.GetEmailByID(ctx, sess.EmailID)
			switch {
			case err == nil:
				visitor = email
			case errors.Is(err, repository.ErrNotFound):
				sess.EmailID = 0
			default:
				slog.ErrorContext(ctx, "failed to load visitor", "email_id", sess.EmailID, "error", err)
			}
		}

		if visitor != nil {
			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, ctxkeys.Visitor{}, visitor)))
		}
		c.Set(sessionKey, sess)
		if cc, ok := c.(*appcontext.Context); ok {
			cc.Session = sess
			cc.Visitor = visitor
		}

		return next(c)
	}
}

// session returns the session of the current request.
func (h *Handlers) session(c echo.Context) *session.Data {
	if cc, ok := c.(*appcontext.Context); ok && cc.Session != nil {
		return cc.Session
	}
	if sess, ok := c.Get(sessionKey).(*session.Data); ok {
		return sess
	}
	sess := h.sessions.Load(c.Request())
	c.Set(sessionKey, sess)
	return sess
}

// visitor returns the verified email of the current request, or nil.
func visitor(c echo.Context) *models.Email {
	if cc, ok := c.(*appcontext.Context); ok && cc.Visitor != nil {
		return cc.Visitor
	}
	if email, ok := c.Request().Context().Value(ctxkeys.Visitor{}).(*models.Email); ok {
		return email
	}
	return nil
}

// saveSession writes the session cookie. An anonymous session without a
// cookie is left alone so plain page views do not set cookies.
func (h *Handlers) saveSession(c echo.Context, sess *session.Data) {
	if sess.IsZero() {
		if _, err := c.Cookie(h.sessions.Name()); err != nil {
			return
		}
	}
	if err := h.sessions.Save(c.Response(), sess); err != nil {
		slog.ErrorContext(c.Request().Context(), "failed to save session", "error", err)
	}
}
