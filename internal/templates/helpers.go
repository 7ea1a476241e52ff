// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the HTML views of the application.
package templates

import (
	"context"
	"encoding/json"

	"codeberg.org/oliverandrich/courses/internal/ctxkeys"
	"codeberg.org/oliverandrich/courses/internal/i18n"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/services/session"
)

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(ctxkeys.CSRFToken{}).(string); ok {
		return token
	}
	return ""
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return i18n.TData(ctx, messageID, data)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// CSSPath returns the path to the hashed CSS file.
func CSSPath(ctx context.Context) string {
	if path, ok := ctx.Value(ctxkeys.CSSPath{}).(string); ok {
		return path
	}
	return "/static/css/styles.css"
}

// JSPath returns the path to the hashed JS bundle.
func JSPath(ctx context.Context) string {
	if path, ok := ctx.Value(ctxkeys.JSPath{}).(string); ok {
		return path
	}
	return "/static/js/app.js"
}

// Visitor returns the verified email of the visitor, or nil.
func Visitor(ctx context.Context) *models.Email {
	if email, ok := ctx.Value(ctxkeys.Visitor{}).(*models.Email); ok {
		return email
	}
	return nil
}

// IsVerified returns true if the visitor has a verified email.
func IsVerified(ctx context.Context) bool {
	return Visitor(ctx) != nil
}

// Flashes returns the one-shot messages to show on this page.
func Flashes(ctx context.Context) []session.Flash {
	if flashes, ok := ctx.Value(ctxkeys.Flashes{}).([]session.Flash); ok {
		return flashes
	}
	return nil
}

const htmxURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// pageTitle appends the application name to title.
func pageTitle(ctx context.Context, title string) string {
	appName := T(ctx, "app_name")
	if title == "" {
		return appName
	}
	return title + " · " + appName
}

// csrfHeaders is the hx-headers value sending the CSRF token with every
// htmx request.
func csrfHeaders(ctx context.Context) string {
	b, err := json.Marshal(map[string]string{"X-CSRF-Token": CSRFToken(ctx)})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// signedInAs is the "Signed in as" line for the verified visitor.
func signedInAs(ctx context.Context) string {
	v := Visitor(ctx)
	if v == nil {
		return ""
	}
	return TData(ctx, "logged_in_as", map[string]any{"Address": v.Address})
}

// backLabel is the text of the link from a lesson back to its course.
func backLabel(ctx context.Context, lesson *models.Lesson) string {
	label := T(ctx, "back_to_course")
	if lesson.CourseTitle != "" {
		label += ": " + lesson.CourseTitle
	}
	return label
}

// coursePath is the URL of the course a lesson belongs to.
func coursePath(lesson *models.Lesson) string {
	return "/courses/" + lesson.CoursePublicID + "/"
}
