// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/courses/internal/database"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestEmail creates a test email in the database.
func NewTestEmail(t *testing.T, repo *repository.Repository, address string) *models.Email {
	t.Helper()
	email, err := repo.FindOrCreateEmail(context.Background(), address, time.Now().UTC())
	require.NoError(t, err)
	return email
}

// NewTestCourse creates a test course with the given public id and status.
// Courses require a verified email unless changed afterwards.
func NewTestCourse(t *testing.T, repo *repository.Repository, publicID string, status models.PublishStatus) *models.Course {
	t.Helper()
	course := &models.Course{
		PublicID:    publicID,
		Title:       "Course " + publicID,
		Description: "Description of " + publicID,
		Access:      models.AccessEmailRequired,
		Status:      status,
	}
	require.NoError(t, repo.CreateCourse(context.Background(), course))
	return course
}

// NewTestLesson creates a test lesson with a video in the given course.
func NewTestLesson(t *testing.T, repo *repository.Repository, courseID int64, publicID string, status models.PublishStatus) *models.Lesson {
	t.Helper()
	lesson := &models.Lesson{
		CourseID:      courseID,
		PublicID:      publicID,
		Title:         "Lesson " + publicID,
		VideoPublicID: "videos/" + publicID,
		Status:        status,
	}
	require.NoError(t, repo.CreateLesson(context.Background(), lesson))
	return lesson
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	return req
}
