// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/courses/internal/models"
	"github.com/vinovest/sqlx"
)

const courseColumns = `id, public_id, title, description, image_public_id, access, status, created_at, updated_at`

const lessonSelect = `SELECT l.id, l.course_id, l.public_id, l.title, l.description,
	l.thumbnail_public_id, l.video_public_id, l.sort_order, l.can_preview, l.status,
	l.created_at, l.updated_at,
	c.public_id AS course_public_id, c.title AS course_title, c.access AS course_access
	FROM lessons l JOIN courses c ON c.id = l.course_id`

// CreateCourse inserts a course and fills in its ID and timestamps.
func (r *Repository) CreateCourse(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (public_id, title, description, image_public_id, access, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		course.PublicID, course.Title, course.Description, course.ImagePublicID,
		string(course.Access), string(course.Status), now, now)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	course.ID = id
	course.CreatedAt = now
	course.UpdatedAt = now
	return nil
}

// GetCourseByPublicID retrieves a course by its public id, whatever its status.
func (r *Repository) GetCourseByPublicID(ctx context.Context, publicID string) (*models.Course, error) {
	var course models.Course
	err := r.db.GetContext(ctx, &course,
		`SELECT `+courseColumns+` FROM courses WHERE public_id = ?`, publicID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &course, nil
}

// ListCoursesByStatus returns courses with the given status, newest first.
// A limit of zero or less returns all of them.
func (r *Repository) ListCoursesByStatus(ctx context.Context, status models.PublishStatus, limit int) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE status = ? ORDER BY updated_at DESC, id DESC`
	args := []any{string(status)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, err
	}
	return courses, nil
}

// CreateLesson inserts a lesson and fills in its ID and timestamps.
func (r *Repository) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO lessons (course_id, public_id, title, description, thumbnail_public_id,
		 video_public_id, sort_order, can_preview, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lesson.CourseID, lesson.PublicID, lesson.Title, lesson.Description, lesson.ThumbnailPublicID,
		lesson.VideoPublicID, lesson.SortOrder, lesson.CanPreview, string(lesson.Status), now, now)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	lesson.ID = id
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	return nil
}

// ListLessons returns the lessons of a course whose status is one of statuses,
// ordered by sort order and then most recently updated.
func (r *Repository) ListLessons(ctx context.Context, courseID int64, statuses ...models.PublishStatus) ([]models.Lesson, error) {
	query := lessonSelect + ` WHERE l.course_id = ?`
	args := []any{courseID}
	query, args, err := appendStatusFilter(query, args, statuses)
	if err != nil {
		return nil, err
	}
	query += ` ORDER BY l.sort_order ASC, l.updated_at DESC, l.id ASC`

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, err
	}
	return lessons, nil
}

// GetLesson retrieves a lesson of a course by public ids. Lessons whose status
// is not one of statuses are treated as missing.
func (r *Repository) GetLesson(ctx context.Context, courseID int64, lessonPublicID string, statuses ...models.PublishStatus) (*models.Lesson, error) {
	query := lessonSelect + ` WHERE l.course_id = ? AND l.public_id = ?`
	args := []any{courseID, lessonPublicID}
	query, args, err := appendStatusFilter(query, args, statuses)
	if err != nil {
		return nil, err
	}

	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, args...); err != nil {
		return nil, wrapError(err)
	}
	return &lesson, nil
}

func appendStatusFilter(query string, args []any, statuses []models.PublishStatus) (string, []any, error) {
	if len(statuses) == 0 {
		return query, args, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	clause, inArgs, err := sqlx.In(` AND l.status IN (?)`, values)
	if err != nil {
		return "", nil, err
	}
	return query + clause, append(args, inArgs...), nil
}
