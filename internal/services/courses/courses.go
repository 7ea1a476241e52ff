// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package courses serves the published course catalogue.
package courses

import (
	"context"
	"errors"
	"strings"

	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"github.com/google/uuid"
)

// ErrNotFound is returned for courses and lessons that do not exist or are
// not visible to visitors.
var ErrNotFound = errors.New("not found")

// ErrTitleRequired is returned when creating a course or lesson without title.
var ErrTitleRequired = errors.New("title is required")

// visibleLessons are the lesson states listed on a course page.
var visibleLessons = []models.PublishStatus{models.StatusPublished, models.StatusComingSoon}

// Store is the persistence the catalogue needs.
type Store interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourseByPublicID(ctx context.Context, publicID string) (*models.Course, error)
	ListCoursesByStatus(ctx context.Context, status models.PublishStatus, limit int) ([]models.Course, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	ListLessons(ctx context.Context, courseID int64, statuses ...models.PublishStatus) ([]models.Lesson, error)
	GetLesson(ctx context.Context, courseID int64, lessonPublicID string, statuses ...models.PublishStatus) (*models.Lesson, error)
}

// Service provides read access to published courses and lessons.
type Service struct {
	store Store
}

// NewService creates a catalogue service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// PublishedCourses returns published courses, newest first. A limit of zero
// returns all of them.
func (s *Service) PublishedCourses(ctx context.Context, limit int) ([]models.Course, error) {
	return s.store.ListCoursesByStatus(ctx, models.StatusPublished, limit)
}

// CourseDetail returns a published course by public id.
func (s *Service) CourseDetail(ctx context.Context, publicID string) (*models.Course, error) {
	if publicID == "" {
		return nil, ErrNotFound
	}
	course, err := s.store.GetCourseByPublicID(ctx, publicID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !course.IsPublished() {
		return nil, ErrNotFound
	}
	return course, nil
}

// CourseLessons returns the published and upcoming lessons of a published
// course. Unpublished courses have no visible lessons.
func (s *Service) CourseLessons(ctx context.Context, course *models.Course) ([]models.Lesson, error) {
	if course == nil || !course.IsPublished() {
		return nil, nil
	}
	return s.store.ListLessons(ctx, course.ID, visibleLessons...)
}

// LessonDetail returns a published or upcoming lesson of a published course.
func (s *Service) LessonDetail(ctx context.Context, coursePublicID, lessonPublicID string) (*models.Lesson, error) {
	course, err := s.CourseDetail(ctx, coursePublicID)
	if err != nil {
		return nil, err
	}
	if lessonPublicID == "" {
		return nil, ErrNotFound
	}

	lesson, err := s.store.GetLesson(ctx, course.ID, lessonPublicID, visibleLessons...)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

// CreateCourse stores a new course. Missing public ids are generated and
// unset access and status get their defaults.
func (s *Service) CreateCourse(ctx context.Context, course *models.Course) error {
	course.Title = strings.TrimSpace(course.Title)
	if course.Title == "" {
		return ErrTitleRequired
	}
	if course.PublicID == "" {
		course.PublicID = uuid.NewString()
	}
	if course.Access == "" {
		course.Access = models.AccessEmailRequired
	}
	if course.Status == "" {
		course.Status = models.StatusDraft
	}
	return s.store.CreateCourse(ctx, course)
}

// CreateLesson stores a new lesson of an existing course.
func (s *Service) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	lesson.Title = strings.TrimSpace(lesson.Title)
	if lesson.Title == "" {
		return ErrTitleRequired
	}
	if lesson.PublicID == "" {
		lesson.PublicID = uuid.NewString()
	}
	if lesson.Status == "" {
		lesson.Status = models.StatusPublished
	}
	return s.store.CreateLesson(ctx, lesson)
}
