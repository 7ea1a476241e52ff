// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

//go:generate templ generate

import (
	"codeberg.org/oliverandrich/courses/internal/models"
	"github.com/a-h/templ"
)

// EmailForm is the state of the email verification form.
type EmailForm struct {
	Email   string
	Error   string // validation or delivery problem
	Message string // confirmation after a verification mail was issued
}

// CourseCard is a course with its resolved thumbnail URL.
type CourseCard struct {
	Course   models.Course
	ImageURL string
}

// LessonItem is a lesson with its resolved thumbnail URL.
type LessonItem struct {
	Lesson       models.Lesson
	ThumbnailURL string
}

// CourseDetailView is everything the course page shows.
type CourseDetailView struct {
	Course   *models.Course
	ImageURL string
	Lessons  []LessonItem
}

// LessonView is a playable lesson.
type LessonView struct {
	Lesson *models.Lesson
	Video  templ.Component
}
