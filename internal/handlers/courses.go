// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"codeberg.org/oliverandrich/courses/internal/htmx"
	"codeberg.org/oliverandrich/courses/internal/media"
	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/services/courses"
	"codeberg.org/oliverandrich/courses/internal/templates"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// snippetSize is the number of courses in the htmx course snippet.
const snippetSize = 3

// CourseList renders the published courses. htmx fragment requests get a
// short snippet for embedding.
func (h *Handlers) CourseList(c echo.Context) error {
	htmx.Vary(c.Response())
	fragment := wantsFragment(c)

	limit := 0
	if fragment {
		limit = snippetSize
	}

	list, err := h.courses.PublishedCourses(c.Request().Context(), limit)
	if err != nil {
		return fmt.Errorf("listing courses: %w", err)
	}

	cards := lo.Map(list, func(course models.Course, _ int) templates.CourseCard {
		return templates.CourseCard{
			Course:   course,
			ImageURL: h.media.ImageURL(course.ImagePublicID, media.ThumbnailWidth),
		}
	})

	if fragment {
		return h.partial(c, http.StatusOK, templates.CourseSnippet(cards))
	}
	return h.page(c, http.StatusOK, templates.CourseList(cards))
}

// CourseDetail renders a published course with its lessons.
func (h *Handlers) CourseDetail(c echo.Context) error {
	ctx := c.Request().Context()

	course, err := h.courses.CourseDetail(ctx, c.Param("course_id"))
	if errors.Is(err, courses.ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading course: %w", err)
	}

	lessons, err := h.courses.CourseLessons(ctx, course)
	if err != nil {
		return fmt.Errorf("listing lessons: %w", err)
	}

	return h.page(c, http.StatusOK, templates.CourseDetail(templates.CourseDetailView{
		Course:   course,
		ImageURL: h.media.ImageURL(course.ImagePublicID, media.DetailWidth),
		Lessons: lo.Map(lessons, func(lesson models.Lesson, _ int) templates.LessonItem {
			return templates.LessonItem{
				Lesson:       lesson,
				ThumbnailURL: h.media.ImageURL(lesson.ThumbnailPublicID, media.ThumbnailWidth),
			}
		}),
	}))
}

// LessonDetail renders a lesson. Gated lessons ask anonymous visitors for an
// email address and remember the lesson as the place to return to.
func (h *Handlers) LessonDetail(c echo.Context) error {
	lesson, err := h.courses.LessonDetail(c.Request().Context(), c.Param("course_id"), c.Param("lesson_id"))
	if errors.Is(err, courses.ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading lesson: %w", err)
	}

	if lesson.RequiresEmail() && visitor(c) == nil {
		h.session(c).NextURL = c.Request().URL.Path
		return h.page(c, http.StatusOK, templates.EmailRequired(lesson, templates.EmailForm{}))
	}

	if lesson.IsComingSoon() || !lesson.HasVideo() {
		return h.page(c, http.StatusOK, templates.ComingSoon(lesson))
	}

	return h.page(c, http.StatusOK, templates.LessonPage(templates.LessonView{
		Lesson: lesson,
		Video:  media.Video(h.videoURL(lesson), true, false),
	}))
}

// videoURL signs gated videos when a secret is configured.
func (h *Handlers) videoURL(lesson *models.Lesson) string {
	return h.media.VideoURL(lesson.VideoPublicID, media.VideoOptions{
		Width:   media.LessonVideoWidth,
		SignURL: lesson.RequiresEmail() && h.media.CanSign(),
	})
}
