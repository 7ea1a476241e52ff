// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package courses

import (
	"context"
	"fmt"
	"slices"
	"time"

	"codeberg.org/oliverandrich/courses/internal/metrics"
	"codeberg.org/oliverandrich/courses/internal/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WrapStoreWithCache puts an expiring LRU cache in front of the catalogue
// reads of next. Writes through the returned store purge the cache. A
// non-positive size or ttl returns next unchanged.
func WrapStoreWithCache(next Store, size int, ttl time.Duration) Store {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &cachedStore{
		next:    next,
		courses: expirable.NewLRU[string, models.Course](size, nil, ttl),
		lists:   expirable.NewLRU[string, []models.Course](size, nil, ttl),
		lessons: expirable.NewLRU[string, []models.Lesson](size, nil, ttl),
	}
}

type cachedStore struct {
	next    Store
	courses *expirable.LRU[string, models.Course]
	lists   *expirable.LRU[string, []models.Course]
	lessons *expirable.LRU[string, []models.Lesson]
}

func (s *cachedStore) CreateCourse(ctx context.Context, course *models.Course) error {
	defer s.purge()
	return s.next.CreateCourse(ctx, course)
}

func (s *cachedStore) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	defer s.purge()
	return s.next.CreateLesson(ctx, lesson)
}

func (s *cachedStore) GetCourseByPublicID(ctx context.Context, publicID string) (*models.Course, error) {
	if course, ok := s.courses.Get(publicID); ok {
		hit()
		return &course, nil
	}
	miss()
	course, err := s.next.GetCourseByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	s.courses.Add(publicID, *course)
	return course, nil
}

func (s *cachedStore) ListCoursesByStatus(ctx context.Context, status models.PublishStatus, limit int) ([]models.Course, error) {
	key := fmt.Sprintf("%s/%d", status, limit)
	if list, ok := s.lists.Get(key); ok {
		hit()
		return slices.Clone(list), nil
	}
	miss()
	list, err := s.next.ListCoursesByStatus(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	s.lists.Add(key, slices.Clone(list))
	return list, nil
}

func (s *cachedStore) ListLessons(ctx context.Context, courseID int64, statuses ...models.PublishStatus) ([]models.Lesson, error) {
	key := fmt.Sprintf("%d/%v", courseID, statuses)
	if list, ok := s.lessons.Get(key); ok {
		hit()
		return slices.Clone(list), nil
	}
	miss()
	list, err := s.next.ListLessons(ctx, courseID, statuses...)
	if err != nil {
		return nil, err
	}
	s.lessons.Add(key, slices.Clone(list))
	return list, nil
}

// GetLesson is not cached; lesson pages are served one at a time.
func (s *cachedStore) GetLesson(ctx context.Context, courseID int64, lessonPublicID string, statuses ...models.PublishStatus) (*models.Lesson, error) {
	return s.next.GetLesson(ctx, courseID, lessonPublicID, statuses...)
}

func (s *cachedStore) purge() {
	s.courses.Purge()
	s.lists.Purge()
	s.lessons.Purge()
}

func hit()  { metrics.CatalogueCacheLookups.WithLabelValues("hit").Inc() }
func miss() { metrics.CatalogueCacheLookups.WithLabelValues("miss").Inc() }
