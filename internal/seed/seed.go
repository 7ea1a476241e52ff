// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package seed loads course catalogues from TOML into the database.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/courses/internal/models"
	"codeberg.org/oliverandrich/courses/internal/repository"
	"codeberg.org/oliverandrich/courses/internal/services/courses"
	"github.com/BurntSushi/toml"
)

//go:embed demo.toml
var demoData []byte

// Catalogue is a set of courses to create.
type Catalogue struct {
	Courses []Course `toml:"course"`
}

// Course describes one course and its lessons.
type Course struct {
	PublicID    string   `toml:"public_id"`
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Image       string   `toml:"image"`
	Access      string   `toml:"access"`
	Status      string   `toml:"status"`
	Lessons     []Lesson `toml:"lesson"`
}

// Lesson describes one lesson. Lessons keep the order they are listed in.
type Lesson struct {
	PublicID    string `toml:"public_id"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Thumbnail   string `toml:"thumbnail"`
	Video       string `toml:"video"`
	Preview     bool   `toml:"preview"`
	Status      string `toml:"status"`
}

// Store looks up existing courses so seeding can be repeated.
type Store interface {
	GetCourseByPublicID(ctx context.Context, publicID string) (*models.Course, error)
}

// Parse decodes a TOML catalogue and checks its enum values.
func Parse(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if _, err := toml.Decode(string(data), &cat); err != nil {
		return nil, fmt.Errorf("decoding catalogue: %w", err)
	}
	for _, c := range cat.Courses {
		if err := checkValues(c); err != nil {
			return nil, err
		}
	}
	return &cat, nil
}

// ParseFile decodes a TOML catalogue from disk.
func ParseFile(path string) (*Catalogue, error) {
	var cat Catalogue
	if _, err := toml.DecodeFile(path, &cat); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	for _, c := range cat.Courses {
		if err := checkValues(c); err != nil {
			return nil, err
		}
	}
	return &cat, nil
}

// Demo returns the built-in demo catalogue.
func Demo() (*Catalogue, error) {
	return Parse(demoData)
}

// Apply creates every course of cat whose public id does not exist yet and
// returns the number of courses created.
func Apply(ctx context.Context, svc *courses.Service, store Store, cat *Catalogue) (int, error) {
	created := 0
	for _, c := range cat.Courses {
		if c.PublicID != "" {
			_, err := store.GetCourseByPublicID(ctx, c.PublicID)
			if err == nil {
				slog.Info("course exists, skipping", "public_id", c.PublicID)
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return created, err
			}
		}

		course := &models.Course{
			PublicID:      c.PublicID,
			Title:         c.Title,
			Description:   c.Description,
			ImagePublicID: c.Image,
			Access:        models.AccessRequirement(c.Access),
			Status:        models.PublishStatus(c.Status),
		}
		if err := svc.CreateCourse(ctx, course); err != nil {
			return created, fmt.Errorf("creating course %q: %w", c.Title, err)
		}

		for i, l := range c.Lessons {
			lesson := &models.Lesson{
				CourseID:          course.ID,
				PublicID:          l.PublicID,
				Title:             l.Title,
				Description:       l.Description,
				ThumbnailPublicID: l.Thumbnail,
				VideoPublicID:     l.Video,
				SortOrder:         i,
				CanPreview:        l.Preview,
				Status:            models.PublishStatus(l.Status),
			}
			if err := svc.CreateLesson(ctx, lesson); err != nil {
				return created, fmt.Errorf("creating lesson %q: %w", l.Title, err)
			}
		}

		slog.Info("course created", "public_id", course.PublicID, "lessons", len(c.Lessons))
		created++
	}
	return created, nil
}

func checkValues(c Course) error {
	switch models.AccessRequirement(c.Access) {
	case "", models.AccessAnyone, models.AccessEmailRequired:
	default:
		return fmt.Errorf("course %q: unknown access %q", c.Title, c.Access)
	}
	if err := checkStatus(c.Status); err != nil {
		return fmt.Errorf("course %q: %w", c.Title, err)
	}
	for _, l := range c.Lessons {
		if err := checkStatus(l.Status); err != nil {
			return fmt.Errorf("lesson %q: %w", l.Title, err)
		}
	}
	return nil
}

func checkStatus(status string) error {
	switch models.PublishStatus(status) {
	case "", models.StatusPublished, models.StatusComingSoon, models.StatusDraft:
		return nil
	}
	return fmt.Errorf("unknown status %q", status)
}
