// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// PublishStatus is the visibility of a course or lesson.
type PublishStatus string

const (
	StatusPublished  PublishStatus = "publish"
	StatusComingSoon PublishStatus = "soon"
	StatusDraft      PublishStatus = "draft"
)

// AccessRequirement says who may watch a course's lessons.
type AccessRequirement string

const (
	AccessAnyone        AccessRequirement = "any"
	AccessEmailRequired AccessRequirement = "email"
)

// Course is a collection of lessons.
type Course struct { //nolint:govet // fieldalignment not critical for models
	ID            int64             `db:"id" json:"id"`
	PublicID      string            `db:"public_id" json:"public_id"`
	Title         string            `db:"title" json:"title"`
	Description   string            `db:"description" json:"description"`
	ImagePublicID string            `db:"image_public_id" json:"image_public_id"`
	Access        AccessRequirement `db:"access" json:"access"`
	Status        PublishStatus     `db:"status" json:"status"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// IsPublished reports whether the course is visible to visitors.
func (c *Course) IsPublished() bool {
	return c.Status == StatusPublished
}

// Path is the course detail URL.
func (c *Course) Path() string {
	return "/courses/" + c.PublicID + "/"
}

// Lesson belongs to a course. The embedded course fields are only populated
// by queries that join the parent course.
type Lesson struct { //nolint:govet // fieldalignment not critical for models
	ID                int64         `db:"id" json:"id"`
	CourseID          int64         `db:"course_id" json:"course_id"`
	PublicID          string        `db:"public_id" json:"public_id"`
	Title             string        `db:"title" json:"title"`
	Description       string        `db:"description" json:"description"`
	ThumbnailPublicID string        `db:"thumbnail_public_id" json:"thumbnail_public_id"`
	VideoPublicID     string        `db:"video_public_id" json:"video_public_id"`
	SortOrder         int           `db:"sort_order" json:"sort_order"`
	CanPreview        bool          `db:"can_preview" json:"can_preview"`
	Status            PublishStatus `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`

	CoursePublicID string            `db:"course_public_id" json:"course_public_id"`
	CourseTitle    string            `db:"course_title" json:"course_title"`
	CourseAccess   AccessRequirement `db:"course_access" json:"-"`
}

// IsComingSoon reports whether the lesson is announced but not yet available.
func (l *Lesson) IsComingSoon() bool {
	return l.Status == StatusComingSoon
}

// HasVideo reports whether a video has been uploaded for the lesson.
func (l *Lesson) HasVideo() bool {
	return l.VideoPublicID != ""
}

// RequiresEmail reports whether a verified email is needed to watch the lesson.
// Preview lessons are open to everyone.
func (l *Lesson) RequiresEmail() bool {
	return l.CourseAccess == AccessEmailRequired && !l.CanPreview
}

// Path is the lesson detail URL.
func (l *Lesson) Path() string {
	return "/courses/" + l.CoursePublicID + "/lessons/" + l.PublicID + "/"
}
