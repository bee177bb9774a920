package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublished bool      `json:"is_published"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC

	Chapters []Chapter `json:"chapters,omitempty"`
}

type Chapter struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completion marks a chapter as done by a user; unique per (user, chapter).
type Completion struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ChapterID   string    `json:"chapter_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Progress reports a user's completion state for one course.
type Progress struct {
	CourseID  string `json:"course_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
	Position    int    `json:"position" validate:"gte=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublished *bool  `json:"is_published"`
	Position    *int   `json:"position"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	return validate.Struct(uc)
}

type NewChapter struct {
	Title    string `json:"title" validate:"required"`
	Body     string `json:"body"`
	Position int    `json:"position" validate:"gte=0"`
}

func (nc *NewChapter) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type UpdateChapter struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Position *int   `json:"position"`
}

func (uc *UpdateChapter) Validate(orig Chapter, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if uc.Body == "" {
		uc.Body = orig.Body
	}
	return validate.Struct(uc)
}
