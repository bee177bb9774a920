package roadmap

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

// Roadmap is a member's personal growth plan; exactly one per user,
// created lazily on first access.
type Roadmap struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Milestones []Milestone `json:"milestones"`
}

type Milestone struct {
	ID        string     `json:"id"`
	RoadmapID string     `json:"roadmap_id"`
	Title     string     `json:"title"`
	Detail    string     `json:"detail"`
	DueAt     *time.Time `json:"due_at"`
	Done      bool       `json:"done"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type UpdateRoadmap struct {
	Title string `json:"title"`
	Note  string `json:"note"`
}

func (ur *UpdateRoadmap) Validate(orig Roadmap, validate *validator.Validate) error {
	if title := core.CleanString(ur.Title); title != "" {
		ur.Title = title
	} else {
		ur.Title = orig.Title
	}
	if ur.Note == "" {
		ur.Note = orig.Note
	}
	return validate.Struct(ur)
}

type NewMilestone struct {
	Title    string     `json:"title" validate:"required"`
	Detail   string     `json:"detail"`
	DueAt    *time.Time `json:"due_at"`
	Position int        `json:"position" validate:"gte=0"`
}

func (nm *NewMilestone) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

type UpdateMilestone struct {
	Title    string     `json:"title"`
	Detail   string     `json:"detail"`
	DueAt    *time.Time `json:"due_at"`
	Done     *bool      `json:"done"`
	Position *int       `json:"position"`
}

func (um *UpdateMilestone) Validate(orig Milestone, validate *validator.Validate) error {
	if title := core.CleanString(um.Title); title != "" {
		um.Title = title
	} else {
		um.Title = orig.Title
	}
	if um.Detail == "" {
		um.Detail = orig.Detail
	}
	return validate.Struct(um)
}
