package announce

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

type Announcement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	PublishedAt *time.Time `json:"published_at"` // nil = draft
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (a *Announcement) Published() bool {
	return a.PublishedAt != nil && !a.PublishedAt.After(time.Now().UTC())
}

type NewAnnouncement struct {
	Title   string `json:"title" validate:"required"`
	Body    string `json:"body" validate:"required"`
	Publish bool   `json:"publish"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

type UpdateAnnouncement struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Publish *bool  `json:"publish"`
}

func (ua *UpdateAnnouncement) Validate(orig Announcement, validate *validator.Validate) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	if ua.Body == "" {
		ua.Body = orig.Body
	}
	return validate.Struct(ua)
}
