package session

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

// StudySession is a scheduled group study slot members can sign up for.
type StudySession struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"` // UTC
	EndsAt      time.Time `json:"ends_at"`   // UTC
	Capacity    int       `json:"capacity"`  // 0 = unlimited
	Location    string    `json:"location"`  // room or meeting URL
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	SignupCount int `json:"signup_count"`
}

// Signup records one member's attendance intent; unique per (user, session).
type Signup struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *StudySession) Started(now time.Time) bool {
	return !now.Before(s.StartsAt)
}

func (s *StudySession) Full() bool {
	return s.Capacity > 0 && s.SignupCount >= s.Capacity
}

type NewStudySession struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
	Location    string    `json:"location"`
}

func (ns *NewStudySession) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Location = core.CleanString(ns.Location)
	return validate.Struct(ns)
}

type UpdateStudySession struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    *int       `json:"capacity"`
	Location    string     `json:"location"`
}

func (us *UpdateStudySession) Validate(orig StudySession, validate *validator.Validate) error {
	if title := core.CleanString(us.Title); title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	if us.Description == "" {
		us.Description = orig.Description
	}
	if loc := core.CleanString(us.Location); loc == "" {
		us.Location = orig.Location
	}
	return validate.Struct(us)
}
