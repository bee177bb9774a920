package interview

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

// Status is the interview lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusDone      Status = "done"
	StatusCanceled  Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusDone, StatusCanceled:
		return true
	}
	return false
}

type Interview struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ScheduledAt time.Time `json:"scheduled_at"` // UTC
	Interviewer string    `json:"interviewer"`
	Note        string    `json:"note"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NewInterview struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Note        string    `json:"note"`
}

func (ni *NewInterview) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ni); err != nil {
		return err
	}
	if !ni.ScheduledAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "scheduled_at", Error: "must be in the future"})
	}
	return nil
}

type UpdateInterview struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Interviewer string     `json:"interviewer"`
	Note        string     `json:"note"`
	Status      Status     `json:"status"`
}

func (ui *UpdateInterview) Validate(orig Interview, validate *validator.Validate) error {
	if ui.Interviewer == "" {
		ui.Interviewer = orig.Interviewer
	}
	if ui.Note == "" {
		ui.Note = orig.Note
	}
	if ui.Status == "" {
		ui.Status = orig.Status
	} else if !ui.Status.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}
	return validate.Struct(ui)
}
