package consult

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

// Status is the consultation lifecycle state.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAnswered Status = "answered"
	StatusClosed   Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAnswered, StatusClosed:
		return true
	}
	return false
}

// Consultation is a member's written question to the coaching staff.
type Consultation struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Topic      string     `json:"topic"`
	Body       string     `json:"body"`
	Status     Status     `json:"status"`
	Answer     string     `json:"answer"`
	AnsweredAt *time.Time `json:"answered_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type NewConsultation struct {
	Topic string `json:"topic" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

func (nc *NewConsultation) Validate(validate *validator.Validate) error {
	nc.Topic = core.CleanString(nc.Topic)
	return validate.Struct(nc)
}

// AnswerConsultation is the staff-side reply payload.
type AnswerConsultation struct {
	Answer string `json:"answer"`
	Close  bool   `json:"close"`
}

func (ac *AnswerConsultation) Validate(validate *validator.Validate) error {
	if ac.Answer == "" && !ac.Close {
		return core.NewValidationError(nil, core.FieldError{Field: "answer", Error: "this field is required"})
	}
	return validate.Struct(ac)
}
