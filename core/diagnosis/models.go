package diagnosis

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

// Status is the diagnosis request lifecycle state. Every transition site
// switches exhaustively on it so an unknown value cannot slip through.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the sweep should leave the request alone.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending, StatusProcessing:
		return false
	}
	return false
}

// Request tracks one submitted external-service URL for one user.
type Request struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	URL           string     `json:"url"`
	Status        Status     `json:"status"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	DiagnosisID   string     `json:"diagnosis_id,omitempty"`
	CheckCount    int        `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Diagnosis is the durable result record, created at most once per request.
type Diagnosis struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	RequestID       string          `json:"request_id"`
	PersonalityType string          `json:"personality_type,omitempty"`
	SkillMap        json.RawMessage `json:"skill_map,omitempty"`
	Strengths       json.RawMessage `json:"strengths,omitempty"`
	Weaknesses      json.RawMessage `json:"weaknesses,omitempty"`
	Recommendations json.RawMessage `json:"recommendations,omitempty"`
	PDFURL          string          `json:"pdf_url,omitempty"`
	Comment         string          `json:"comment,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type NewRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.URL = core.CleanString(nr.URL)
	if err := validate.Struct(nr); err != nil {
		return err
	}
	u, err := url.Parse(nr.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "url", Error: "must be a valid http(s) URL"})
	}
	return nil
}

type CheckRequest struct {
	DiagnosisURLID string `json:"diagnosisUrlId" validate:"required"`
}

func (cr *CheckRequest) Validate(validate *validator.Validate) error {
	cr.DiagnosisURLID = core.CleanString(cr.DiagnosisURLID)
	return validate.Struct(cr)
}

// SweepResult is the summary returned to the sweep caller.
type SweepResult struct {
	Success      bool `json:"success"`
	Checked      int  `json:"checked"`
	SuccessCount int  `json:"successCount"`
	FailureCount int  `json:"failureCount"`
}
