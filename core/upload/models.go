package upload

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/buddybow/backend/core"
)

// UploadedFile is the stored metadata of a user upload. The blob itself
// lives in the configured storage backend under Key.
type UploadedFile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"` // original file name
	Key         string    `json:"-"`    // storage backend key
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewUpload struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (nu *NewUpload) Validate(validate *validator.Validate, maxSize int64) error {
	nu.Name = filepath.Base(core.CleanString(nu.Name))
	if nu.Name == "." || nu.Name == string(filepath.Separator) {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "invalid file name"})
	}
	if maxSize > 0 && nu.Size > maxSize {
		return core.NewValidationError(nil, core.FieldError{Field: "size", Error: "file too large"})
	}
	if nu.ContentType == "" {
		nu.ContentType = "application/octet-stream"
	}
	return validate.Struct(nu)
}

// SafeExt returns the lowercased file extension, "" when none.
func (nu *NewUpload) SafeExt() string {
	return strings.ToLower(filepath.Ext(nu.Name))
}
