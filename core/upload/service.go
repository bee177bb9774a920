package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

var ErrNotFound = errors.New("file not found")

type (
	// Storage abstracts the blob backend (S3 or local disk).
	Storage interface {
		// Save writes the blob and returns its public URL.
		Save(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
		Delete(ctx context.Context, key string) error
	}

	Repository interface {
		CreateUploadedFile(ctx context.Context, uf UploadedFile) (UploadedFile, error)
		QueryUploadedFiles(ctx context.Context, userID string, ordering []core.DBOrdering) ([]UploadedFile, error)
		GetUploadedFileByID(ctx context.Context, id string) (UploadedFile, error)
		DeleteUploadedFilesByID(ctx context.Context, ids ...string) (int, error)
	}

	ServiceInterface interface {
		Upload(ctx context.Context, userID string, nu NewUpload, body io.Reader) (UploadedFile, error)
		QueryOwn(ctx context.Context, userID string) ([]UploadedFile, error)
		GetByID(ctx context.Context, id string) (UploadedFile, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo    Repository
		storage Storage
		logger  core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, storage Storage, logger core.Logger) *service {
	return &service{
		repo:    repo,
		storage: storage,
		logger:  logger,
	}
}

func (svc *service) Upload(ctx context.Context, userID string, nu NewUpload, body io.Reader) (UploadedFile, error) {
	key := fmt.Sprintf("uploads/%s/%s%s", userID, uuid.NewString(), nu.SafeExt())
	url, err := svc.storage.Save(ctx, key, nu.ContentType, body)
	if err != nil {
		return UploadedFile{}, errors.Wrap(err, "saving blob")
	}

	uf := UploadedFile{
		UserID:      userID,
		Name:        nu.Name,
		Key:         key,
		URL:         url,
		ContentType: nu.ContentType,
		Size:        nu.Size,
		CreatedAt:   time.Now().UTC(),
	}
	uf, err = svc.repo.CreateUploadedFile(ctx, uf)
	if err != nil {
		// best effort; the record is the source of truth
		if derr := svc.storage.Delete(ctx, key); derr != nil {
			svc.logger.Warn("orphaned blob after failed upload record", "key", key, "error", derr)
		}
		return UploadedFile{}, err
	}
	return uf, nil
}

func (svc *service) QueryOwn(ctx context.Context, userID string) ([]UploadedFile, error) {
	return svc.repo.QueryUploadedFiles(ctx, userID, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) GetByID(ctx context.Context, id string) (UploadedFile, error) {
	return svc.repo.GetUploadedFileByID(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	uf, err := svc.repo.GetUploadedFileByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err = svc.repo.DeleteUploadedFilesByID(ctx, id); err != nil {
		return err
	}
	if err = svc.storage.Delete(ctx, uf.Key); err != nil {
		svc.logger.Warn("deleting blob", "key", uf.Key, "error", err)
	}
	return nil
}
