package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/upload"
)

type uploadedFileRepository struct {
	db *DB
}

var _ upload.Repository = (*uploadedFileRepository)(nil) // interface compliance check

func NewUploadedFileRepository(db *DB) *uploadedFileRepository {
	return &uploadedFileRepository{db: db}
}

func (repo *uploadedFileRepository) CreateUploadedFile(ctx context.Context, uf upload.UploadedFile) (upload.UploadedFile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if uf.ID == "" {
		uf.ID = uuid.NewString()
	}
	repo.db.files[uf.ID] = &uf
	return uf, nil
}

func (repo *uploadedFileRepository) QueryUploadedFiles(ctx context.Context, userID string, ordering []core.DBOrdering) ([]upload.UploadedFile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var files []upload.UploadedFile
	for _, uf := range repo.db.files {
		if userID != "" && uf.UserID != userID {
			continue
		}
		files = append(files, *uf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

func (repo *uploadedFileRepository) GetUploadedFileByID(ctx context.Context, id string) (upload.UploadedFile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if uf, ok := repo.db.files[id]; ok {
		return *uf, nil
	}
	return upload.UploadedFile{}, upload.ErrNotFound
}

func (repo *uploadedFileRepository) DeleteUploadedFilesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.files[id]; ok {
			delete(repo.db.files, id)
			n++
		}
	}
	return n, nil
}
