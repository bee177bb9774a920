package pgdb

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/upload"
)

type uploadedFileRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	Name        string       `db:"name"`
	Key         string       `db:"key"`
	URL         string       `db:"url"`
	ContentType string       `db:"content_type"`
	Size        int64        `db:"size"`
	CreatedAt   sql.NullTime `db:"created_at"`
}

func (r uploadedFileRow) toUploadedFile() upload.UploadedFile {
	return upload.UploadedFile{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Key:         r.Key,
		URL:         r.URL,
		ContentType: r.ContentType,
		Size:        r.Size,
		CreatedAt:   r.CreatedAt.Time,
	}
}

type uploadedFileRepository struct {
	db *sqlx.DB
}

var _ upload.Repository = (*uploadedFileRepository)(nil) // interface compliance check

func NewUploadedFileRepository(db *sqlx.DB) *uploadedFileRepository {
	return &uploadedFileRepository{db: db}
}

func (repo *uploadedFileRepository) selectFiles() sq.SelectBuilder {
	return psql.
		Select("id", "user_id", "name", "key", "url", "content_type", "size", "created_at").
		From("uploaded_files")
}

func (repo *uploadedFileRepository) CreateUploadedFile(ctx context.Context, uf upload.UploadedFile) (upload.UploadedFile, error) {
	if uf.ID == "" {
		uf.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("uploaded_files").
		Columns("id", "user_id", "name", "key", "url", "content_type", "size", "created_at").
		Values(uf.ID, uf.UserID, uf.Name, uf.Key, uf.URL, uf.ContentType, uf.Size, uf.CreatedAt).
		ToSql()
	if err != nil {
		return upload.UploadedFile{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return upload.UploadedFile{}, errors.Wrap(err, "creating uploaded file")
	}
	return uf, nil
}

func (repo *uploadedFileRepository) QueryUploadedFiles(ctx context.Context, userID string, ordering []core.DBOrdering) ([]upload.UploadedFile, error) {
	b := repo.selectFiles()
	if userID != "" {
		b = b.Where(sq.Eq{"user_id": userID})
	}
	query, args, err := orderBy(b, ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []uploadedFileRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying uploaded files")
	}
	files := make([]upload.UploadedFile, len(rows))
	for i, row := range rows {
		files[i] = row.toUploadedFile()
	}
	return files, nil
}

func (repo *uploadedFileRepository) GetUploadedFileByID(ctx context.Context, id string) (upload.UploadedFile, error) {
	query, args, err := repo.selectFiles().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return upload.UploadedFile{}, errors.Wrap(err, "building query")
	}
	var row uploadedFileRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return upload.UploadedFile{}, upload.ErrNotFound
		}
		return upload.UploadedFile{}, errors.Wrap(err, "getting uploaded file")
	}
	return row.toUploadedFile(), nil
}

func (repo *uploadedFileRepository) DeleteUploadedFilesByID(ctx context.Context, ids ...string) (int, error) {
	return deleteByID(ctx, repo.db, "uploaded_files", ids)
}
