package pgdb

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/announce"
)

type announcementRow struct {
	ID          string       `db:"id"`
	Title       string       `db:"title"`
	Body        string       `db:"body"`
	PublishedAt sql.NullTime `db:"published_at"`
	CreatedBy   string       `db:"created_by"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

func (r announcementRow) toAnnouncement() announce.Announcement {
	ann := announce.Announcement{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time
		ann.PublishedAt = &t
	}
	return ann
}

type announcementRepository struct {
	db *sqlx.DB
}

var _ announce.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) selectAnnouncements() sq.SelectBuilder {
	return psql.
		Select("id", "title", "body", "published_at", "created_by", "created_at", "updated_at").
		From("announcements")
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	if ann.ID == "" {
		ann.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("announcements").
		Columns("id", "title", "body", "published_at", "created_by", "created_at", "updated_at").
		Values(ann.ID, ann.Title, ann.Body, ann.PublishedAt, ann.CreatedBy, ann.CreatedAt, ann.UpdatedAt).
		ToSql()
	if err != nil {
		return announce.Announcement{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return announce.Announcement{}, errors.Wrap(err, "creating announcement")
	}
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, publishedOnly bool, ordering []core.DBOrdering) ([]announce.Announcement, error) {
	b := repo.selectAnnouncements()
	if publishedOnly {
		b = b.Where(sq.Expr("published_at IS NOT NULL AND published_at <= NOW()"))
	}
	query, args, err := orderBy(b, ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []announcementRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	anns := make([]announce.Announcement, len(rows))
	for i, row := range rows {
		anns[i] = row.toAnnouncement()
	}
	return anns, nil
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (announce.Announcement, error) {
	query, args, err := repo.selectAnnouncements().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return announce.Announcement{}, errors.Wrap(err, "building query")
	}
	var row announcementRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return announce.Announcement{}, announce.ErrNotFound
		}
		return announce.Announcement{}, errors.Wrap(err, "getting announcement")
	}
	return row.toAnnouncement(), nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	query, args, err := psql.
		Update("announcements").
		Set("title", ann.Title).
		Set("body", ann.Body).
		Set("published_at", ann.PublishedAt).
		Set("updated_at", ann.UpdatedAt).
		Where(sq.Eq{"id": ann.ID}).
		ToSql()
	if err != nil {
		return announce.Announcement{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return announce.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	return ann, nil
}

func (repo *announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids ...string) (int, error) {
	return deleteByID(ctx, repo.db, "announcements", ids)
}
