package pgdb

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/interview"
)

type interviewRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	ScheduledAt time.Time    `db:"scheduled_at"`
	Interviewer string       `db:"interviewer"`
	Note        string       `db:"note"`
	Status      string       `db:"status"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

func (r interviewRow) toInterview() interview.Interview {
	return interview.Interview{
		ID:          r.ID,
		UserID:      r.UserID,
		ScheduledAt: r.ScheduledAt,
		Interviewer: r.Interviewer,
		Note:        r.Note,
		Status:      interview.Status(r.Status),
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type interviewRepository struct {
	db *sqlx.DB
}

var _ interview.Repository = (*interviewRepository)(nil) // interface compliance check

func NewInterviewRepository(db *sqlx.DB) *interviewRepository {
	return &interviewRepository{db: db}
}

func (repo *interviewRepository) selectInterviews() sq.SelectBuilder {
	return psql.
		Select("id", "user_id", "scheduled_at", "interviewer", "note", "status", "created_at", "updated_at").
		From("interviews")
}

func (repo *interviewRepository) CreateInterview(ctx context.Context, itv interview.Interview) (interview.Interview, error) {
	if itv.ID == "" {
		itv.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("interviews").
		Columns("id", "user_id", "scheduled_at", "interviewer", "note", "status", "created_at", "updated_at").
		Values(itv.ID, itv.UserID, itv.ScheduledAt, itv.Interviewer, itv.Note, string(itv.Status), itv.CreatedAt, itv.UpdatedAt).
		ToSql()
	if err != nil {
		return interview.Interview{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return interview.Interview{}, errors.Wrap(err, "creating interview")
	}
	return itv, nil
}

func (repo *interviewRepository) QueryInterviews(ctx context.Context, userID string, ordering []core.DBOrdering) ([]interview.Interview, error) {
	b := repo.selectInterviews()
	if userID != "" {
		b = b.Where(sq.Eq{"user_id": userID})
	}
	query, args, err := orderBy(b, ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []interviewRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying interviews")
	}
	itvs := make([]interview.Interview, len(rows))
	for i, row := range rows {
		itvs[i] = row.toInterview()
	}
	return itvs, nil
}

func (repo *interviewRepository) GetInterviewByID(ctx context.Context, id string) (interview.Interview, error) {
	query, args, err := repo.selectInterviews().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return interview.Interview{}, errors.Wrap(err, "building query")
	}
	var row interviewRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return interview.Interview{}, interview.ErrNotFound
		}
		return interview.Interview{}, errors.Wrap(err, "getting interview")
	}
	return row.toInterview(), nil
}

func (repo *interviewRepository) UpdateInterview(ctx context.Context, itv interview.Interview) (interview.Interview, error) {
	query, args, err := psql.
		Update("interviews").
		Set("scheduled_at", itv.ScheduledAt).
		Set("interviewer", itv.Interviewer).
		Set("note", itv.Note).
		Set("status", string(itv.Status)).
		Set("updated_at", itv.UpdatedAt).
		Where(sq.Eq{"id": itv.ID}).
		ToSql()
	if err != nil {
		return interview.Interview{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return interview.Interview{}, errors.Wrap(err, "updating interview")
	}
	return itv, nil
}
