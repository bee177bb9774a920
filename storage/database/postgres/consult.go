package pgdb

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/consult"
)

type consultationRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Topic      string       `db:"topic"`
	Body       string       `db:"body"`
	Status     string       `db:"status"`
	Answer     string       `db:"answer"`
	AnsweredAt sql.NullTime `db:"answered_at"`
	CreatedAt  sql.NullTime `db:"created_at"`
	UpdatedAt  sql.NullTime `db:"updated_at"`
}

func (r consultationRow) toConsultation() consult.Consultation {
	cons := consult.Consultation{
		ID:        r.ID,
		UserID:    r.UserID,
		Topic:     r.Topic,
		Body:      r.Body,
		Status:    consult.Status(r.Status),
		Answer:    r.Answer,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if r.AnsweredAt.Valid {
		t := r.AnsweredAt.Time
		cons.AnsweredAt = &t
	}
	return cons
}

type consultationRepository struct {
	db *sqlx.DB
}

var _ consult.Repository = (*consultationRepository)(nil) // interface compliance check

func NewConsultationRepository(db *sqlx.DB) *consultationRepository {
	return &consultationRepository{db: db}
}

func (repo *consultationRepository) selectConsultations() sq.SelectBuilder {
	return psql.
		Select("id", "user_id", "topic", "body", "status", "answer", "answered_at", "created_at", "updated_at").
		From("consultations")
}

func (repo *consultationRepository) CreateConsultation(ctx context.Context, cons consult.Consultation) (consult.Consultation, error) {
	if cons.ID == "" {
		cons.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("consultations").
		Columns("id", "user_id", "topic", "body", "status", "answer", "answered_at", "created_at", "updated_at").
		Values(cons.ID, cons.UserID, cons.Topic, cons.Body, string(cons.Status), cons.Answer, cons.AnsweredAt, cons.CreatedAt, cons.UpdatedAt).
		ToSql()
	if err != nil {
		return consult.Consultation{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return consult.Consultation{}, errors.Wrap(err, "creating consultation")
	}
	return cons, nil
}

func (repo *consultationRepository) QueryConsultations(ctx context.Context, userID string, ordering []core.DBOrdering) ([]consult.Consultation, error) {
	b := repo.selectConsultations()
	if userID != "" {
		b = b.Where(sq.Eq{"user_id": userID})
	}
	query, args, err := orderBy(b, ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []consultationRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying consultations")
	}
	conss := make([]consult.Consultation, len(rows))
	for i, row := range rows {
		conss[i] = row.toConsultation()
	}
	return conss, nil
}

func (repo *consultationRepository) GetConsultationByID(ctx context.Context, id string) (consult.Consultation, error) {
	query, args, err := repo.selectConsultations().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return consult.Consultation{}, errors.Wrap(err, "building query")
	}
	var row consultationRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return consult.Consultation{}, consult.ErrNotFound
		}
		return consult.Consultation{}, errors.Wrap(err, "getting consultation")
	}
	return row.toConsultation(), nil
}

func (repo *consultationRepository) UpdateConsultation(ctx context.Context, cons consult.Consultation) (consult.Consultation, error) {
	query, args, err := psql.
		Update("consultations").
		Set("topic", cons.Topic).
		Set("body", cons.Body).
		Set("status", string(cons.Status)).
		Set("answer", cons.Answer).
		Set("answered_at", cons.AnsweredAt).
		Set("updated_at", cons.UpdatedAt).
		Where(sq.Eq{"id": cons.ID}).
		ToSql()
	if err != nil {
		return consult.Consultation{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return consult.Consultation{}, errors.Wrap(err, "updating consultation")
	}
	return cons, nil
}
