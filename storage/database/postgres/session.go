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
	"github.com/buddybow/backend/core/session"
)

type sessionRow struct {
	ID          string       `db:"id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	StartsAt    time.Time    `db:"starts_at"`
	EndsAt      time.Time    `db:"ends_at"`
	Capacity    int          `db:"capacity"`
	Location    string       `db:"location"`
	CreatedBy   string       `db:"created_by"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
	SignupCount int          `db:"signup_count"`
}

func (r sessionRow) toSession() session.StudySession {
	return session.StudySession{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		Capacity:    r.Capacity,
		Location:    r.Location,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
		SignupCount: r.SignupCount,
	}
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) selectSessions() sq.SelectBuilder {
	return psql.
		Select(
			"s.id", "s.title", "s.description", "s.starts_at", "s.ends_at", "s.capacity",
			"s.location", "s.created_by", "s.created_at", "s.updated_at",
			"COUNT(su.id) AS signup_count",
		).
		From("study_sessions s").
		LeftJoin("session_signups su ON su.session_id = s.id").
		GroupBy("s.id")
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.StudySession) (session.StudySession, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("study_sessions").
		Columns("id", "title", "description", "starts_at", "ends_at", "capacity", "location", "created_by", "created_at", "updated_at").
		Values(sess.ID, sess.Title, sess.Description, sess.StartsAt, sess.EndsAt, sess.Capacity, sess.Location, sess.CreatedBy, sess.CreatedAt, sess.UpdatedAt).
		ToSql()
	if err != nil {
		return session.StudySession{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return session.StudySession{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, from time.Time, ordering []core.DBOrdering) ([]session.StudySession, error) {
	b := repo.selectSessions()
	if !from.IsZero() {
		b = b.Where(sq.GtOrEq{"s.starts_at": from})
	}
	query, args, err := orderBy(b, ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []sessionRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.StudySession, len(rows))
	for i, row := range rows {
		sessions[i] = row.toSession()
	}
	return sessions, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.StudySession, error) {
	query, args, err := repo.selectSessions().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return session.StudySession{}, errors.Wrap(err, "building query")
	}
	var row sessionRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return session.StudySession{}, session.ErrNotFound
		}
		return session.StudySession{}, errors.Wrap(err, "getting session")
	}
	return row.toSession(), nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.StudySession) (session.StudySession, error) {
	query, args, err := psql.
		Update("study_sessions").
		Set("title", sess.Title).
		Set("description", sess.Description).
		Set("starts_at", sess.StartsAt).
		Set("ends_at", sess.EndsAt).
		Set("capacity", sess.Capacity).
		Set("location", sess.Location).
		Set("updated_at", sess.UpdatedAt).
		Where(sq.Eq{"id": sess.ID}).
		ToSql()
	if err != nil {
		return session.StudySession{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return session.StudySession{}, errors.Wrap(err, "updating session")
	}
	return sess, nil
}

func (repo *sessionRepository) DeleteSessionsByID(ctx context.Context, ids ...string) (int, error) {
	return deleteByID(ctx, repo.db, "study_sessions", ids)
}

func (repo *sessionRepository) CreateSignup(ctx context.Context, su session.Signup) (session.Signup, error) {
	if su.ID == "" {
		su.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("session_signups").
		Columns("id", "session_id", "user_id", "created_at").
		Values(su.ID, su.SessionID, su.UserID, su.CreatedAt).
		ToSql()
	if err != nil {
		return session.Signup{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return session.Signup{}, errors.Wrap(err, "creating signup")
	}
	return su, nil
}

func (repo *sessionRepository) GetSignup(ctx context.Context, sessionID, userID string) (session.Signup, error) {
	query, args, err := psql.
		Select("id", "session_id", "user_id", "created_at").
		From("session_signups").
		Where(sq.Eq{"session_id": sessionID, "user_id": userID}).
		ToSql()
	if err != nil {
		return session.Signup{}, errors.Wrap(err, "building query")
	}
	var su session.Signup
	row := repo.db.QueryRowxContext(ctx, query, args...)
	if err = row.Scan(&su.ID, &su.SessionID, &su.UserID, &su.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return session.Signup{}, session.ErrNotSigned
		}
		return session.Signup{}, errors.Wrap(err, "getting signup")
	}
	return su, nil
}

func (repo *sessionRepository) DeleteSignup(ctx context.Context, sessionID, userID string) error {
	query, args, err := psql.
		Delete("session_signups").
		Where(sq.Eq{"session_id": sessionID, "user_id": userID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deleting signup")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotSigned
	}
	return nil
}

func (repo *sessionRepository) QuerySignups(ctx context.Context, sessionID string) ([]session.Signup, error) {
	query, args, err := psql.
		Select("id", "session_id", "user_id", "created_at").
		From("session_signups").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := repo.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying signups")
	}
	defer func() { _ = rows.Close() }()

	var signups []session.Signup
	for rows.Next() {
		var su session.Signup
		if err = rows.Scan(&su.ID, &su.SessionID, &su.UserID, &su.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning signup")
		}
		signups = append(signups, su)
	}
	return signups, rows.Err()
}
