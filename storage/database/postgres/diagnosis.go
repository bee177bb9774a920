package pgdb

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/diagnosis"
)

type diagnosisRequestRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	URL           string      `db:"url"`
	Status        string      `db:"status"`
	LastCheckedAt null.Time   `db:"last_checked_at"`
	ErrorMessage  string      `db:"error_message"`
	DiagnosisID   null.String `db:"diagnosis_id"`
	CheckCount    int         `db:"check_count"`
	CreatedAt     null.Time   `db:"created_at"`
}

func (r diagnosisRequestRow) toRequest() diagnosis.Request {
	req := diagnosis.Request{
		ID:           r.ID,
		UserID:       r.UserID,
		URL:          r.URL,
		Status:       diagnosis.Status(r.Status),
		ErrorMessage: r.ErrorMessage,
		DiagnosisID:  r.DiagnosisID.String,
		CheckCount:   r.CheckCount,
		CreatedAt:    r.CreatedAt.Time,
	}
	if r.LastCheckedAt.Valid {
		t := r.LastCheckedAt.Time
		req.LastCheckedAt = &t
	}
	return req
}

type diagnosisRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	RequestID       string    `db:"request_id"`
	PersonalityType string    `db:"personality_type"`
	SkillMap        []byte    `db:"skill_map"`
	Strengths       []byte    `db:"strengths"`
	Weaknesses      []byte    `db:"weaknesses"`
	Recommendations []byte    `db:"recommendations"`
	PDFURL          string    `db:"pdf_url"`
	Comment         string    `db:"comment"`
	CreatedAt       null.Time `db:"created_at"`
	UpdatedAt       null.Time `db:"updated_at"`
}

func (r diagnosisRow) toDiagnosis() diagnosis.Diagnosis {
	return diagnosis.Diagnosis{
		ID:              r.ID,
		UserID:          r.UserID,
		RequestID:       r.RequestID,
		PersonalityType: r.PersonalityType,
		SkillMap:        r.SkillMap,
		Strengths:       r.Strengths,
		Weaknesses:      r.Weaknesses,
		Recommendations: r.Recommendations,
		PDFURL:          r.PDFURL,
		Comment:         r.Comment,
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

type diagnosisRepository struct {
	db *sqlx.DB
}

var _ diagnosis.Repository = (*diagnosisRepository)(nil) // interface compliance check

func NewDiagnosisRepository(db *sqlx.DB) *diagnosisRepository {
	return &diagnosisRepository{db: db}
}

func (repo *diagnosisRepository) selectRequests() sq.SelectBuilder {
	return psql.
		Select("id", "user_id", "url", "status", "last_checked_at", "error_message", "diagnosis_id", "check_count", "created_at").
		From("diagnosis_requests")
}

func (repo *diagnosisRepository) selectDiagnoses() sq.SelectBuilder {
	return psql.
		Select("id", "user_id", "request_id", "personality_type", "skill_map", "strengths", "weaknesses", "recommendations", "pdf_url", "comment", "created_at", "updated_at").
		From("diagnoses")
}

func (repo *diagnosisRepository) getRequest(ctx context.Context, b sq.SelectBuilder) (diagnosis.Request, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return diagnosis.Request{}, errors.Wrap(err, "building query")
	}
	var row diagnosisRequestRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return diagnosis.Request{}, diagnosis.ErrNotFound
		}
		return diagnosis.Request{}, errors.Wrap(err, "getting diagnosis request")
	}
	return row.toRequest(), nil
}

func (repo *diagnosisRepository) CreateRequest(ctx context.Context, req diagnosis.Request) (diagnosis.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("diagnosis_requests").
		Columns("id", "user_id", "url", "status", "error_message", "check_count", "created_at").
		Values(req.ID, req.UserID, req.URL, string(req.Status), req.ErrorMessage, req.CheckCount, req.CreatedAt).
		ToSql()
	if err != nil {
		return diagnosis.Request{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return diagnosis.Request{}, errors.Wrap(err, "creating diagnosis request")
	}
	return req, nil
}

func (repo *diagnosisRepository) GetRequestByID(ctx context.Context, id string) (diagnosis.Request, error) {
	return repo.getRequest(ctx, repo.selectRequests().Where(sq.Eq{"id": id}))
}

func (repo *diagnosisRepository) GetRequestByUserURL(ctx context.Context, userID, url string) (diagnosis.Request, error) {
	return repo.getRequest(ctx, repo.selectRequests().Where(sq.Eq{"user_id": userID, "url": url}))
}

func (repo *diagnosisRepository) QueryRequestsByUserID(ctx context.Context, userID string, ordering []core.DBOrdering) ([]diagnosis.Request, error) {
	query, args, err := orderBy(repo.selectRequests().Where(sq.Eq{"user_id": userID}), ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []diagnosisRequestRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying diagnosis requests")
	}
	reqs := make([]diagnosis.Request, len(rows))
	for i, row := range rows {
		reqs[i] = row.toRequest()
	}
	return reqs, nil
}

func (repo *diagnosisRepository) QueryOutstandingRequests(ctx context.Context, statuses []diagnosis.Status, maxFailedChecks, limit int) ([]diagnosis.Request, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}
	b := repo.selectRequests().
		Where(sq.Eq{"status": strs}).
		OrderBy("last_checked_at ASC NULLS FIRST")
	if maxFailedChecks > 0 {
		// exhausted failed requests stay out of the batch for good
		b = b.Where(sq.Or{
			sq.NotEq{"status": string(diagnosis.StatusFailed)},
			sq.Lt{"check_count": maxFailedChecks},
		})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []diagnosisRequestRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying outstanding requests")
	}
	reqs := make([]diagnosis.Request, len(rows))
	for i, row := range rows {
		reqs[i] = row.toRequest()
	}
	return reqs, nil
}

// MarkProcessing performs the conditional claim: the UPDATE only matches when
// the current status is still one of from (or a processing claim gone stale),
// so two concurrent triggers cannot both win the same request.
func (repo *diagnosisRepository) MarkProcessing(ctx context.Context, id string, from []diagnosis.Status, staleBefore, at time.Time) (bool, error) {
	strs := make([]string, len(from))
	for i, s := range from {
		strs[i] = string(s)
	}
	cond := sq.Or{sq.Eq{"status": strs}}
	if !staleBefore.IsZero() {
		cond = append(cond, sq.And{
			sq.Eq{"status": string(diagnosis.StatusProcessing)},
			sq.Lt{"last_checked_at": staleBefore},
		})
	}
	query, args, err := psql.
		Update("diagnosis_requests").
		Set("status", string(diagnosis.StatusProcessing)).
		Set("last_checked_at", at).
		Where(sq.Eq{"id": id}).
		Where(cond).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "claiming diagnosis request")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "claiming diagnosis request")
	}
	return n > 0, nil
}

func (repo *diagnosisRepository) UpdateRequest(ctx context.Context, req diagnosis.Request) (diagnosis.Request, error) {
	query, args, err := psql.
		Update("diagnosis_requests").
		Set("status", string(req.Status)).
		Set("last_checked_at", req.LastCheckedAt).
		Set("error_message", req.ErrorMessage).
		Set("diagnosis_id", null.NewString(req.DiagnosisID, req.DiagnosisID != "")).
		Set("check_count", req.CheckCount).
		Where(sq.Eq{"id": req.ID}).
		ToSql()
	if err != nil {
		return diagnosis.Request{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return diagnosis.Request{}, errors.Wrap(err, "updating diagnosis request")
	}
	return req, nil
}

func (repo *diagnosisRepository) CreateDiagnosis(ctx context.Context, d diagnosis.Diagnosis) (diagnosis.Diagnosis, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("diagnoses").
		Columns("id", "user_id", "request_id", "personality_type", "skill_map", "strengths", "weaknesses", "recommendations", "pdf_url", "comment", "created_at", "updated_at").
		Values(d.ID, d.UserID, d.RequestID, d.PersonalityType, []byte(d.SkillMap), []byte(d.Strengths), []byte(d.Weaknesses), []byte(d.Recommendations), d.PDFURL, d.Comment, d.CreatedAt, d.UpdatedAt).
		Suffix("ON CONFLICT (request_id) DO NOTHING").
		ToSql()
	if err != nil {
		return diagnosis.Diagnosis{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return diagnosis.Diagnosis{}, errors.Wrap(err, "creating diagnosis")
	}
	// lost a race with a concurrent check; hand back the winner's row
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.GetDiagnosisByRequestID(ctx, d.RequestID)
	}
	return d, nil
}

func (repo *diagnosisRepository) getDiagnosis(ctx context.Context, b sq.SelectBuilder) (diagnosis.Diagnosis, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return diagnosis.Diagnosis{}, errors.Wrap(err, "building query")
	}
	var row diagnosisRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return diagnosis.Diagnosis{}, diagnosis.ErrDiagnosisNotFound
		}
		return diagnosis.Diagnosis{}, errors.Wrap(err, "getting diagnosis")
	}
	return row.toDiagnosis(), nil
}

func (repo *diagnosisRepository) GetDiagnosisByRequestID(ctx context.Context, requestID string) (diagnosis.Diagnosis, error) {
	return repo.getDiagnosis(ctx, repo.selectDiagnoses().Where(sq.Eq{"request_id": requestID}))
}

func (repo *diagnosisRepository) GetDiagnosisByID(ctx context.Context, id string) (diagnosis.Diagnosis, error) {
	return repo.getDiagnosis(ctx, repo.selectDiagnoses().Where(sq.Eq{"id": id}))
}

func (repo *diagnosisRepository) QueryDiagnosesByUserID(ctx context.Context, userID string, ordering []core.DBOrdering) ([]diagnosis.Diagnosis, error) {
	query, args, err := orderBy(repo.selectDiagnoses().Where(sq.Eq{"user_id": userID}), ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []diagnosisRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying diagnoses")
	}
	ds := make([]diagnosis.Diagnosis, len(rows))
	for i, row := range rows {
		ds[i] = row.toDiagnosis()
	}
	return ds, nil
}
