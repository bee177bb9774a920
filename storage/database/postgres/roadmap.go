package pgdb

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core/roadmap"
)

type milestoneRow struct {
	ID        string       `db:"id"`
	RoadmapID string       `db:"roadmap_id"`
	Title     string       `db:"title"`
	Detail    string       `db:"detail"`
	Done      bool         `db:"done"`
	Position  int          `db:"position"`
	DueAt     sql.NullTime `db:"due_at"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r milestoneRow) toMilestone() roadmap.Milestone {
	ms := roadmap.Milestone{
		ID:        r.ID,
		RoadmapID: r.RoadmapID,
		Title:     r.Title,
		Detail:    r.Detail,
		Done:      r.Done,
		Position:  r.Position,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if r.DueAt.Valid {
		t := r.DueAt.Time
		ms.DueAt = &t
	}
	return ms
}

type roadmapRepository struct {
	db *sqlx.DB
}

var _ roadmap.Repository = (*roadmapRepository)(nil) // interface compliance check

func NewRoadmapRepository(db *sqlx.DB) *roadmapRepository {
	return &roadmapRepository{db: db}
}

func (repo *roadmapRepository) CreateRoadmap(ctx context.Context, rm roadmap.Roadmap) (roadmap.Roadmap, error) {
	if rm.ID == "" {
		rm.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("roadmaps").
		Columns("id", "user_id", "title", "note", "created_at", "updated_at").
		Values(rm.ID, rm.UserID, rm.Title, rm.Note, rm.CreatedAt, rm.UpdatedAt).
		ToSql()
	if err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "creating roadmap")
	}
	return rm, nil
}

func (repo *roadmapRepository) GetRoadmapByUserID(ctx context.Context, userID string) (roadmap.Roadmap, error) {
	query, args, err := psql.
		Select("id", "user_id", "title", "note", "created_at", "updated_at").
		From("roadmaps").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "building query")
	}

	var rm roadmap.Roadmap
	var createdAt, updatedAt sql.NullTime
	row := repo.db.QueryRowxContext(ctx, query, args...)
	if err = row.Scan(&rm.ID, &rm.UserID, &rm.Title, &rm.Note, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return roadmap.Roadmap{}, roadmap.ErrNotFound
		}
		return roadmap.Roadmap{}, errors.Wrap(err, "getting roadmap")
	}
	rm.CreatedAt, rm.UpdatedAt = createdAt.Time, updatedAt.Time

	query, args, err = psql.
		Select("id", "roadmap_id", "title", "detail", "done", "position", "due_at", "created_at", "updated_at").
		From("milestones").
		Where(sq.Eq{"roadmap_id": rm.ID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "building query")
	}
	var msRows []milestoneRow
	if err = repo.db.SelectContext(ctx, &msRows, query, args...); err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "querying milestones")
	}
	rm.Milestones = make([]roadmap.Milestone, len(msRows))
	for i, mr := range msRows {
		rm.Milestones[i] = mr.toMilestone()
	}
	return rm, nil
}

func (repo *roadmapRepository) UpdateRoadmap(ctx context.Context, rm roadmap.Roadmap) (roadmap.Roadmap, error) {
	query, args, err := psql.
		Update("roadmaps").
		Set("title", rm.Title).
		Set("note", rm.Note).
		Set("updated_at", rm.UpdatedAt).
		Where(sq.Eq{"id": rm.ID}).
		ToSql()
	if err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return roadmap.Roadmap{}, errors.Wrap(err, "updating roadmap")
	}
	return rm, nil
}

func (repo *roadmapRepository) CreateMilestone(ctx context.Context, ms roadmap.Milestone) (roadmap.Milestone, error) {
	if ms.ID == "" {
		ms.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("milestones").
		Columns("id", "roadmap_id", "title", "detail", "done", "position", "due_at", "created_at", "updated_at").
		Values(ms.ID, ms.RoadmapID, ms.Title, ms.Detail, ms.Done, ms.Position, ms.DueAt, ms.CreatedAt, ms.UpdatedAt).
		ToSql()
	if err != nil {
		return roadmap.Milestone{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return roadmap.Milestone{}, errors.Wrap(err, "creating milestone")
	}
	return ms, nil
}

func (repo *roadmapRepository) GetMilestoneByID(ctx context.Context, id string) (roadmap.Milestone, error) {
	query, args, err := psql.
		Select("id", "roadmap_id", "title", "detail", "done", "position", "due_at", "created_at", "updated_at").
		From("milestones").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return roadmap.Milestone{}, errors.Wrap(err, "building query")
	}
	var row milestoneRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return roadmap.Milestone{}, roadmap.ErrMilestoneNotFound
		}
		return roadmap.Milestone{}, errors.Wrap(err, "getting milestone")
	}
	return row.toMilestone(), nil
}

func (repo *roadmapRepository) UpdateMilestone(ctx context.Context, ms roadmap.Milestone) (roadmap.Milestone, error) {
	query, args, err := psql.
		Update("milestones").
		Set("title", ms.Title).
		Set("detail", ms.Detail).
		Set("done", ms.Done).
		Set("position", ms.Position).
		Set("due_at", ms.DueAt).
		Set("updated_at", ms.UpdatedAt).
		Where(sq.Eq{"id": ms.ID}).
		ToSql()
	if err != nil {
		return roadmap.Milestone{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return roadmap.Milestone{}, errors.Wrap(err, "updating milestone")
	}
	return ms, nil
}

func (repo *roadmapRepository) DeleteMilestonesByID(ctx context.Context, ids ...string) (int, error) {
	return deleteByID(ctx, repo.db, "milestones", ids)
}
