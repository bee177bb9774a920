package pgdb

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/course"
)

type courseRow struct {
	ID          string       `db:"id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	IsPublished bool         `db:"is_published"`
	Position    int          `db:"position"`
	CreatedAt   sql.NullTime `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		IsPublished: r.IsPublished,
		Position:    r.Position,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type chapterRow struct {
	ID        string       `db:"id"`
	CourseID  string       `db:"course_id"`
	Title     string       `db:"title"`
	Body      string       `db:"body"`
	Position  int          `db:"position"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r chapterRow) toChapter() course.Chapter {
	return course.Chapter{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Body:      r.Body,
		Position:  r.Position,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) selectCourses() sq.SelectBuilder {
	return psql.
		Select("id", "title", "description", "is_published", "position", "created_at", "updated_at").
		From("courses")
}

func (repo *courseRepository) selectChapters() sq.SelectBuilder {
	return psql.
		Select("id", "course_id", "title", "body", "position", "created_at", "updated_at").
		From("chapters")
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("courses").
		Columns("id", "title", "description", "is_published", "position", "created_at", "updated_at").
		Values(crs.ID, crs.Title, crs.Description, crs.IsPublished, crs.Position, crs.CreatedAt, crs.UpdatedAt).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, publishedOnly bool, ordering []core.DBOrdering) ([]course.Course, error) {
	b := repo.selectCourses()
	if publishedOnly {
		b = b.Where(sq.Eq{"is_published": true})
	}
	query, args, err := orderBy(b, ordering).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []courseRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, len(rows))
	for i, row := range rows {
		courses[i] = row.toCourse()
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	query, args, err := repo.selectCourses().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var row courseRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	crs := row.toCourse()

	query, args, err = repo.selectChapters().
		Where(sq.Eq{"course_id": id}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var chapRows []chapterRow
	if err = repo.db.SelectContext(ctx, &chapRows, query, args...); err != nil {
		return course.Course{}, errors.Wrap(err, "querying chapters")
	}
	for _, cr := range chapRows {
		crs.Chapters = append(crs.Chapters, cr.toChapter())
	}
	return crs, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query, args, err := psql.
		Update("courses").
		Set("title", crs.Title).
		Set("description", crs.Description).
		Set("is_published", crs.IsPublished).
		Set("position", crs.Position).
		Set("updated_at", crs.UpdatedAt).
		Where(sq.Eq{"id": crs.ID}).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	return deleteByID(ctx, repo.db, "courses", ids)
}

func (repo *courseRepository) CreateChapter(ctx context.Context, chap course.Chapter) (course.Chapter, error) {
	if chap.ID == "" {
		chap.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("chapters").
		Columns("id", "course_id", "title", "body", "position", "created_at", "updated_at").
		Values(chap.ID, chap.CourseID, chap.Title, chap.Body, chap.Position, chap.CreatedAt, chap.UpdatedAt).
		ToSql()
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Chapter{}, errors.Wrap(err, "creating chapter")
	}
	return chap, nil
}

func (repo *courseRepository) GetChapterByID(ctx context.Context, id string) (course.Chapter, error) {
	query, args, err := repo.selectChapters().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "building query")
	}
	var row chapterRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Chapter{}, course.ErrChapterNotFound
		}
		return course.Chapter{}, errors.Wrap(err, "getting chapter")
	}
	return row.toChapter(), nil
}

func (repo *courseRepository) UpdateChapter(ctx context.Context, chap course.Chapter) (course.Chapter, error) {
	query, args, err := psql.
		Update("chapters").
		Set("title", chap.Title).
		Set("body", chap.Body).
		Set("position", chap.Position).
		Set("updated_at", chap.UpdatedAt).
		Where(sq.Eq{"id": chap.ID}).
		ToSql()
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Chapter{}, errors.Wrap(err, "updating chapter")
	}
	return chap, nil
}

func (repo *courseRepository) DeleteChaptersByID(ctx context.Context, ids ...string) (int, error) {
	return deleteByID(ctx, repo.db, "chapters", ids)
}

func (repo *courseRepository) CreateCompletion(ctx context.Context, cpl course.Completion) (course.Completion, error) {
	if cpl.ID == "" {
		cpl.ID = uuid.NewString()
	}
	query, args, err := psql.
		Insert("chapter_completions").
		Columns("id", "user_id", "chapter_id", "completed_at").
		Values(cpl.ID, cpl.UserID, cpl.ChapterID, cpl.CompletedAt).
		Suffix("ON CONFLICT (user_id, chapter_id) DO NOTHING").
		ToSql()
	if err != nil {
		return course.Completion{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return course.Completion{}, errors.Wrap(err, "creating completion")
	}
	return cpl, nil
}

func (repo *courseRepository) GetCompletion(ctx context.Context, userID, chapterID string) (course.Completion, error) {
	query, args, err := psql.
		Select("id", "user_id", "chapter_id", "completed_at").
		From("chapter_completions").
		Where(sq.Eq{"user_id": userID, "chapter_id": chapterID}).
		ToSql()
	if err != nil {
		return course.Completion{}, errors.Wrap(err, "building query")
	}
	var cpl course.Completion
	row := repo.db.QueryRowxContext(ctx, query, args...)
	if err = row.Scan(&cpl.ID, &cpl.UserID, &cpl.ChapterID, &cpl.CompletedAt); err != nil {
		if err == sql.ErrNoRows {
			return course.Completion{}, course.ErrNotFound
		}
		return course.Completion{}, errors.Wrap(err, "getting completion")
	}
	return cpl, nil
}

func (repo *courseRepository) DeleteCompletion(ctx context.Context, userID, chapterID string) error {
	query, args, err := psql.
		Delete("chapter_completions").
		Where(sq.Eq{"user_id": userID, "chapter_id": chapterID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting completion")
	}
	return nil
}

func (repo *courseRepository) CountCompletions(ctx context.Context, userID, courseID string) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("chapter_completions cc").
		Join("chapters c ON c.id = cc.chapter_id").
		Where(sq.Eq{"cc.user_id": userID, "c.course_id": courseID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting completions")
	}
	return count, nil
}

func (repo *courseRepository) CountChapters(ctx context.Context, courseID string) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("chapters").
		Where(sq.Eq{"course_id": courseID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting chapters")
	}
	return count, nil
}
