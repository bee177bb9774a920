package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrChapterNotFound = errors.New("chapter not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses returns courses ordered by position; publishedOnly limits to published ones.
		QueryCourses(ctx context.Context, publishedOnly bool, ordering []core.DBOrdering) ([]Course, error)
		// GetCourseByID loads the course and its chapters ordered by position.
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)

		CreateChapter(ctx context.Context, chap Chapter) (Chapter, error)
		GetChapterByID(ctx context.Context, id string) (Chapter, error)
		UpdateChapter(ctx context.Context, chap Chapter) (Chapter, error)
		DeleteChaptersByID(ctx context.Context, ids ...string) (int, error)

		CreateCompletion(ctx context.Context, cpl Completion) (Completion, error)
		GetCompletion(ctx context.Context, userID, chapterID string) (Completion, error)
		DeleteCompletion(ctx context.Context, userID, chapterID string) error
		// CountCompletions counts the user's completions within one course.
		CountCompletions(ctx context.Context, userID, courseID string) (int, error)
		CountChapters(ctx context.Context, courseID string) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, publishedOnly bool, ordering ...core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error

		AddChapter(ctx context.Context, courseID string, nc NewChapter) (Chapter, error)
		GetChapterByID(ctx context.Context, id string) (Chapter, error)
		UpdateChapter(ctx context.Context, id string, uc UpdateChapter) (Chapter, error)
		DeleteChapter(ctx context.Context, id string) error

		CompleteChapter(ctx context.Context, userID, chapterID string) (Completion, error)
		UncompleteChapter(ctx context.Context, userID, chapterID string) error
		GetProgress(ctx context.Context, userID, courseID string) (Progress, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		IsPublished: nc.IsPublished,
		Position:    nc.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, publishedOnly bool, ordering ...core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, publishedOnly, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	orig.Title = uc.Title
	orig.Description = uc.Description
	if uc.IsPublished != nil {
		orig.IsPublished = *uc.IsPublished
	}
	if uc.Position != nil {
		orig.Position = *uc.Position
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	return err
}

func (svc *service) AddChapter(ctx context.Context, courseID string, nc NewChapter) (Chapter, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Chapter{}, err
	}
	now := time.Now().UTC()
	chap := Chapter{
		CourseID:  courseID,
		Title:     nc.Title,
		Body:      nc.Body,
		Position:  nc.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateChapter(ctx, chap)
}

func (svc *service) GetChapterByID(ctx context.Context, id string) (Chapter, error) {
	return svc.repo.GetChapterByID(ctx, id)
}

func (svc *service) UpdateChapter(ctx context.Context, id string, uc UpdateChapter) (Chapter, error) {
	orig, err := svc.repo.GetChapterByID(ctx, id)
	if err != nil {
		return Chapter{}, err
	}
	orig.Title = uc.Title
	orig.Body = uc.Body
	if uc.Position != nil {
		orig.Position = *uc.Position
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateChapter(ctx, orig)
}

func (svc *service) DeleteChapter(ctx context.Context, id string) error {
	_, err := svc.repo.DeleteChaptersByID(ctx, id)
	return err
}

// CompleteChapter marks a chapter done for a user; completing twice is a no-op
// returning the existing completion.
func (svc *service) CompleteChapter(ctx context.Context, userID, chapterID string) (Completion, error) {
	if _, err := svc.repo.GetChapterByID(ctx, chapterID); err != nil {
		return Completion{}, err
	}
	if cpl, err := svc.repo.GetCompletion(ctx, userID, chapterID); err == nil {
		return cpl, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Completion{}, err
	}
	cpl := Completion{
		UserID:      userID,
		ChapterID:   chapterID,
		CompletedAt: time.Now().UTC(),
	}
	return svc.repo.CreateCompletion(ctx, cpl)
}

func (svc *service) UncompleteChapter(ctx context.Context, userID, chapterID string) error {
	return svc.repo.DeleteCompletion(ctx, userID, chapterID)
}

func (svc *service) GetProgress(ctx context.Context, userID, courseID string) (Progress, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Progress{}, err
	}
	total, err := svc.repo.CountChapters(ctx, courseID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "counting chapters")
	}
	completed, err := svc.repo.CountCompletions(ctx, userID, courseID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "counting completions")
	}
	return Progress{CourseID: courseID, Completed: completed, Total: total}, nil
}
