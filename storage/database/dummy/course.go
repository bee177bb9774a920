package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.NewString()
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, publishedOnly bool, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var courses []course.Course
	for _, crs := range repo.db.courses {
		if publishedOnly && !crs.IsPublished {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Position < courses[j].Position })
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	crs, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	out := *crs
	out.Chapters = nil
	for _, chap := range repo.db.chapters {
		if chap.CourseID == id {
			out.Chapters = append(out.Chapters, *chap)
		}
	}
	sort.Slice(out.Chapters, func(i, j int) bool { return out.Chapters[i].Position < out.Chapters[j].Position })
	return out, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	stored := crs
	stored.Chapters = nil
	repo.db.courses[crs.ID] = &stored
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.courses[id]; ok {
			delete(repo.db.courses, id)
			n++
		}
		for chapID, chap := range repo.db.chapters {
			if chap.CourseID == id {
				delete(repo.db.chapters, chapID)
			}
		}
	}
	return n, nil
}

func (repo *courseRepository) CreateChapter(ctx context.Context, chap course.Chapter) (course.Chapter, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if chap.ID == "" {
		chap.ID = uuid.NewString()
	}
	repo.db.chapters[chap.ID] = &chap
	return chap, nil
}

func (repo *courseRepository) GetChapterByID(ctx context.Context, id string) (course.Chapter, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if chap, ok := repo.db.chapters[id]; ok {
		return *chap, nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) UpdateChapter(ctx context.Context, chap course.Chapter) (course.Chapter, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.chapters[chap.ID]; !ok {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	repo.db.chapters[chap.ID] = &chap
	return chap, nil
}

func (repo *courseRepository) DeleteChaptersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.chapters[id]; ok {
			delete(repo.db.chapters, id)
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) CreateCompletion(ctx context.Context, cpl course.Completion) (course.Completion, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if cpl.ID == "" {
		cpl.ID = uuid.NewString()
	}
	repo.db.completions[cpl.ID] = &cpl
	return cpl, nil
}

func (repo *courseRepository) GetCompletion(ctx context.Context, userID, chapterID string) (course.Completion, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cpl := range repo.db.completions {
		if cpl.UserID == userID && cpl.ChapterID == chapterID {
			return *cpl, nil
		}
	}
	return course.Completion{}, course.ErrNotFound
}

func (repo *courseRepository) DeleteCompletion(ctx context.Context, userID, chapterID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, cpl := range repo.db.completions {
		if cpl.UserID == userID && cpl.ChapterID == chapterID {
			delete(repo.db.completions, id)
			return nil
		}
	}
	return nil
}

func (repo *courseRepository) CountCompletions(ctx context.Context, userID, courseID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, cpl := range repo.db.completions {
		if cpl.UserID != userID {
			continue
		}
		if chap, ok := repo.db.chapters[cpl.ChapterID]; ok && chap.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) CountChapters(ctx context.Context, courseID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, chap := range repo.db.chapters {
		if chap.CourseID == courseID {
			count++
		}
	}
	return count, nil
}
