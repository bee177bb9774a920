package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/interview"
)

type interviewRepository struct {
	db *DB
}

var _ interview.Repository = (*interviewRepository)(nil) // interface compliance check

func NewInterviewRepository(db *DB) *interviewRepository {
	return &interviewRepository{db: db}
}

func (repo *interviewRepository) CreateInterview(ctx context.Context, itv interview.Interview) (interview.Interview, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if itv.ID == "" {
		itv.ID = uuid.NewString()
	}
	repo.db.interviews[itv.ID] = &itv
	return itv, nil
}

func (repo *interviewRepository) QueryInterviews(ctx context.Context, userID string, ordering []core.DBOrdering) ([]interview.Interview, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var itvs []interview.Interview
	for _, itv := range repo.db.interviews {
		if userID != "" && itv.UserID != userID {
			continue
		}
		itvs = append(itvs, *itv)
	}
	sort.Slice(itvs, func(i, j int) bool { return itvs[i].ScheduledAt.Before(itvs[j].ScheduledAt) })
	return itvs, nil
}

func (repo *interviewRepository) GetInterviewByID(ctx context.Context, id string) (interview.Interview, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if itv, ok := repo.db.interviews[id]; ok {
		return *itv, nil
	}
	return interview.Interview{}, interview.ErrNotFound
}

func (repo *interviewRepository) UpdateInterview(ctx context.Context, itv interview.Interview) (interview.Interview, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.interviews[itv.ID]; !ok {
		return interview.Interview{}, interview.ErrNotFound
	}
	repo.db.interviews[itv.ID] = &itv
	return itv, nil
}
