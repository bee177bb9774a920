package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core/roadmap"
)

type roadmapRepository struct {
	db *DB
}

var _ roadmap.Repository = (*roadmapRepository)(nil) // interface compliance check

func NewRoadmapRepository(db *DB) *roadmapRepository {
	return &roadmapRepository{db: db}
}

func (repo *roadmapRepository) CreateRoadmap(ctx context.Context, rm roadmap.Roadmap) (roadmap.Roadmap, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if rm.ID == "" {
		rm.ID = uuid.NewString()
	}
	repo.db.roadmaps[rm.ID] = &rm
	return rm, nil
}

func (repo *roadmapRepository) GetRoadmapByUserID(ctx context.Context, userID string) (roadmap.Roadmap, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, rm := range repo.db.roadmaps {
		if rm.UserID == userID {
			out := *rm
			out.Milestones = nil
			for _, ms := range repo.db.milestones {
				if ms.RoadmapID == rm.ID {
					out.Milestones = append(out.Milestones, *ms)
				}
			}
			sort.Slice(out.Milestones, func(i, j int) bool { return out.Milestones[i].Position < out.Milestones[j].Position })
			return out, nil
		}
	}
	return roadmap.Roadmap{}, roadmap.ErrNotFound
}

func (repo *roadmapRepository) UpdateRoadmap(ctx context.Context, rm roadmap.Roadmap) (roadmap.Roadmap, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.roadmaps[rm.ID]; !ok {
		return roadmap.Roadmap{}, roadmap.ErrNotFound
	}
	stored := rm
	stored.Milestones = nil
	repo.db.roadmaps[rm.ID] = &stored
	return rm, nil
}

func (repo *roadmapRepository) CreateMilestone(ctx context.Context, ms roadmap.Milestone) (roadmap.Milestone, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if ms.ID == "" {
		ms.ID = uuid.NewString()
	}
	repo.db.milestones[ms.ID] = &ms
	return ms, nil
}

func (repo *roadmapRepository) GetMilestoneByID(ctx context.Context, id string) (roadmap.Milestone, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ms, ok := repo.db.milestones[id]; ok {
		return *ms, nil
	}
	return roadmap.Milestone{}, roadmap.ErrMilestoneNotFound
}

func (repo *roadmapRepository) UpdateMilestone(ctx context.Context, ms roadmap.Milestone) (roadmap.Milestone, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.milestones[ms.ID]; !ok {
		return roadmap.Milestone{}, roadmap.ErrMilestoneNotFound
	}
	repo.db.milestones[ms.ID] = &ms
	return ms, nil
}

func (repo *roadmapRepository) DeleteMilestonesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.milestones[id]; ok {
			delete(repo.db.milestones, id)
			n++
		}
	}
	return n, nil
}
