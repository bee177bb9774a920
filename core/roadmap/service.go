package roadmap

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound          = errors.New("roadmap not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
)

type (
	Repository interface {
		CreateRoadmap(ctx context.Context, rm Roadmap) (Roadmap, error)
		// GetRoadmapByUserID loads the roadmap and its milestones ordered by position.
		GetRoadmapByUserID(ctx context.Context, userID string) (Roadmap, error)
		UpdateRoadmap(ctx context.Context, rm Roadmap) (Roadmap, error)

		CreateMilestone(ctx context.Context, ms Milestone) (Milestone, error)
		GetMilestoneByID(ctx context.Context, id string) (Milestone, error)
		UpdateMilestone(ctx context.Context, ms Milestone) (Milestone, error)
		DeleteMilestonesByID(ctx context.Context, ids ...string) (int, error)
	}

	ServiceInterface interface {
		// GetOrCreate returns the user's roadmap, creating an empty one on first access.
		GetOrCreate(ctx context.Context, userID string) (Roadmap, error)
		Update(ctx context.Context, userID string, ur UpdateRoadmap) (Roadmap, error)

		AddMilestone(ctx context.Context, userID string, nm NewMilestone) (Milestone, error)
		GetMilestoneByID(ctx context.Context, id string) (Milestone, error)
		UpdateMilestone(ctx context.Context, id string, um UpdateMilestone) (Milestone, error)
		DeleteMilestone(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) GetOrCreate(ctx context.Context, userID string) (Roadmap, error) {
	rm, err := svc.repo.GetRoadmapByUserID(ctx, userID)
	if err == nil {
		return rm, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Roadmap{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateRoadmap(ctx, Roadmap{
		UserID:    userID,
		Title:     "My Roadmap",
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Update(ctx context.Context, userID string, ur UpdateRoadmap) (Roadmap, error) {
	rm, err := svc.GetOrCreate(ctx, userID)
	if err != nil {
		return Roadmap{}, err
	}
	rm.Title = ur.Title
	rm.Note = ur.Note
	rm.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRoadmap(ctx, rm)
}

func (svc *service) AddMilestone(ctx context.Context, userID string, nm NewMilestone) (Milestone, error) {
	rm, err := svc.GetOrCreate(ctx, userID)
	if err != nil {
		return Milestone{}, err
	}
	now := time.Now().UTC()
	ms := Milestone{
		RoadmapID: rm.ID,
		Title:     nm.Title,
		Detail:    nm.Detail,
		DueAt:     nm.DueAt,
		Position:  nm.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateMilestone(ctx, ms)
}

func (svc *service) GetMilestoneByID(ctx context.Context, id string) (Milestone, error) {
	return svc.repo.GetMilestoneByID(ctx, id)
}

func (svc *service) UpdateMilestone(ctx context.Context, id string, um UpdateMilestone) (Milestone, error) {
	orig, err := svc.repo.GetMilestoneByID(ctx, id)
	if err != nil {
		return Milestone{}, err
	}
	orig.Title = um.Title
	orig.Detail = um.Detail
	if um.DueAt != nil {
		orig.DueAt = um.DueAt
	}
	if um.Done != nil {
		orig.Done = *um.Done
	}
	if um.Position != nil {
		orig.Position = *um.Position
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMilestone(ctx, orig)
}

func (svc *service) DeleteMilestone(ctx context.Context, id string) error {
	_, err := svc.repo.DeleteMilestonesByID(ctx, id)
	return err
}
