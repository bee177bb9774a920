package interview

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

var ErrNotFound = errors.New("interview not found")

type (
	Repository interface {
		CreateInterview(ctx context.Context, itv Interview) (Interview, error)
		// QueryInterviews returns interviews ordered by scheduled time;
		// userID narrows the result to one user's interviews when non-empty.
		QueryInterviews(ctx context.Context, userID string, ordering []core.DBOrdering) ([]Interview, error)
		GetInterviewByID(ctx context.Context, id string) (Interview, error)
		UpdateInterview(ctx context.Context, itv Interview) (Interview, error)
	}

	ServiceInterface interface {
		Request(ctx context.Context, userID string, ni NewInterview) (Interview, error)
		QueryOwn(ctx context.Context, userID string) ([]Interview, error)
		QueryAll(ctx context.Context) ([]Interview, error)
		GetByID(ctx context.Context, id string) (Interview, error)
		Update(ctx context.Context, id string, ui UpdateInterview) (Interview, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Request(ctx context.Context, userID string, ni NewInterview) (Interview, error) {
	now := time.Now().UTC()
	itv := Interview{
		UserID:      userID,
		ScheduledAt: ni.ScheduledAt.UTC(),
		Note:        ni.Note,
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateInterview(ctx, itv)
}

func (svc *service) QueryOwn(ctx context.Context, userID string) ([]Interview, error) {
	return svc.repo.QueryInterviews(ctx, userID, []core.DBOrdering{{Field: "scheduled_at", Ascending: true}})
}

func (svc *service) QueryAll(ctx context.Context) ([]Interview, error) {
	return svc.repo.QueryInterviews(ctx, "", []core.DBOrdering{{Field: "scheduled_at", Ascending: true}})
}

func (svc *service) GetByID(ctx context.Context, id string) (Interview, error) {
	return svc.repo.GetInterviewByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ui UpdateInterview) (Interview, error) {
	orig, err := svc.repo.GetInterviewByID(ctx, id)
	if err != nil {
		return Interview{}, err
	}
	if ui.ScheduledAt != nil {
		orig.ScheduledAt = ui.ScheduledAt.UTC()
	}
	orig.Interviewer = ui.Interviewer
	orig.Note = ui.Note
	orig.Status = ui.Status
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInterview(ctx, orig)
}
