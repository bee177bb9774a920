package announce

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		// QueryAnnouncements returns announcements newest first; publishedOnly limits to published ones.
		QueryAnnouncements(ctx context.Context, publishedOnly bool, ordering []core.DBOrdering) ([]Announcement, error)
		GetAnnouncementByID(ctx context.Context, id string) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		DeleteAnnouncementsByID(ctx context.Context, ids ...string) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, createdBy string, na NewAnnouncement) (Announcement, error)
		Query(ctx context.Context, publishedOnly bool) ([]Announcement, error)
		GetByID(ctx context.Context, id string) (Announcement, error)
		Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, createdBy string, na NewAnnouncement) (Announcement, error) {
	now := time.Now().UTC()
	ann := Announcement{
		Title:     na.Title,
		Body:      na.Body,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if na.Publish {
		ann.PublishedAt = &now
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

func (svc *service) Query(ctx context.Context, publishedOnly bool) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx, publishedOnly, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncementByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	orig, err := svc.repo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	orig.Title = ua.Title
	orig.Body = ua.Body
	now := time.Now().UTC()
	if ua.Publish != nil {
		if *ua.Publish && orig.PublishedAt == nil {
			orig.PublishedAt = &now
		} else if !*ua.Publish {
			orig.PublishedAt = nil
		}
	}
	orig.UpdatedAt = now
	return svc.repo.UpdateAnnouncement(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAnnouncementsByID(ctx, ids...)
	return err
}
