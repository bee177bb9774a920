package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/announce"
)

type announcementRepository struct {
	db *DB
}

var _ announce.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if ann.ID == "" {
		ann.ID = uuid.NewString()
	}
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, publishedOnly bool, ordering []core.DBOrdering) ([]announce.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var anns []announce.Announcement
	for _, ann := range repo.db.announcements {
		if publishedOnly && !ann.Published() {
			continue
		}
		anns = append(anns, *ann)
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].CreatedAt.After(anns[j].CreatedAt) })
	return anns, nil
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (announce.Announcement, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if ann, ok := repo.db.announcements[id]; ok {
		return *ann, nil
	}
	return announce.Announcement{}, announce.ErrNotFound
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.announcements[ann.ID]; !ok {
		return announce.Announcement{}, announce.ErrNotFound
	}
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.announcements[id]; ok {
			delete(repo.db.announcements, id)
			n++
		}
	}
	return n, nil
}
