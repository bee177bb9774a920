package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/consult"
)

type consultationRepository struct {
	db *DB
}

var _ consult.Repository = (*consultationRepository)(nil) // interface compliance check

func NewConsultationRepository(db *DB) *consultationRepository {
	return &consultationRepository{db: db}
}

func (repo *consultationRepository) CreateConsultation(ctx context.Context, cons consult.Consultation) (consult.Consultation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if cons.ID == "" {
		cons.ID = uuid.NewString()
	}
	repo.db.consultations[cons.ID] = &cons
	return cons, nil
}

func (repo *consultationRepository) QueryConsultations(ctx context.Context, userID string, ordering []core.DBOrdering) ([]consult.Consultation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var conss []consult.Consultation
	for _, cons := range repo.db.consultations {
		if userID != "" && cons.UserID != userID {
			continue
		}
		conss = append(conss, *cons)
	}
	sort.Slice(conss, func(i, j int) bool { return conss[i].CreatedAt.After(conss[j].CreatedAt) })
	return conss, nil
}

func (repo *consultationRepository) GetConsultationByID(ctx context.Context, id string) (consult.Consultation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cons, ok := repo.db.consultations[id]; ok {
		return *cons, nil
	}
	return consult.Consultation{}, consult.ErrNotFound
}

func (repo *consultationRepository) UpdateConsultation(ctx context.Context, cons consult.Consultation) (consult.Consultation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.consultations[cons.ID]; !ok {
		return consult.Consultation{}, consult.ErrNotFound
	}
	repo.db.consultations[cons.ID] = &cons
	return cons, nil
}
