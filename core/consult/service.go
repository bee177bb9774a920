package consult

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
)

var ErrNotFound = errors.New("consultation not found")

type (
	Repository interface {
		CreateConsultation(ctx context.Context, cons Consultation) (Consultation, error)
		// QueryConsultations returns consultations newest first;
		// userID narrows the result to one user's consultations when non-empty.
		QueryConsultations(ctx context.Context, userID string, ordering []core.DBOrdering) ([]Consultation, error)
		GetConsultationByID(ctx context.Context, id string) (Consultation, error)
		UpdateConsultation(ctx context.Context, cons Consultation) (Consultation, error)
	}

	ServiceInterface interface {
		Open(ctx context.Context, userID string, nc NewConsultation) (Consultation, error)
		QueryOwn(ctx context.Context, userID string) ([]Consultation, error)
		QueryAll(ctx context.Context) ([]Consultation, error)
		GetByID(ctx context.Context, id string) (Consultation, error)
		Answer(ctx context.Context, id string, ac AnswerConsultation) (Consultation, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Open(ctx context.Context, userID string, nc NewConsultation) (Consultation, error) {
	now := time.Now().UTC()
	cons := Consultation{
		UserID:    userID,
		Topic:     nc.Topic,
		Body:      nc.Body,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateConsultation(ctx, cons)
}

func (svc *service) QueryOwn(ctx context.Context, userID string) ([]Consultation, error) {
	return svc.repo.QueryConsultations(ctx, userID, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) QueryAll(ctx context.Context) ([]Consultation, error) {
	return svc.repo.QueryConsultations(ctx, "", []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) GetByID(ctx context.Context, id string) (Consultation, error) {
	return svc.repo.GetConsultationByID(ctx, id)
}

func (svc *service) Answer(ctx context.Context, id string, ac AnswerConsultation) (Consultation, error) {
	orig, err := svc.repo.GetConsultationByID(ctx, id)
	if err != nil {
		return Consultation{}, err
	}
	now := time.Now().UTC()
	if ac.Answer != "" {
		orig.Answer = ac.Answer
		orig.AnsweredAt = &now
		orig.Status = StatusAnswered
	}
	if ac.Close {
		orig.Status = StatusClosed
	}
	orig.UpdatedAt = now
	return svc.repo.UpdateConsultation(ctx, orig)
}
