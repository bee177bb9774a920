package session

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("session not found")
	ErrAlreadySigned  = errors.New("already signed up for this session")
	ErrSessionFull    = errors.New("session is full")
	ErrSessionStarted = errors.New("session has already started")
	ErrNotSigned      = errors.New("not signed up for this session")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess StudySession) (StudySession, error)
		// QuerySessions returns sessions starting after `from`, ordered by start time.
		QuerySessions(ctx context.Context, from time.Time, ordering []core.DBOrdering) ([]StudySession, error)
		GetSessionByID(ctx context.Context, id string) (StudySession, error)
		UpdateSession(ctx context.Context, sess StudySession) (StudySession, error)
		DeleteSessionsByID(ctx context.Context, ids ...string) (int, error)

		CreateSignup(ctx context.Context, su Signup) (Signup, error)
		GetSignup(ctx context.Context, sessionID, userID string) (Signup, error)
		DeleteSignup(ctx context.Context, sessionID, userID string) error
		QuerySignups(ctx context.Context, sessionID string) ([]Signup, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, createdBy string, ns NewStudySession) (StudySession, error)
		QueryUpcoming(ctx context.Context) ([]StudySession, error)
		GetByID(ctx context.Context, id string) (StudySession, error)
		Update(ctx context.Context, id string, us UpdateStudySession) (StudySession, error)
		Delete(ctx context.Context, ids ...string) error

		SignUp(ctx context.Context, sess StudySession, usr user.User) (Signup, error)
		CancelSignup(ctx context.Context, sessionID, userID string) error
		Participants(ctx context.Context, sessionID string) ([]Signup, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) Create(ctx context.Context, createdBy string, ns NewStudySession) (StudySession, error) {
	now := time.Now().UTC()
	sess := StudySession{
		Title:       ns.Title,
		Description: ns.Description,
		StartsAt:    ns.StartsAt.UTC(),
		EndsAt:      ns.EndsAt.UTC(),
		Capacity:    ns.Capacity,
		Location:    ns.Location,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) QueryUpcoming(ctx context.Context) ([]StudySession, error) {
	return svc.repo.QuerySessions(ctx, time.Now().UTC(), []core.DBOrdering{{Field: "starts_at", Ascending: true}})
}

func (svc *service) GetByID(ctx context.Context, id string) (StudySession, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateStudySession) (StudySession, error) {
	orig, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return StudySession{}, err
	}
	orig.Title = us.Title
	orig.Description = us.Description
	orig.Location = us.Location
	if us.StartsAt != nil {
		orig.StartsAt = us.StartsAt.UTC()
	}
	if us.EndsAt != nil {
		orig.EndsAt = us.EndsAt.UTC()
	}
	if us.Capacity != nil {
		orig.Capacity = *us.Capacity
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteSessionsByID(ctx, ids...)
	return err
}

// SignUp registers a user for a session; rejects full, started or duplicate signups.
func (svc *service) SignUp(ctx context.Context, sess StudySession, usr user.User) (Signup, error) {
	if sess.Started(time.Now().UTC()) {
		return Signup{}, core.NewValidationError(ErrSessionStarted)
	}
	if sess.Full() {
		return Signup{}, core.NewValidationError(ErrSessionFull)
	}
	if _, err := svc.repo.GetSignup(ctx, sess.ID, usr.ID); err == nil {
		return Signup{}, core.NewValidationError(ErrAlreadySigned)
	} else if errors.Cause(err) != ErrNotSigned {
		return Signup{}, err
	}

	su, err := svc.repo.CreateSignup(ctx, Signup{
		SessionID: sess.ID,
		UserID:    usr.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Signup{}, err
	}

	if usr.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject: "You're signed up: " + sess.Title,
			BodyStr: "Your spot for \"" + sess.Title + "\" on " + sess.StartsAt.Format(time.RFC1123) + " is confirmed.",
		})
	}
	return su, nil
}

func (svc *service) CancelSignup(ctx context.Context, sessionID, userID string) error {
	return svc.repo.DeleteSignup(ctx, sessionID, userID)
}

func (svc *service) Participants(ctx context.Context, sessionID string) ([]Signup, error) {
	if _, err := svc.repo.GetSessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySignups(ctx, sessionID)
}
