package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) withSignupCount(sess session.StudySession) session.StudySession {
	var count int
	for _, su := range repo.db.signups {
		if su.SessionID == sess.ID {
			count++
		}
	}
	sess.SignupCount = count
	return sess
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.StudySession) (session.StudySession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, from time.Time, ordering []core.DBOrdering) ([]session.StudySession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var sessions []session.StudySession
	for _, sess := range repo.db.sessions {
		if !from.IsZero() && sess.StartsAt.Before(from) {
			continue
		}
		sessions = append(sessions, repo.withSignupCount(*sess))
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartsAt.Before(sessions[j].StartsAt) })
	return sessions, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.StudySession, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sess, ok := repo.db.sessions[id]; ok {
		return repo.withSignupCount(*sess), nil
	}
	return session.StudySession{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.StudySession) (session.StudySession, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sessions[sess.ID]; !ok {
		return session.StudySession{}, session.ErrNotFound
	}
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) DeleteSessionsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.sessions[id]; ok {
			delete(repo.db.sessions, id)
			n++
		}
		for suID, su := range repo.db.signups {
			if su.SessionID == id {
				delete(repo.db.signups, suID)
			}
		}
	}
	return n, nil
}

func (repo *sessionRepository) CreateSignup(ctx context.Context, su session.Signup) (session.Signup, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if su.ID == "" {
		su.ID = uuid.NewString()
	}
	repo.db.signups[su.ID] = &su
	return su, nil
}

func (repo *sessionRepository) GetSignup(ctx context.Context, sessionID, userID string) (session.Signup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, su := range repo.db.signups {
		if su.SessionID == sessionID && su.UserID == userID {
			return *su, nil
		}
	}
	return session.Signup{}, session.ErrNotSigned
}

func (repo *sessionRepository) DeleteSignup(ctx context.Context, sessionID, userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, su := range repo.db.signups {
		if su.SessionID == sessionID && su.UserID == userID {
			delete(repo.db.signups, id)
			return nil
		}
	}
	return session.ErrNotSigned
}

func (repo *sessionRepository) QuerySignups(ctx context.Context, sessionID string) ([]session.Signup, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var signups []session.Signup
	for _, su := range repo.db.signups {
		if su.SessionID == sessionID {
			signups = append(signups, *su)
		}
	}
	sort.Slice(signups, func(i, j int) bool { return signups[i].CreatedAt.Before(signups[j].CreatedAt) })
	return signups, nil
}
