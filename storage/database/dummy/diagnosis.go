package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/diagnosis"
)

type diagnosisRepository struct {
	db *DB
}

var _ diagnosis.Repository = (*diagnosisRepository)(nil) // interface compliance check

func NewDiagnosisRepository(db *DB) *diagnosisRepository {
	return &diagnosisRepository{db: db}
}

func (repo *diagnosisRepository) CreateRequest(ctx context.Context, req diagnosis.Request) (diagnosis.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	repo.db.diagRequests[req.ID] = &req
	return req, nil
}

func (repo *diagnosisRepository) GetRequestByID(ctx context.Context, id string) (diagnosis.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if req, ok := repo.db.diagRequests[id]; ok {
		return *req, nil
	}
	return diagnosis.Request{}, diagnosis.ErrNotFound
}

func (repo *diagnosisRepository) GetRequestByUserURL(ctx context.Context, userID, url string) (diagnosis.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, req := range repo.db.diagRequests {
		if req.UserID == userID && req.URL == url {
			return *req, nil
		}
	}
	return diagnosis.Request{}, diagnosis.ErrNotFound
}

func (repo *diagnosisRepository) QueryRequestsByUserID(ctx context.Context, userID string, ordering []core.DBOrdering) ([]diagnosis.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var reqs []diagnosis.Request
	for _, req := range repo.db.diagRequests {
		if req.UserID == userID {
			reqs = append(reqs, *req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}

func (repo *diagnosisRepository) QueryOutstandingRequests(ctx context.Context, statuses []diagnosis.Status, maxFailedChecks, limit int) ([]diagnosis.Request, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	wanted := make(map[diagnosis.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var reqs []diagnosis.Request
	for _, req := range repo.db.diagRequests {
		if !wanted[req.Status] {
			continue
		}
		if maxFailedChecks > 0 && req.Status == diagnosis.StatusFailed && req.CheckCount >= maxFailedChecks {
			continue
		}
		reqs = append(reqs, *req)
	}
	// oldest last-checked first, never-checked ahead of all
	sort.Slice(reqs, func(i, j int) bool {
		ti, tj := reqs[i].LastCheckedAt, reqs[j].LastCheckedAt
		switch {
		case ti == nil && tj == nil:
			return false
		case ti == nil:
			return true
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})
	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	return reqs, nil
}

func (repo *diagnosisRepository) MarkProcessing(ctx context.Context, id string, from []diagnosis.Status, staleBefore, at time.Time) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	req, ok := repo.db.diagRequests[id]
	if !ok {
		return false, diagnosis.ErrNotFound
	}
	var claimable bool
	for _, s := range from {
		if req.Status == s {
			claimable = true
			break
		}
	}
	// a processing claim abandoned by a crash may be retaken once stale
	if !claimable && !staleBefore.IsZero() && req.Status == diagnosis.StatusProcessing {
		claimable = req.LastCheckedAt != nil && req.LastCheckedAt.Before(staleBefore)
	}
	if !claimable {
		return false, nil
	}
	req.Status = diagnosis.StatusProcessing
	t := at
	req.LastCheckedAt = &t
	return true, nil
}

func (repo *diagnosisRepository) UpdateRequest(ctx context.Context, req diagnosis.Request) (diagnosis.Request, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.diagRequests[req.ID]; !ok {
		return diagnosis.Request{}, diagnosis.ErrNotFound
	}
	repo.db.diagRequests[req.ID] = &req
	return req, nil
}

func (repo *diagnosisRepository) CreateDiagnosis(ctx context.Context, d diagnosis.Diagnosis) (diagnosis.Diagnosis, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// at most one diagnosis per request
	for _, existing := range repo.db.diagnoses {
		if existing.RequestID == d.RequestID {
			return *existing, nil
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	repo.db.diagnoses[d.ID] = &d
	return d, nil
}

func (repo *diagnosisRepository) GetDiagnosisByRequestID(ctx context.Context, requestID string) (diagnosis.Diagnosis, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, d := range repo.db.diagnoses {
		if d.RequestID == requestID {
			return *d, nil
		}
	}
	return diagnosis.Diagnosis{}, diagnosis.ErrDiagnosisNotFound
}

func (repo *diagnosisRepository) GetDiagnosisByID(ctx context.Context, id string) (diagnosis.Diagnosis, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if d, ok := repo.db.diagnoses[id]; ok {
		return *d, nil
	}
	return diagnosis.Diagnosis{}, diagnosis.ErrDiagnosisNotFound
}

func (repo *diagnosisRepository) QueryDiagnosesByUserID(ctx context.Context, userID string, ordering []core.DBOrdering) ([]diagnosis.Diagnosis, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ds []diagnosis.Diagnosis
	for _, d := range repo.db.diagnoses {
		if d.UserID == userID {
			ds = append(ds, *d)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].CreatedAt.After(ds[j].CreatedAt) })
	return ds, nil
}
