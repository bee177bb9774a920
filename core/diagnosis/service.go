package diagnosis

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/buddybow/backend/core"
)

var (
	// errors
	ErrNotFound          = errors.New("diagnosis request not found")
	ErrDiagnosisNotFound = errors.New("diagnosis not found")
	ErrAlreadyRegistered = errors.New("url already registered")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		// GetRequestByUserURL looks up a user's request for an exact URL,
		// ErrNotFound when absent.
		GetRequestByUserURL(ctx context.Context, userID, url string) (Request, error)
		QueryRequestsByUserID(ctx context.Context, userID string, ordering []core.DBOrdering) ([]Request, error)
		// QueryOutstandingRequests returns up to limit requests whose status
		// is one of the given values, oldest last-checked first. When
		// maxFailedChecks > 0, failed requests that already reached that many
		// checks are excluded.
		QueryOutstandingRequests(ctx context.Context, statuses []Status, maxFailedChecks, limit int) ([]Request, error)
		// MarkProcessing transitions the request to processing and stamps
		// lastCheckedAt, but only if its current status is one of from, or is
		// processing with a last check older than staleBefore (a claim
		// stranded by a crash). A zero staleBefore disables the takeover.
		// It reports whether the claim succeeded.
		MarkProcessing(ctx context.Context, id string, from []Status, staleBefore, at time.Time) (bool, error)
		UpdateRequest(ctx context.Context, req Request) (Request, error)

		CreateDiagnosis(ctx context.Context, d Diagnosis) (Diagnosis, error)
		// GetDiagnosisByRequestID returns ErrDiagnosisNotFound when the
		// request has produced no diagnosis yet.
		GetDiagnosisByRequestID(ctx context.Context, requestID string) (Diagnosis, error)
		GetDiagnosisByID(ctx context.Context, id string) (Diagnosis, error)
		QueryDiagnosesByUserID(ctx context.Context, userID string, ordering []core.DBOrdering) ([]Diagnosis, error)
	}

	ServiceInterface interface {
		// Submit registers a URL and schedules one reconciliation pass in
		// the background; the caller does not wait for the network round trip.
		Submit(ctx context.Context, userID string, nr NewRequest) (Request, error)
		// ManualCheck re-checks one request owned by userID synchronously.
		// Completed requests are skipped silently; failed ones are retried.
		ManualCheck(ctx context.Context, userID, requestID string) error
		// Sweep reconciles one batch of outstanding requests concurrently.
		Sweep(ctx context.Context) (SweepResult, error)

		QueryOwnRequests(ctx context.Context, userID string) ([]Request, error)
		QueryOwnDiagnoses(ctx context.Context, userID string) ([]Diagnosis, error)
		GetDiagnosisByID(ctx context.Context, id string) (Diagnosis, error)

		Start()
		Stop()
	}

	service struct {
		repo    Repository
		fetcher Fetcher
		conf    *core.Config
		logger  core.Logger
		worker  *worker
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, fetcher Fetcher, conf *core.Config, logger core.Logger) *service {
	svc := &service{
		repo:    repo,
		fetcher: fetcher,
		conf:    conf,
		logger:  logger,
	}
	svc.worker = newWorker(conf.Diagnosis.WorkerQueueSize, logger, svc.reconcile)
	return svc
}

// Start launches the background worker serving fire-and-forget reconciliations.
func (svc *service) Start() { svc.worker.start() }

// Stop drains the worker queue and waits for in-flight reconciliations.
func (svc *service) Stop() { svc.worker.stop() }

func (svc *service) Submit(ctx context.Context, userID string, nr NewRequest) (Request, error) {
	if _, err := svc.repo.GetRequestByUserURL(ctx, userID, nr.URL); err == nil {
		return Request{}, ErrAlreadyRegistered
	} else if errors.Cause(err) != ErrNotFound {
		return Request{}, err
	}

	req, err := svc.repo.CreateRequest(ctx, Request{
		UserID:    userID,
		URL:       nr.URL,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Request{}, err
	}

	svc.worker.enqueue(req.ID)
	return req, nil
}

func (svc *service) ManualCheck(ctx context.Context, userID, requestID string) error {
	req, err := svc.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.UserID != userID {
		return ErrNotFound
	}
	if req.Status == StatusCompleted {
		return nil
	}
	// a manual check is the escape hatch for stranded failed requests
	return svc.reconcile(ctx, requestID, time.Time{}, StatusPending, StatusProcessing, StatusFailed)
}

func (svc *service) Sweep(ctx context.Context) (SweepResult, error) {
	claimable := []Status{StatusPending}
	var maxFailedChecks int
	if svc.conf.Diagnosis.RetryFailed {
		claimable = append(claimable, StatusFailed)
		maxFailedChecks = svc.conf.Diagnosis.MaxFailedChecks
	}

	// with a staleness threshold the batch also loads processing rows:
	// a claim stranded mid-flight by a crash is retaken once it is older
	// than the threshold, while fresh in-flight siblings lose the
	// conditional claim and are skipped
	statuses := claimable
	var staleBefore time.Time
	if d := svc.conf.Diagnosis.StaleClaimAfter; d > 0 {
		staleBefore = time.Now().UTC().Add(-d)
		statuses = append(statuses, StatusProcessing)
	}

	batch, err := svc.repo.QueryOutstandingRequests(ctx, statuses, maxFailedChecks, svc.conf.Diagnosis.BatchSize)
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "loading sweep batch")
	}

	var successCount, failureCount int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.conf.Diagnosis.SweepConcurrency)
	for _, req := range batch {
		req := req
		g.Go(func() error {
			// per-item failures are counted, never propagated: one broken
			// URL must not abort its siblings
			if err := svc.reconcile(gctx, req.ID, staleBefore, claimable...); err != nil {
				svc.logger.Warn("sweep reconciliation failed", "request_id", req.ID, "error", err)
				atomic.AddInt64(&failureCount, 1)
				return nil
			}
			atomic.AddInt64(&successCount, 1)
			return nil
		})
	}
	_ = g.Wait()

	return SweepResult{
		Success:      true,
		Checked:      len(batch),
		SuccessCount: int(successCount),
		FailureCount: int(failureCount),
	}, nil
}

// reconcile runs one full pass over a single request: claim it, ask the
// external service, then advance the status machine based on the outcome.
// The claim is a conditional update; losing the race to another trigger is
// not an error, the pass simply ends.
func (svc *service) reconcile(ctx context.Context, requestID string, staleBefore time.Time, from ...Status) error {
	now := time.Now().UTC()
	claimed, err := svc.repo.MarkProcessing(ctx, requestID, from, staleBefore, now)
	if err != nil {
		return errors.Wrap(err, "claiming request")
	}
	if !claimed {
		return nil
	}

	req, err := svc.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}

	res, ferr := svc.fetcher.Fetch(ctx, req.URL)
	now = time.Now().UTC()
	req.LastCheckedAt = &now

	switch {
	case ferr != nil:
		req.Status = StatusFailed
		req.ErrorMessage = ferr.Error()
		req.CheckCount++
		if svc.conf.Diagnosis.RetryFailed && req.CheckCount >= svc.conf.Diagnosis.MaxFailedChecks {
			svc.logger.Warn("diagnosis request exhausted retries", "request_id", req.ID, "checks", req.CheckCount)
		}
	case res == nil:
		// not ready yet; a later sweep retries
		req.Status = StatusPending
		req.ErrorMessage = ""
	default:
		d, err := svc.ensureDiagnosis(ctx, req, res)
		if err != nil {
			return err
		}
		req.Status = StatusCompleted
		req.DiagnosisID = d.ID
		req.ErrorMessage = ""
	}

	if _, err = svc.repo.UpdateRequest(ctx, req); err != nil {
		return errors.Wrap(err, "persisting reconciliation outcome")
	}
	return nil
}

// ensureDiagnosis creates the diagnosis record for a fetched result, or
// returns the existing one when a concurrent check already created it.
func (svc *service) ensureDiagnosis(ctx context.Context, req Request, res *Result) (Diagnosis, error) {
	d, err := svc.repo.GetDiagnosisByRequestID(ctx, req.ID)
	if err == nil {
		return d, nil
	}
	if errors.Cause(err) != ErrDiagnosisNotFound {
		return Diagnosis{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateDiagnosis(ctx, Diagnosis{
		UserID:          req.UserID,
		RequestID:       req.ID,
		PersonalityType: res.PersonalityType,
		SkillMap:        res.SkillMap,
		Strengths:       res.Strengths,
		Weaknesses:      res.Weaknesses,
		Recommendations: res.Recommendations,
		PDFURL:          res.PDFURL,
		Comment:         res.Comment,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *service) QueryOwnRequests(ctx context.Context, userID string) ([]Request, error) {
	return svc.repo.QueryRequestsByUserID(ctx, userID, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) QueryOwnDiagnoses(ctx context.Context, userID string) ([]Diagnosis, error) {
	return svc.repo.QueryDiagnosesByUserID(ctx, userID, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) GetDiagnosisByID(ctx context.Context, id string) (Diagnosis, error) {
	return svc.repo.GetDiagnosisByID(ctx, id)
}
