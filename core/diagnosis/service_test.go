package diagnosis_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/diagnosis"
	dummydb "github.com/buddybow/backend/storage/database/dummy"
)

// stubFetcher lets each test script the external service's behavior.
type stubFetcher struct {
	fetch func(ctx context.Context, url string) (*diagnosis.Result, error)
	calls int64
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*diagnosis.Result, error) {
	atomic.AddInt64(&f.calls, 1)
	return f.fetch(ctx, url)
}

func (f *stubFetcher) callCount() int { return int(atomic.LoadInt64(&f.calls)) }

func newTestService(t *testing.T, fetcher diagnosis.Fetcher, retryFailed bool) (diagnosis.ServiceInterface, diagnosis.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewDiagnosisRepository(db)

	conf := &core.Config{}
	conf.Diagnosis.BatchSize = 50
	conf.Diagnosis.SweepConcurrency = 10
	conf.Diagnosis.WorkerQueueSize = 64
	conf.Diagnosis.RetryFailed = retryFailed
	conf.Diagnosis.MaxFailedChecks = 5
	conf.Diagnosis.StaleClaimAfter = 30 * time.Minute

	svc := diagnosis.NewService(repo, fetcher, conf, testLogger{})
	t.Cleanup(svc.Stop)
	return svc, repo
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	return validator.New()
}

func readyResult() *diagnosis.Result {
	return &diagnosis.Result{PersonalityType: "Explorer", PDFURL: "https://x/p.pdf"}
}

func TestSubmitRejectsDuplicateURL(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return nil, nil
	}}
	svc, _ := newTestService(t, fetcher, false)
	ctx := context.Background()

	nr := diagnosis.NewRequest{URL: "https://diag.example/x?id=42"}
	req, err := svc.Submit(ctx, "user-7", nr)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusPending, req.Status)

	_, err = svc.Submit(ctx, "user-7", nr)
	assert.Equal(t, diagnosis.ErrAlreadyRegistered, errors.Cause(err))

	reqs, err := svc.QueryOwnRequests(ctx, "user-7")
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	// another user may register the same URL
	_, err = svc.Submit(ctx, "user-8", nr)
	assert.NoError(t, err)
}

func TestSweepCompletesRequest(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)
	require.NotEmpty(t, got.DiagnosisID)
	require.NotNil(t, got.LastCheckedAt)

	// a completed request must link to a resolvable diagnosis
	d, err := repo.GetDiagnosisByID(ctx, got.DiagnosisID)
	require.NoError(t, err)
	assert.Equal(t, "user-7", d.UserID)
	assert.Equal(t, "Explorer", d.PersonalityType)
	assert.Equal(t, req.ID, d.RequestID)
}

func TestSweepNotReadyLeavesPending(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return nil, nil // timeout or 404 upstream
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	_, err = svc.Sweep(ctx)
	require.NoError(t, err)

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusPending, got.Status)
	assert.NotNil(t, got.LastCheckedAt)
	assert.Empty(t, got.DiagnosisID)

	_, err = repo.GetDiagnosisByRequestID(ctx, req.ID)
	assert.Equal(t, diagnosis.ErrDiagnosisNotFound, errors.Cause(err))
}

func TestSweepFetchErrorMarksFailed(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return nil, errors.New("unexpected status 500")
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount) // the pass itself completed; the failure is recorded on the row

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "unexpected status 500")
	assert.NotNil(t, got.LastCheckedAt)

	// failed requests are not retried by default
	res, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestSweepRetriesFailedWhenEnabled(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, true /* retryFailed */)
	ctx := context.Background()

	req, err := repo.CreateRequest(ctx, diagnosis.Request{
		UserID:       "user-7",
		URL:          "https://diag.example/x?id=42",
		Status:       diagnosis.StatusFailed,
		ErrorMessage: "unexpected status 500",
		CheckCount:   1,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestSweepRecoversStaleProcessing(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	// a crash between claim and update leaves a day-old processing row
	staleAt := time.Now().UTC().Add(-24 * time.Hour)
	stale, err := repo.CreateRequest(ctx, diagnosis.Request{
		UserID:        "user-7",
		URL:           "https://diag.example/x?id=42",
		Status:        diagnosis.StatusProcessing,
		LastCheckedAt: &staleAt,
		CreatedAt:     staleAt,
	})
	require.NoError(t, err)

	freshAt := time.Now().UTC()
	fresh, err := repo.CreateRequest(ctx, diagnosis.Request{
		UserID:        "user-8",
		URL:           "https://diag.example/x?id=43",
		Status:        diagnosis.StatusProcessing,
		LastCheckedAt: &freshAt,
		CreatedAt:     freshAt,
	})
	require.NoError(t, err)

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)

	// the stale claim is retaken and driven to completion
	got, err := repo.GetRequestByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)
	assert.Equal(t, 1, fetcher.callCount())

	// the fresh in-flight claim is left alone
	got, err = repo.GetRequestByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusProcessing, got.Status)
	require.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, freshAt, *got.LastCheckedAt)
}

func TestSweepExcludesExhaustedFailed(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, true /* retryFailed */)
	ctx := context.Background()

	_, err := repo.CreateRequest(ctx, diagnosis.Request{
		UserID:       "user-7",
		URL:          "https://diag.example/x?id=42",
		Status:       diagnosis.StatusFailed,
		ErrorMessage: "unexpected status 500",
		CheckCount:   5, // == MaxFailedChecks
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked)
	assert.Equal(t, 0, fetcher.callCount())
}

func TestSweepHonorsBatchSize(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return nil, nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	for i := 0; i < 75; i++ {
		_, err := repo.CreateRequest(ctx, diagnosis.Request{
			UserID:    "user-7",
			URL:       fmt.Sprintf("https://diag.example/x?id=%d", i),
			Status:    diagnosis.StatusPending,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Checked)
	assert.Equal(t, 50, fetcher.callCount())

	reqs, err := svc.QueryOwnRequests(ctx, "user-7")
	require.NoError(t, err)
	var untouched int
	for _, req := range reqs {
		if req.LastCheckedAt == nil {
			untouched++
		}
	}
	assert.Equal(t, 25, untouched)
}

func TestConcurrentChecksCreateOneDiagnosis(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		time.Sleep(10 * time.Millisecond) // hold the race window open
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.ManualCheck(ctx, "user-7", req.ID))
		}()
	}
	wg.Wait()

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)

	ds, err := svc.QueryOwnDiagnoses(ctx, "user-7")
	require.NoError(t, err)
	assert.Len(t, ds, 1)
	assert.Equal(t, got.DiagnosisID, ds[0].ID)
}

func TestManualCheck(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	// only the owner may check
	err = svc.ManualCheck(ctx, "user-8", req.ID)
	assert.Equal(t, diagnosis.ErrNotFound, errors.Cause(err))
	assert.Equal(t, 0, fetcher.callCount())

	require.NoError(t, svc.ManualCheck(ctx, "user-7", req.ID))
	assert.Equal(t, 1, fetcher.callCount())

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)

	// completed requests are skipped silently, no network call
	require.NoError(t, svc.ManualCheck(ctx, "user-7", req.ID))
	assert.Equal(t, 1, fetcher.callCount())
}

func TestManualCheckRetriesFailed(t *testing.T) {
	var fail int64 = 1
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		if atomic.LoadInt64(&fail) == 1 {
			return nil, errors.New("connection refused")
		}
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	require.NoError(t, svc.ManualCheck(ctx, "user-7", req.ID))
	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, diagnosis.StatusFailed, got.Status)

	// a manual check is the escape hatch for a stranded failed request
	atomic.StoreInt64(&fail, 0)
	require.NoError(t, svc.ManualCheck(ctx, "user-7", req.ID))
	got, err = repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)
}

func TestSubmitTriggersBackgroundCheck(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	svc.Start()
	ctx := context.Background()

	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := repo.GetRequestByID(ctx, req.ID)
		return err == nil && got.Status == diagnosis.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitAfterStopIsDropped(t *testing.T) {
	fetcher := &stubFetcher{fetch: func(ctx context.Context, url string) (*diagnosis.Result, error) {
		return readyResult(), nil
	}}
	svc, repo := newTestService(t, fetcher, false)
	svc.Start()
	svc.Stop()
	ctx := context.Background()

	// a submission racing the shutdown must not panic; the background pass
	// is simply dropped and the request stays pending for the next sweep
	req, err := svc.Submit(ctx, "user-7", diagnosis.NewRequest{URL: "https://diag.example/x?id=42"})
	require.NoError(t, err)

	got, err := repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusPending, got.Status)
	assert.Equal(t, 0, fetcher.callCount())

	res, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)

	got, err = repo.GetRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusCompleted, got.Status)
}

func TestNewRequestValidate(t *testing.T) {
	validate := newValidator(t)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://diag.example/x?id=42", false},
		{"valid http", "http://diag.example/x", false},
		{"empty", "", true},
		{"no scheme", "diag.example/x", true},
		{"bad scheme", "ftp://diag.example/x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nr := diagnosis.NewRequest{URL: tt.url}
			err := nr.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
