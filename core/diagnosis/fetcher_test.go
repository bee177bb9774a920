package diagnosis_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/diagnosis"
)

type testLogger struct{}

func (testLogger) Enable(bool)                        {}
func (testLogger) Debug(string, ...interface{})       {}
func (testLogger) Info(string, ...interface{})        {}
func (testLogger) Warn(string, ...interface{})        {}
func (testLogger) Error(string, ...interface{})       {}
func (testLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

func newTestFetcher(probes []string, timeout time.Duration) diagnosis.Fetcher {
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	conf := &core.Config{}
	conf.Diagnosis.FetchTimeout = timeout
	conf.Diagnosis.UserAgent = "buddybow-test/1.0"
	conf.Diagnosis.ProbeTemplates = probes
	return diagnosis.NewHTTPFetcher(conf, testLogger{})
}

func TestFetcherEnvelopeResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json, text/html;q=0.9", r.Header.Get("Accept"))
		assert.Equal(t, "buddybow-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"status": "completed", "result": {"personalityType": "Explorer", "pdfUrl": "https://x/p.pdf"}}`))
	}))
	defer srv.Close()

	res, err := newTestFetcher(nil, 0).Fetch(context.Background(), srv.URL+"/x?id=42")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Explorer", res.PersonalityType)
	assert.Equal(t, "https://x/p.pdf", res.PDFURL)
}

func TestFetcherFlatResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"personalityType": "Builder", "strengths": ["focus"], "comment": "solid"}`))
	}))
	defer srv.Close()

	res, err := newTestFetcher(nil, 0).Fetch(context.Background(), srv.URL+"/result/9")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Builder", res.PersonalityType)
	assert.Equal(t, "solid", res.Comment)
	assert.JSONEq(t, `["focus"]`, string(res.Strengths))
}

func TestFetcherEnvelopeStillProcessing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "processing"}`))
	}))
	defer srv.Close()

	res, err := newTestFetcher(nil, 0).Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFetcherNotFoundMeansNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	res, err := newTestFetcher([]string{"{origin}/api/diagnosis/{id}"}, 0).Fetch(context.Background(), srv.URL+"/x?id=42")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFetcherUnparseableBodyMeansNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>still working on it</body></html>`))
	}))
	defer srv.Close()

	res, err := newTestFetcher(nil, 0).Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFetcherTimeoutMeansNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	res, err := newTestFetcher(nil, 50*time.Millisecond).Fetch(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFetcherServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := newTestFetcher(nil, 0).Fetch(context.Background(), srv.URL+"/x")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestFetcherProbesBeforeDirectURL(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/diagnosis/42" {
			_, _ = w.Write([]byte(`{"personalityType": "Explorer"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	probes := []string{"{origin}/api/results/{id}", "{origin}/api/diagnosis/{id}"}
	res, err := newTestFetcher(probes, 0).Fetch(context.Background(), srv.URL+"/share?id=42")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Explorer", res.PersonalityType)
	assert.Equal(t, []string{"/api/results/42", "/api/diagnosis/42"}, paths)
}

func TestFetcherIDExtraction(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"id query param", "https://diag.example/x?id=42", "42"},
		{"uid query param", "https://diag.example/x?uid=abc", "abc"},
		{"resultId query param", "https://diag.example/x?resultId=r-7", "r-7"},
		{"last path segment", "https://diag.example/results/99", "99"},
		{"no identifier", "https://diag.example/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, diagnosis.ExtractID(u))
		})
	}
}
