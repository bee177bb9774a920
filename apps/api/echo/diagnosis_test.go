package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybow/backend/core/diagnosis"
	"github.com/buddybow/backend/core/user"
)

func submitRequest(t *testing.T, app *testApp, token, url string) diagnosis.Request {
	t.Helper()

	req, rec := newAuthRequest(http.MethodPost, "/v1/diagnosis/requests", token, []byte(`{"url": "`+url+`"}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dr diagnosis.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dr))
	return dr
}

func TestDiagnosisSubmitSweepAndResults(t *testing.T) {
	app := setup(t, stubFetcher{
		fetch: func(ctx context.Context, rawURL string) (*diagnosis.Result, error) {
			return &diagnosis.Result{PersonalityType: "strategist", Comment: "all good"}, nil
		},
	})

	member := createUser(t, app.usrRepo, "Member", "memberx", "member@test.cd", "", []string{user.RoleMember}, true)
	other := createUser(t, app.usrRepo, "Other", "otherx", "other@test.cd", "", []string{user.RoleMember}, true)
	token := getToken(t, app.conf, member)

	dr := submitRequest(t, app, token, "https://diag.example.com/results/abc123")
	assert.Equal(t, diagnosis.StatusPending, dr.Status)

	// the same URL cannot be registered twice by the same user
	req, rec := newAuthRequest(http.MethodPost, "/v1/diagnosis/requests", token, []byte(`{"url": "https://diag.example.com/results/abc123"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// the sweep endpoint rejects callers without the shared secret
	req, rec = newRequest(http.MethodGet, "/v1/diagnosis/sweep")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newRequest(http.MethodGet, "/v1/diagnosis/sweep")
	req.Header.Set("X-Sweep-Secret", "wrong")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a proper sweep reconciles the pending request
	req, rec = newRequest(http.MethodGet, "/v1/diagnosis/sweep")
	req.Header.Set("X-Sweep-Secret", app.conf.Diagnosis.SweepSecret)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sweep diagnosis.SweepResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sweep))
	assert.True(t, sweep.Success)
	assert.Equal(t, 1, sweep.Checked)
	assert.Equal(t, 1, sweep.SuccessCount)
	assert.Equal(t, 0, sweep.FailureCount)

	// the request is now completed and points at its diagnosis
	req, rec = newAuthRequest(http.MethodGet, "/v1/diagnosis/requests", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var reqs []diagnosis.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, diagnosis.StatusCompleted, reqs[0].Status)
	require.NotEmpty(t, reqs[0].DiagnosisID)

	req, rec = newAuthRequest(http.MethodGet, "/v1/diagnosis/results", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []diagnosis.Diagnosis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "strategist", results[0].PersonalityType)
	assert.Equal(t, member.ID, results[0].UserID)

	// the owner can read the result; another member cannot
	req, rec = newAuthRequest(http.MethodGet, "/v1/diagnosis/results/"+results[0].ID, token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/diagnosis/results/"+results[0].ID, getToken(t, app.conf, other))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiagnosisSweepDisabledWithoutSecret(t *testing.T) {
	app := setup(t, stubFetcher{})
	app.conf.Diagnosis.SweepSecret = ""

	req, rec := newRequest(http.MethodGet, "/v1/diagnosis/sweep")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiagnosisManualCheck(t *testing.T) {
	app := setup(t, stubFetcher{}) // external service never ready

	member := createUser(t, app.usrRepo, "Member", "memberx", "member@test.cd", "", []string{user.RoleMember}, true)
	other := createUser(t, app.usrRepo, "Other", "otherx", "other@test.cd", "", []string{user.RoleMember}, true)
	token := getToken(t, app.conf, member)

	dr := submitRequest(t, app, token, "https://diag.example.com/results/xyz")

	// only the owner may check the request
	req, rec := newAuthRequest(http.MethodPost, "/v1/diagnosis/check", getToken(t, app.conf, other),
		[]byte(`{"diagnosisUrlId": "`+dr.ID+`"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodPost, "/v1/diagnosis/check", token, []byte(`{"diagnosisUrlId": "unknown"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// not ready: the request goes back to pending with a fresh lastCheckedAt
	req, rec = newAuthRequest(http.MethodPost, "/v1/diagnosis/check", token, []byte(`{"diagnosisUrlId": "`+dr.ID+`"}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var checked diagnosis.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checked))
	assert.Equal(t, diagnosis.StatusPending, checked.Status)
	assert.NotNil(t, checked.LastCheckedAt)
}
