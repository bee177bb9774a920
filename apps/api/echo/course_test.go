package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybow/backend/core/course"
	"github.com/buddybow/backend/core/user"
)

func TestCourseVisibility(t *testing.T) {
	app := setup(t, stubFetcher{})

	member := createUser(t, app.usrRepo, "Member", "memberx", "member@test.cd", "", []string{user.RoleMember}, true)
	manager := createUser(t, app.usrRepo, "Coach", "coachx", "coach@test.cd", "", []string{user.RoleManager}, true)
	memberToken := getToken(t, app.conf, member)
	managerToken := getToken(t, app.conf, manager)

	// members cannot create courses
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses", memberToken, []byte(`{"title": "Go 101"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/courses", managerToken, []byte(`{"title": "Go 101"}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var crs course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))

	// drafts are invisible to members
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses", memberToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, memberToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// but staff sees them
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, managerToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// publishing makes the course visible
	req, rec = newAuthRequest(http.MethodPut, "/v1/courses/"+crs.ID, managerToken, []byte(`{"is_published": true}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, "/v1/courses", memberToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var courses []course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, crs.ID, courses[0].ID)
}

func TestChapterCompletionAndProgress(t *testing.T) {
	app := setup(t, stubFetcher{})

	member := createUser(t, app.usrRepo, "Member", "memberx", "member@test.cd", "", []string{user.RoleMember}, true)
	manager := createUser(t, app.usrRepo, "Coach", "coachx", "coach@test.cd", "", []string{user.RoleManager}, true)
	memberToken := getToken(t, app.conf, member)
	managerToken := getToken(t, app.conf, manager)

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses", managerToken, []byte(`{"title": "Go 101", "is_published": true}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var crs course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))

	addChapter := func(title string, pos int) course.Chapter {
		body := marchallObj(t, course.NewChapter{Title: title, Position: pos})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/chapters", managerToken, body)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var chap course.Chapter
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chap))
		return chap
	}
	chap1 := addChapter("Basics", 0)
	addChapter("Concurrency", 1)

	progress := func() course.Progress {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/progress", memberToken)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var prog course.Progress
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prog))
		return prog
	}

	prog := progress()
	assert.Equal(t, 0, prog.Completed)
	assert.Equal(t, 2, prog.Total)

	// completing is idempotent
	for i := 0; i < 2; i++ {
		req, rec = newAuthRequest(http.MethodPost, "/v1/courses/chapters/"+chap1.ID+"/complete", memberToken)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	prog = progress()
	assert.Equal(t, 1, prog.Completed)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/chapters/"+chap1.ID+"/complete", memberToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	prog = progress()
	assert.Equal(t, 0, prog.Completed)

	// completing an unknown chapter is a 404
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/chapters/unknown/complete", memberToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
