package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/buddybow/backend/core/user"
)

func TestUserLogin(t *testing.T) {
	app := setup(t, stubFetcher{})

	createUser(t, app.usrRepo, "Awa", "awadev", "awa@test.cd", "LocalPwd2!", []string{user.RoleMember}, true)
	createUser(t, app.usrRepo, "Benny", "bennydev", "benny@test.cd", "LocalPwd2!", []string{user.RoleMember}, false)

	tests := []httpTest{
		{
			name: "valid credentials", path: "/v1/users/login",
			body: []byte(`{"username": "awadev", "password": "LocalPwd2!"}`), wantCode: http.StatusOK,
		},
		{
			name: "login by email", path: "/v1/users/login",
			body: []byte(`{"username": "awa@test.cd", "password": "LocalPwd2!"}`), wantCode: http.StatusOK,
		},
		{
			name: "wrong password", path: "/v1/users/login",
			body:     []byte(`{"username": "awadev", "password": "nope"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", path: "/v1/users/login",
			body:     []byte(`{"username": "ghost", "password": "LocalPwd2!"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", path: "/v1/users/login",
			body:     []byte(`{"username": "bennydev", "password": "LocalPwd2!"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "missing fields", path: "/v1/users/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling token: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func TestUserQueryIsAdminOnly(t *testing.T) {
	app := setup(t, stubFetcher{})

	member := createUser(t, app.usrRepo, "Member", "memberx", "member@test.cd", "", []string{user.RoleMember}, true)
	admin := createUser(t, app.usrRepo, "Admin", "adminx", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "anonymous", path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "member", path: "/v1/users", token: getToken(t, app.conf, member),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin", path: "/v1/users", token: getToken(t, app.conf, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, member, admin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserDetailAccess(t *testing.T) {
	app := setup(t, stubFetcher{})

	member := createUser(t, app.usrRepo, "Member", "memberx", "member@test.cd", "", []string{user.RoleMember}, true)
	other := createUser(t, app.usrRepo, "Other", "otherx", "other@test.cd", "", []string{user.RoleMember}, true)
	admin := createUser(t, app.usrRepo, "Admin", "adminx", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "own profile", path: "/v1/users/" + member.ID, token: getToken(t, app.conf, member),
			wantCode: http.StatusOK, wantData: marchallObj(t, member),
		},
		{
			name: "someone else's profile", path: "/v1/users/" + other.ID, token: getToken(t, app.conf, member),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin reads any profile", path: "/v1/users/" + other.ID, token: getToken(t, app.conf, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
