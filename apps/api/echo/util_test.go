package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/buddybow/backend/apps/api/echo"
	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/announce"
	"github.com/buddybow/backend/core/consult"
	"github.com/buddybow/backend/core/course"
	"github.com/buddybow/backend/core/diagnosis"
	"github.com/buddybow/backend/core/interview"
	"github.com/buddybow/backend/core/roadmap"
	"github.com/buddybow/backend/core/session"
	"github.com/buddybow/backend/core/upload"
	"github.com/buddybow/backend/core/user"
	emailsvc "github.com/buddybow/backend/services/email"
	logsvc "github.com/buddybow/backend/services/logger"
	dummydb "github.com/buddybow/backend/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server Server
	conf   *core.Config
	db     *dummydb.DB

	usrRepo  user.Repository
	diagRepo diagnosis.Repository
}

// stubFetcher stands in for the external diagnosis service.
type stubFetcher struct {
	fetch func(ctx context.Context, rawURL string) (*diagnosis.Result, error)
}

func (f stubFetcher) Fetch(ctx context.Context, rawURL string) (*diagnosis.Result, error) {
	if f.fetch == nil {
		return nil, nil
	}
	return f.fetch(ctx, rawURL)
}

// memStorage is a blob backend that keeps nothing; handler tests only care
// about the returned URL.
type memStorage struct{}

func (memStorage) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, body)
	return "http://media.local/" + key, nil
}

func (memStorage) Delete(ctx context.Context, key string) error { return nil }

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:                  true,
		AppName:                   "Buddybow",
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Storage: core.StorageConfig{
			MaxUploadSize: 1 << 20,
		},
		Diagnosis: core.DiagnosisConfig{
			SweepSecret:      "sweep-secret",
			BatchSize:        50,
			SweepConcurrency: 4,
			FetchTimeout:     2 * time.Second,
			MaxFailedChecks:  5,
			StaleClaimAfter:  15 * time.Minute,
			WorkerQueueSize:  16,
		},
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func setup(t *testing.T, fetcher diagnosis.Fetcher) *testApp {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup(): %v", err)
	}

	conf := newTestConfig()

	logger := logsvc.NewConsoleLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	logger.Enable(false)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	usrRepo := dummydb.NewUserRepository(db)
	diagRepo := dummydb.NewDiagnosisRepository(db)

	diagSvc := diagnosis.NewService(diagRepo, fetcher, conf, logger)
	t.Cleanup(diagSvc.Stop)

	server := NewServer(&ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,

		UserSvc:      user.NewService(usrRepo, mailSvc, conf),
		CourseSvc:    course.NewService(dummydb.NewCourseRepository(db)),
		SessionSvc:   session.NewService(dummydb.NewSessionRepository(db), mailSvc, conf),
		AnnounceSvc:  announce.NewService(dummydb.NewAnnouncementRepository(db)),
		RoadmapSvc:   roadmap.NewService(dummydb.NewRoadmapRepository(db)),
		InterviewSvc: interview.NewService(dummydb.NewInterviewRepository(db)),
		ConsultSvc:   consult.NewService(dummydb.NewConsultationRepository(db)),
		UploadSvc:    upload.NewService(dummydb.NewUploadedFileRepository(db), memStorage{}, logger),
		DiagnosisSvc: diagSvc,

		DisableReqLogs: true,
	})

	return &testApp{
		server:   server,
		conf:     conf,
		db:       db,
		usrRepo:  usrRepo,
		diagRepo: diagRepo,
	}
}

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()

	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
