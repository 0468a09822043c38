package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/assessment"
	"github.com/mwanzohq/mwanzo/core/attendance"
	"github.com/mwanzohq/mwanzo/core/audit"
	"github.com/mwanzohq/mwanzo/core/dashboard"
	"github.com/mwanzohq/mwanzo/core/school"
	"github.com/mwanzohq/mwanzo/core/timetable"
	emailsvc "github.com/mwanzohq/mwanzo/services/email"
	inmemdb "github.com/mwanzohq/mwanzo/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// nopLogger satisfies core.Logger; handler tests assert on responses,
// not log output.
type nopLogger struct{}

func (nopLogger) Enable(bool)                         {}
func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Warn(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{})        {}

var _ core.Logger = nopLogger{}

type testApp struct {
	server Server
	auth   *authenticator

	usrSvc        account.ServiceInterface
	schoolSvc     *school.Service
	timetableSvc  *timetable.Service
	assessmentSvc *assessment.Service
	attendanceSvc *attendance.Service
	auditSvc      *audit.Service
}

func testConfig() *core.Config {
	return &core.Config{
		TestMode:                 true,
		AppName:                  "Mwanzo",
		SecretKey:                "secret",
		FrontendBaseURL:          "http://localhost:3000",
		EmailConfirmTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func setup(t *testing.T) *testApp {
	t.Helper()
	emailsvc.ClearSentMessages()

	conf := testConfig()
	db := inmemdb.Open()
	logger := nopLogger{}

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := account.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
	schoolSvc := school.NewService(inmemdb.NewSchoolRepository(db), usrSvc)
	timetableSvc := timetable.NewService(inmemdb.NewTimetableRepository(db))
	assessmentSvc := assessment.NewService(inmemdb.NewAssessmentRepository(db), schoolSvc)
	attendanceSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), schoolSvc)
	dashboardSvc := dashboard.NewService(inmemdb.NewDashboardRepository(db), schoolSvc)
	auditSvc := audit.NewService(inmemdb.NewAuditRepository(db), logger)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		SchoolSvc:      schoolSvc,
		TimetableSvc:   timetableSvc,
		AssessmentSvc:  assessmentSvc,
		AttendanceSvc:  attendanceSvc,
		DashboardSvc:   dashboardSvc,
		AuditSvc:       auditSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testApp{
		server: server,
		auth: &authenticator{
			conf:      conf,
			usrSvc:    usrSvc,
			schoolSvc: schoolSvc,
		},
		usrSvc:        usrSvc,
		schoolSvc:     schoolSvc,
		timetableSvc:  timetableSvc,
		assessmentSvc: assessmentSvc,
		attendanceSvc: attendanceSvc,
		auditSvc:      auditSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (app *testApp) createUser(t *testing.T, first, last, email, pwd string, role account.Role, confirmed bool) account.User {
	t.Helper()
	usr, err := app.usrSvc.Create(context.Background(), account.NewUser{
		FirstName:       first,
		LastName:        last,
		Email:           email,
		Role:            role.String(),
		Password:        pwd,
		PasswordConfirm: pwd,
	}, confirmed)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) getToken(t *testing.T, usr account.User) string {
	t.Helper()
	claims, err := app.auth.claimsFor(context.Background(), usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	token, err := app.auth.generateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
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
	extra    interface{}
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
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
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
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
