package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/assessment"
	"github.com/mwanzohq/mwanzo/core/attendance"
	"github.com/mwanzohq/mwanzo/core/audit"
	"github.com/mwanzohq/mwanzo/core/dashboard"
	"github.com/mwanzohq/mwanzo/core/school"
	"github.com/mwanzohq/mwanzo/core/timetable"
)

type (
	// ServerDeps carries everything the API server needs; all fields
	// are required unless noted otherwise.
	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger

		UserSvc       account.ServiceInterface
		SchoolSvc     *school.Service
		TimetableSvc  *timetable.Service
		AssessmentSvc *assessment.Service
		AttendanceSvc *attendance.Service
		DashboardSvc  *dashboard.Service
		AuditSvc      *audit.Service

		Validate   *validator.Validate
		Translator ut.Translator

		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps: deps,
		app:  echo.New(),
		auth: &authenticator{
			conf:      deps.Conf,
			usrSvc:    deps.UserSvc,
			schoolSvc: deps.SchoolSvc,
		},
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig())

	registerAuthAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.AuditSvc, s.deps.Validate)
	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.AuditSvc, s.deps.Validate, s.deps.Translator)
	registerSchoolAPI(v1, jwt, s.deps.SchoolSvc, s.deps.AuditSvc, s.deps.Validate)
	registerTimetableAPI(v1, jwt, s.deps.TimetableSvc, s.deps.AuditSvc, s.deps.Validate)
	registerAssessmentAPI(v1, jwt, s.deps.AssessmentSvc, s.deps.AuditSvc, s.deps.Validate)
	registerAttendanceAPI(v1, jwt, s.deps.AttendanceSvc, s.deps.AuditSvc, s.deps.Validate)
	registerDashboardAPI(v1, jwt, s.deps.DashboardSvc)
	registerAuditAPI(v1, jwt, s.deps.AuditSvc)
}

// Start runs the server and reports its terminal error on Errors().
// It also relays SIGINT/SIGTERM on ShutdownSignal().
func (s *server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.errs <- s.app.Start(s.deps.Conf.Server.Host)
}

func (s *server) Errors() <-chan error { return s.errs }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }

func (s *server) Close() error { return s.app.Close() }

// signalShutdown requests a graceful shutdown from within a request.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Mwanzo API!")
}
