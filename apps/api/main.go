package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/mwanzohq/mwanzo/apps/api/echo"
	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
	"github.com/mwanzohq/mwanzo/core/assessment"
	"github.com/mwanzohq/mwanzo/core/attendance"
	"github.com/mwanzohq/mwanzo/core/audit"
	"github.com/mwanzohq/mwanzo/core/dashboard"
	"github.com/mwanzohq/mwanzo/core/school"
	"github.com/mwanzohq/mwanzo/core/timetable"
	emailsvc "github.com/mwanzohq/mwanzo/services/email"
	logsvc "github.com/mwanzohq/mwanzo/services/logger"
	"github.com/mwanzohq/mwanzo/services/metrics"
	"github.com/mwanzohq/mwanzo/storage/database"
	pgrepos "github.com/mwanzohq/mwanzo/storage/database/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	zapLogger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer zapLogger.Sync()

	var logger core.Logger = zapLogger
	if !conf.Debug {
		logger = logsvc.NewRollbarLogger(zapLogger, conf)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()
	dbx := sqlx.NewDb(db, "postgres")

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := account.NewService(pgrepos.NewUserRepository(dbx), mailSvc, conf)
	schoolSvc := school.NewService(pgrepos.NewSchoolRepository(dbx), usrSvc)
	timetableSvc := timetable.NewService(pgrepos.NewTimetableRepository(dbx))
	assessmentSvc := assessment.NewService(pgrepos.NewAssessmentRepository(dbx), schoolSvc)
	attendanceSvc := attendance.NewService(pgrepos.NewAttendanceRepository(dbx), schoolSvc)
	dashboardSvc := dashboard.NewService(pgrepos.NewDashboardRepository(dbx), schoolSvc)
	auditSvc := audit.NewService(pgrepos.NewAuditRepository(dbx), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", metrics.Handler())

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			SchoolSvc:     schoolSvc,
			TimetableSvc:  timetableSvc,
			AssessmentSvc: assessmentSvc,
			AttendanceSvc: attendanceSvc,
			DashboardSvc:  dashboardSvc,
			AuditSvc:      auditSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
