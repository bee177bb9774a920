package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	echoapi "github.com/buddybow/backend/apps/api/echo"
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
	storagesvc "github.com/buddybow/backend/services/storage"
	"github.com/buddybow/backend/storage/database"
	pgdb "github.com/buddybow/backend/storage/database/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up blob storage
	blobStorage, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(pgdb.NewUserRepository(db), mailSvc, conf)
	courseSvc := course.NewService(pgdb.NewCourseRepository(db))
	sessSvc := session.NewService(pgdb.NewSessionRepository(db), mailSvc, conf)
	annSvc := announce.NewService(pgdb.NewAnnouncementRepository(db))
	rmSvc := roadmap.NewService(pgdb.NewRoadmapRepository(db))
	itvSvc := interview.NewService(pgdb.NewInterviewRepository(db))
	consSvc := consult.NewService(pgdb.NewConsultationRepository(db))
	uploadSvc := upload.NewService(pgdb.NewUploadedFileRepository(db), blobStorage, logger)
	diagSvc := diagnosis.NewService(
		pgdb.NewDiagnosisRepository(db),
		diagnosis.NewHTTPFetcher(conf, logger),
		conf,
		logger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Background Services

	diagSvc.Start()
	defer diagSvc.Stop()

	if conf.Diagnosis.SweepSchedule != "" {
		sweeper := cron.New()
		if _, err = sweeper.AddFunc(conf.Diagnosis.SweepSchedule, func() {
			res, err := diagSvc.Sweep(context.Background())
			if err != nil {
				logger.Error(fmt.Sprintf("scheduled sweep: %v", err), err)
				return
			}
			logger.Info(fmt.Sprintf(
				"scheduled sweep: checked=%d ok=%d failed=%d",
				res.Checked, res.SuccessCount, res.FailureCount,
			))
		}); err != nil {
			logger.Fatal(fmt.Sprintf("scheduling sweep %q: %v", conf.Diagnosis.SweepSchedule, err), err)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,

			UserSvc:      usrSvc,
			CourseSvc:    courseSvc,
			SessionSvc:   sessSvc,
			AnnounceSvc:  annSvc,
			RoadmapSvc:   rmSvc,
			InterviewSvc: itvSvc,
			ConsultSvc:   consSvc,
			UploadSvc:    uploadSvc,
			DiagnosisSvc: diagSvc,
		},
	)

	server.Start()
	logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))

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
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func setUpStorage(conf *core.Config) (upload.Storage, error) {
	if conf.Storage.Backend == "s3" {
		return storagesvc.NewS3Storage(context.Background(), conf)
	}
	return storagesvc.NewLocalStorage(conf), nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
