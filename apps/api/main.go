package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/trezcool/eslclass/apps/api/echo"
	"github.com/trezcool/eslclass/apps/signaling"
	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/lesson"
	"github.com/trezcool/eslclass/core/pronunciation"
	"github.com/trezcool/eslclass/core/user"
	"github.com/trezcool/eslclass/services/email"
	"github.com/trezcool/eslclass/services/files"
	"github.com/trezcool/eslclass/services/logger"
	"github.com/trezcool/eslclass/storage/bolt"
	"github.com/trezcool/eslclass/storage/database"
	"github.com/trezcool/eslclass/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	zl, err := newZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up zap: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Wait()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = database.Migrate(db.DB, "up"); err != nil {
		logger.Fatal("migrating database", err)
	}

	store, err := boltdb.Open(conf.Practice.BoltPath)
	if err != nil {
		logger.Fatal("opening practice store", err)
	}
	defer func() { _ = store.Close() }()

	storage, err := filesvc.New(context.Background(), conf.Storage)
	if err != nil {
		logger.Fatal("setting up file storage", err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	clsSvc := class.NewService(sqlxrepos.NewClassRepository(db), mailSvc)
	asgSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db), clsSvc, mailSvc)
	lsnSvc := lesson.NewService(sqlxrepos.NewLessonRepository(db), boltdb.NewCompletionRepository(store), clsSvc)
	prnSvc := pronunciation.NewService(boltdb.NewPracticeRepository(store))

	hub := signaling.NewHub(zl.Named("signaling"), conf.Server.AllowedOrigins...)
	go hub.Run()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", err)
		}
	}()

	// =========================================================================
	// Start API Service

	var mediaDir string
	if conf.Storage.Driver == "" || conf.Storage.Driver == "local" {
		mediaDir = filepath.Clean(conf.Storage.LocalDir)
	}
	server := echoapi.NewServer(
		&echoapi.Options{
			Address:        conf.Server.Address(),
			DisableReqLogs: !conf.Debug,
			AllowedOrigins: conf.Server.AllowedOrigins,
			MediaDir:       mediaDir,
		},
		&echoapi.Deps{
			Logger:           logger,
			UserSvc:          usrSvc,
			ClassSvc:         clsSvc,
			AssignmentSvc:    asgSvc,
			LessonSvc:        lsnSvc,
			PronunciationSvc: prnSvc,
			Storage:          storage,
			Hub:              hub,
		},
	)

	go server.Start()
	logger.Info("API listening", map[string]interface{}{"address": conf.Server.Address()})

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error("server error", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)

			if err = server.Close(); err != nil {
				logger.Error("could not force stop server", err)
			}
		}
	}
}

func newZapLogger(conf *core.Config) (*zap.Logger, error) {
	if conf.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction(zap.Fields(zap.String("env", conf.Env), zap.String("build", conf.Build)))
}
