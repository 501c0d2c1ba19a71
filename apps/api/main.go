package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
	blobsvc "github.com/trezcool/academia/services/blobstore"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/database/sqlxrepos"
)

// stores groups the repositories of one storage engine.
type stores struct {
	tx            core.Transactor
	users         user.Repository
	courses       course.Repository
	progress      progress.Repository
	notifications notification.Repository
	messages      message.Repository
	close         func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	ctx := context.Background()

	// set up storage
	st, err := setUpStores(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = st.close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	blobs, closeBlobs, err := setUpBlobStore(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob store: %v", err), err)
	}
	defer func() {
		if err = closeBlobs(); err != nil {
			logger.Error("Failed to close blob store", err)
		}
	}()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	notifier := notification.NewNotifier(st.notifications, notification.NewConfiguredAdmins(st.users, conf.Notification.AdminEmails))
	deps := echoapi.Deps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		UserSvc:         user.NewService(st.tx, st.users, mailSvc, validate, conf.Site()),
		CourseSvc:       course.NewService(st.tx, st.courses, blobs, progress.Enrollments{Repo: st.progress}, notifier, validate, logger),
		ProgressSvc:     progress.NewService(st.tx, st.progress, st.courses, notifier),
		NotificationSvc: notification.NewService(st.tx, st.notifications),
		MessageSvc:      message.NewService(st.tx, st.messages, st.users, blobs, validate, logger),
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)
	expvar.NewString("storage").Set(conf.Storage.Backend)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(deps)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStores(ctx context.Context, conf *core.Config) (stores, error) {
	switch conf.Database.Engine {
	case "inmem":
		db := inmemdb.NewDB()
		return stores{
			tx:            db,
			users:         inmemdb.NewUserRepository(db),
			courses:       inmemdb.NewCourseRepository(db),
			progress:      inmemdb.NewProgressRepository(db),
			notifications: inmemdb.NewNotificationRepository(db),
			messages:      inmemdb.NewMessageRepository(db),
			close:         func() error { return nil },
		}, nil
	case "postgres":
		db, err := setUpDB(ctx, conf)
		if err != nil {
			return stores{}, err
		}
		return stores{
			tx:            database.NewTransactor(db),
			users:         sqlxrepos.NewUserRepository(db),
			courses:       sqlxrepos.NewCourseRepository(db),
			progress:      sqlxrepos.NewProgressRepository(db),
			notifications: sqlxrepos.NewNotificationRepository(db),
			messages:      sqlxrepos.NewMessageRepository(db),
			close:         db.Close,
		}, nil
	default:
		return stores{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setUpBlobStore(ctx context.Context, conf *core.Config) (core.BlobStore, func() error, error) {
	switch conf.Storage.Backend {
	case "local":
		store, err := blobsvc.NewLocalStore(conf.Storage.UploadDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case "gcs":
		store, err := blobsvc.NewGCSStore(ctx, conf.Storage.GCSBucket, conf.Storage.GCSCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
	}
}
