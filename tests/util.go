package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
	blobsvc "github.com/trezcool/academia/services/blobstore"
	emailsvc "github.com/trezcool/academia/services/email"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

const DefaultPassword = "Sup3r-Secret"

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

var _ core.Logger = NopLogger{}

// FailingCommit runs fn on the wrapped Transactor then fails with Err, as a rejected commit would.
type FailingCommit struct {
	core.Transactor
	Err error
}

func (tx FailingCommit) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := tx.Transactor.RunInTx(ctx, fn); err != nil {
		return err
	}
	return tx.Err
}

// App wires every service on the in-memory store and a temporary blob directory.
type App struct {
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator

	DB            *inmemdb.DB
	Users         user.Repository
	Courses       course.Repository
	Progress      progress.Repository
	Notifications notification.Repository
	Messages      message.Repository
	Blobs         *blobsvc.LocalStore
	Mail          *emailsvc.ConsoleService

	UserSvc         *user.Service
	CourseSvc       *course.Service
	ProgressSvc     *progress.Service
	NotificationSvc *notification.Service
	MessageSvc      *message.Service
}

func NewConfig(t *testing.T) *core.Config {
	return &core.Config{
		Env:              "TEST",
		AppName:          "Academia",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: "noreply@academia.test",
		FrontendBaseURL:  "http://localhost:3000",
		Server:           core.ServerConfig{JWTExpirationDelta: 30 * time.Minute},
		Database:         core.DatabaseConfig{Engine: "inmem"},
		Storage:          core.StorageConfig{Backend: "local", UploadDir: t.TempDir()},
	}
}

// NewValidator returns a validator with the core and user rules registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return validate, translator
}

func NewApp(t *testing.T, adminEmails ...string) *App {
	conf := NewConfig(t)
	conf.Notification.AdminEmails = adminEmails

	blobs, err := blobsvc.NewLocalStore(conf.Storage.UploadDir)
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}
	validate, translator := NewValidator()
	logger := NopLogger{}

	db := inmemdb.NewDB()
	app := &App{
		Conf:          conf,
		Validate:      validate,
		Translator:    translator,
		DB:            db,
		Users:         inmemdb.NewUserRepository(db),
		Courses:       inmemdb.NewCourseRepository(db),
		Progress:      inmemdb.NewProgressRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
		Messages:      inmemdb.NewMessageRepository(db),
		Blobs:         blobs,
		Mail:          emailsvc.NewConsoleServiceMock(conf, logger),
	}

	notifier := notification.NewNotifier(app.Notifications, notification.NewConfiguredAdmins(app.Users, adminEmails))
	app.UserSvc = user.NewService(db, app.Users, app.Mail, validate, conf.Site())
	app.CourseSvc = course.NewService(db, app.Courses, blobs, progress.Enrollments{Repo: app.Progress}, notifier, validate, logger)
	app.ProgressSvc = progress.NewService(db, app.Progress, app.Courses, notifier)
	app.NotificationSvc = notification.NewService(db, app.Notifications)
	app.MessageSvc = message.NewService(db, app.Messages, app.Users, blobs, validate, logger)
	return app
}

type UserOpt func(usr *user.User)

func Unapproved() UserOpt { return func(usr *user.User) { usr.IsApproved = false } }
func Inactive() UserOpt   { return func(usr *user.User) { usr.IsActive = false } }

// CreateUser stores an approved and active user with DefaultPassword.
func CreateUser(t *testing.T, repo user.Repository, role, dept, email string, opts ...UserOpt) user.User {
	usr := user.User{
		LastName:   "Doe",
		FirstName:  role,
		Department: dept,
		Role:       role,
		Email:      email,
		IsActive:   true,
		IsApproved: true,
		CreatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&usr)
	}
	if err := usr.SetPassword(DefaultPassword); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse stores a course instructed by instructor, bypassing notifications.
func CreateCourse(t *testing.T, repo course.Repository, instructor user.User, title string, createdAt ...time.Time) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Title:        title,
		InstructorID: instructor.ID,
		Department:   instructor.Department,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
