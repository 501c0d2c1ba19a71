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
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc         *user.Service
		CourseSvc       *course.Service
		ProgressSvc     *progress.Service
		NotificationSvc *notification.Service
		MessageSvc      *message.Service

		DisableReqLogs bool
	}

	Server struct {
		deps     Deps
		app      *echo.Echo
		tokens   *TokenService
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps Deps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		tokens:   NewTokenService(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Logger.SetLevel(log.INFO)
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	auth := authMiddleware(s.tokens, s.deps.UserSvc)
	registerUserAPI(s.app, auth, s.deps, s.tokens)
	registerCourseAPI(s.app.Group("/courses", auth), s.deps)
	registerNotificationAPI(s.app.Group("/notifications", auth), s.deps)
	registerMessageAPI(s.app.Group("/messages", auth), s.deps)
	registerDashboardAPI(s.app.Group("/dashboard", auth), s.deps)
}

// Tokens returns the service signing the access tokens of this server.
func (s *Server) Tokens() *TokenService {
	return s.tokens
}

// Start blocks until the server stops. Failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks for a graceful shutdown, unless one is already pending.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
