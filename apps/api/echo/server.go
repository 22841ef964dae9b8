package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/multierr"

	"github.com/trezcool/eslclass/apps/signaling"
	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/assignment"
	"github.com/trezcool/eslclass/core/class"
	"github.com/trezcool/eslclass/core/lesson"
	"github.com/trezcool/eslclass/core/pronunciation"
	"github.com/trezcool/eslclass/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		AllowedOrigins []string
		// MediaDir is served under /media when uploads are stored on the local disk.
		MediaDir string
	}

	Deps struct {
		Logger           core.Logger
		UserSvc          user.Service
		ClassSvc         class.Service
		AssignmentSvc    assignment.Service
		LessonSvc        lesson.Service
		PronunciationSvc pronunciation.Service
		Storage          core.FileStorage
		Hub              *signaling.Hub
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts     *Options
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options, deps *Deps) Server {
	s := &server{
		opts:     opts,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = core.Conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = core.Conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)
	s.app.GET("/api/health", health)
	if s.opts.MediaDir != "" {
		s.app.Static("/media", s.opts.MediaDir)
	}

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	auth := chain(jwt, activeUserMiddleware(s.deps.UserSvc))

	registerAuthAPI(api, jwt, s.deps.UserSvc)
	registerUserAPI(api, jwt, s.deps.UserSvc)
	registerClassAPI(api, auth, s.deps.ClassSvc)
	registerAssignmentAPI(api, auth, s.deps.AssignmentSvc)
	registerLessonAPI(api, auth, s.deps.LessonSvc)
	registerPronunciationAPI(api, auth, s.deps.PronunciationSvc)
	if s.deps.Storage != nil {
		registerUploadAPI(api, auth, s.deps.Storage)
	}
	if s.deps.Hub != nil {
		wsAuth := chain(middleware.JWTWithConfig(wsJWTConfig), activeUserMiddleware(s.deps.UserSvc))
		registerSignalingAPI(s.app, wsAuth, s.deps.Hub, s.deps.Logger)
	}
}

// chain composes middlewares, the first one running first.
func chain(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Shutdown stops the signaling hub and gracefully shuts the HTTP server down.
func (s *server) Shutdown(ctx context.Context) error {
	var err error
	if s.deps.Hub != nil {
		err = multierr.Append(err, s.deps.Hub.Stop(ctx))
	}
	return multierr.Append(err, s.app.Shutdown(ctx))
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": core.Conf.Build})
}
