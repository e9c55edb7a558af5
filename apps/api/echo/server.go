package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
	metricsvc "github.com/trezcool/academia/services/metrics"
)

type (
	// SessionStore persists browser sessions under opaque session ids.
	SessionStore interface {
		Create(ctx context.Context, rec session.Record) (string, error)
		Load(ctx context.Context, sid string) (session.Record, error)
		Delete(ctx context.Context, sid string) error
		Persistence(sid string) session.Persistence
	}

	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Metrics       *metricsvc.Metrics
		Validate      *validator.Validate
		Translator    ut.Translator
		Sessions      SessionStore
		Registry      *session.Registry
		UserSvc       user.Service
		TrackSvc      track.Service
		EnrollmentSvc enrollment.Service
		InvoiceSvc    invoice.Service
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
		ServerDeps
		app      *echo.Echo
		auth     *jwtAuth
		pages    *pageRenderer
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Metrics, "Metrics"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.Sessions, "Sessions"),
		vala.IsNotNil(deps.Registry, "Registry"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.TrackSvc, "TrackSvc"),
		vala.IsNotNil(deps.EnrollmentSvc, "EnrollmentSvc"),
		vala.IsNotNil(deps.InvoiceSvc, "InvoiceSvc"),
	).CheckAndPanic()

	s := &server{
		ServerDeps: deps,
		app:        echo.New(),
		auth:       newJWTAuth(deps.Conf),
		pages:      newPageRenderer(deps.Conf, deps.Logger),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(metricsMiddleware(s.Metrics))
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Renderer = s.pages
	s.app.Debug = s.Conf.Debug
	s.app.HideBanner = true
	s.app.Logger.SetLevel(log.INFO)

	s.app.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	api := s.app.Group("/api")
	jwt := s.auth.middleware()
	registerAuthAPI(api, jwt, s)
	registerUserAPI(api, jwt, s)
	registerTrackAPI(api, jwt, s)
	registerEnrollmentAPI(api, jwt, s)
	registerInvoiceAPI(api, jwt, s)

	registerPages(s.app, s)
	registerSessionEvents(s.app, s)
}

func (s *server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
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
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
