package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
	"unistuhelper/internal/config"
	handlerErrors "unistuhelper/internal/http-server/handlers/errors"
	"unistuhelper/internal/http-server/handlers/health"
	"unistuhelper/internal/http-server/handlers/invite"
	"unistuhelper/internal/http-server/handlers/release"
	"unistuhelper/internal/http-server/handlers/user"
	"unistuhelper/internal/http-server/middleware/ratelimit"
	"unistuhelper/internal/http-server/middleware/realip"
	"unistuhelper/internal/http-server/middleware/requestlog"
	"unistuhelper/internal/http-server/middleware/timeout"
	"unistuhelper/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	user.Core
	invite.Core
	release.Core
	health.Core
}

// NewRouter mounts the public endpoints. Credential endpoints share one per-client rate limit.
// Forwarding headers name the client only when the peer is a configured trusted proxy.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler) (http.Handler, error) {
	proxies, err := conf.TrustedProxies()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(realip.New(proxies))
	router.Use(requestlog.New(log))
	router.Use(middleware.Recoverer)
	router.Use(timeout.Timeout(conf.MongoTimeout()))
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(handlerErrors.NotFound(log))
	router.MethodNotAllowed(handlerErrors.NotAllowed(log))

	limiter := ratelimit.New(conf.RateLimit.RequestsPerMin, conf.RateLimit.Burst, log)
	router.Group(func(auth chi.Router) {
		auth.Use(limiter.Handler)
		auth.Post("/register", user.Register(log, handler))
		auth.Post("/login", user.Login(log, handler))
		auth.Post("/createInvite", invite.Create(log, handler))
		auth.Post("/invites", invite.Create(log, handler))
	})

	router.Post("/check-update", release.CheckUpdate(log, handler))
	router.Get("/download", release.Download(log, handler))
	router.Get("/health", health.Check(log, handler))

	return router, nil
}

func New(conf *config.Config, log *slog.Logger, handler Handler) (*Server, error) {
	server := &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router, err := NewRouter(conf, log, handler)
	if err != nil {
		return nil, err
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:     router,
		ErrorLog:    httpLog,
		ReadTimeout: 5 * time.Second,
		// release downloads stream the whole archive within this window
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return server, nil
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	err = s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
