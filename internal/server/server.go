package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pandoras-vault/apiserver/config"
	"github.com/pandoras-vault/apiserver/internal/db"
	"github.com/pandoras-vault/apiserver/internal/events"
	"github.com/pandoras-vault/apiserver/internal/handlers"
	"github.com/pandoras-vault/apiserver/internal/mq"
	"github.com/pandoras-vault/apiserver/internal/services"
	"github.com/pandoras-vault/apiserver/internal/storage"
	"github.com/pandoras-vault/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
	log        *zap.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.New(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var publisher *events.Publisher
	if broker != nil {
		publisher = events.NewPublisher(broker, cfg.Events.Channel, log)
		log.Info("progress events enabled",
			zap.String("driver", cfg.Events.Driver),
			zap.String("channel", cfg.Events.Channel),
		)
	}

	avatars, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if avatars != nil {
		log.Info("avatar storage enabled", zap.String("driver", cfg.Storage.Driver))
	}

	userRepo := store.NewUserRepository(dbConn)
	progressRepo := store.NewProgressRepository(dbConn)

	userService := services.NewUserService(userRepo)
	progressService := services.NewProgressService(progressRepo, publisher)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, avatars, jwtSecret, cfg.JWT.TTL)
	})
	router.Route("/session", func(r chi.Router) {
		handlers.SessionRouter(r, progressService, authMiddleware)
	})
	if key := strings.TrimSpace(cfg.Operator.ServiceKey); key != "" {
		router.Route("/operator", func(r chi.Router) {
			handlers.OperatorRouter(r, progressService, key)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     publisher,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if err := s.events.Close(); err != nil {
		s.log.Warn("closing event publisher", zap.Error(err))
	}
	return s.httpServer.Close()
}
