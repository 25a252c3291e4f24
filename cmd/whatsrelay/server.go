package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/sirupsen/logrus"

	"whatsrelay/internal/constants"
	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/metrics"
	"whatsrelay/internal/middleware"
	"whatsrelay/internal/models"
	"whatsrelay/internal/service"
)

// AccountManager is the part of the supervisor the admin API drives
type AccountManager interface {
	AddAccount(ctx context.Context, accountID string) (*models.Account, error)
	StartAccount(ctx context.Context, accountID string) error
	StopAccount(ctx context.Context, accountID string) error
	DeleteAccount(ctx context.Context, accountID string) (bool, error)
	AccountsStatus(ctx context.Context) ([]models.AccountState, error)
	PairingCode(accountID string) (service.PairingCode, bool)
	LiveCount() int
}

// ServerDeps bundles what the admin API needs
type ServerDeps struct {
	Config   *models.Config
	Accounts AccountManager
	Store    service.Store
	Groups   *service.GroupDirectory
	DB       *sql.DB
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
}

type Server struct {
	cfg       *models.Config
	router    *mux.Router
	accounts  AccountManager
	store     service.Store
	groups    *service.GroupDirectory
	health    healthcheck.Handler
	metrics   *metrics.Metrics
	limiter   *middleware.RateLimiter
	logger    *logrus.Logger
	startedAt time.Time
	now       func() time.Time
	server    *http.Server
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		cfg:      deps.Config,
		router:   mux.NewRouter(),
		accounts: deps.Accounts,
		store:    deps.Store,
		groups:   deps.Groups,
		health:   healthcheck.NewHandler(),
		metrics:  deps.Metrics,
		limiter: middleware.NewRateLimiter(
			deps.Config.API.RateLimitPerSecond,
			deps.Config.API.RateLimitBurst,
			time.Duration(constants.DefaultRateLimiterIdleMinutes)*time.Minute,
		),
		logger:    deps.Logger,
		startedAt: time.Now(),
		now:       time.Now,
	}

	if deps.DB != nil {
		s.health.AddReadinessCheck("database", healthcheck.DatabasePingCheck(deps.DB, time.Duration(constants.DefaultHealthCheckTimeoutSec)*time.Second))
	}
	s.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(constants.MaxGoroutines))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger, s.metrics))

	s.router.HandleFunc("/health/live", s.health.LiveEndpoint).Methods(http.MethodGet)
	s.router.HandleFunc("/health/ready", s.health.ReadyEndpoint).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware(s.logger))
	api.Use(middleware.APIKeyAuth(s.cfg.API.APIKey, s.logger))

	api.HandleFunc("/system/status", s.handleStatus()).Methods(http.MethodGet)
	api.HandleFunc("/system/logs", s.handleLogs()).Methods(http.MethodGet)

	api.HandleFunc("/accounts", s.handleListAccounts()).Methods(http.MethodGet)
	api.HandleFunc("/accounts/register", s.handleRegisterAccount()).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{accountId}/start", s.handleStartAccount()).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{accountId}/stop", s.handleStopAccount()).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{accountId}/qr", s.handleAccountQR()).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}/groups", s.handleAccountGroups()).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{accountId}", s.handleDeleteAccount()).Methods(http.MethodDelete)

	api.HandleFunc("/rules", s.handleCreateRule()).Methods(http.MethodPost)
	api.HandleFunc("/rules/{accountId}", s.handleListRules()).Methods(http.MethodGet)
	api.HandleFunc("/rules/{ruleId:[0-9]+}", s.handleUpdateRule()).Methods(http.MethodPut)
	api.HandleFunc("/rules/{ruleId:[0-9]+}", s.handleDeleteRule()).Methods(http.MethodDelete)
}

// Handler exposes the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.App.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(constants.DefaultServerReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(constants.DefaultServerWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(constants.DefaultServerIdleTimeoutSec) * time.Second,
	}

	s.logger.WithField("port", s.cfg.App.Port).Info("Starting admin API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// PruneLimiters drops idle per-client limiters until ctx is done
func (s *Server) PruneLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(constants.DefaultRateLimiterIdleMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(); n > 0 {
				s.logger.WithField(service.LogFieldCount, n).Debug("Pruned idle rate limiters")
			}
		}
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.DefaultMaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewInvalidInputError("Invalid JSON body", err)
	}
	return nil
}
