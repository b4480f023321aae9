// Package api exposes the classifier over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okian/trainage/internal/adapters/http/swagger"
	"github.com/okian/trainage/internal/adapters/mq/queue"
	"github.com/okian/trainage/internal/adapters/repository"
	service "github.com/okian/trainage/internal/app"
	"github.com/okian/trainage/internal/audit"
	"github.com/okian/trainage/internal/classification"
	model "github.com/okian/trainage/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TierDependencies
	ProfileDependencies
	WorkoutDependencies
	AuditDependencies
}

// Server wires HTTP routes for the classifier API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	tierHandler    *TierHandler
	profileHandler *ProfileHandler
	workoutHandler *WorkoutHandler
	auditHandler   *AuditHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		tierHandler:    NewTierHandler(deps),
		profileHandler: NewProfileHandler(deps),
		workoutHandler: NewWorkoutHandler(deps),
		auditHandler:   NewAuditHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r gin.IRouter) {
	r.GET("/healthz", s.healthHandler.HandleHealth)
	r.GET("/stats", s.statsHandler.HandleStats)

	users := r.Group("/v1/users/:id")
	users.GET("/tier", s.tierHandler.HandleGetTier)
	users.GET("/classification", s.tierHandler.HandleGetClassification)
	users.GET("/history", s.tierHandler.HandleGetHistory)
	users.GET("/audits", s.auditHandler.HandleGetAudits)
	users.PUT("/profile", s.profileHandler.HandlePutProfile)
	users.POST("/workouts", s.workoutHandler.HandlePostWorkout)
	users.POST("/audit", s.auditHandler.HandlePostAudit)
}

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	ratePerMinute int
	rateBurst     int
}

// WithRateLimit limits each client IP to perMinute requests with burst.
// Zero disables limiting.
func WithRateLimit(perMinute, burst int) RouterOption {
	return func(c *routerConfig) {
		c.ratePerMinute = perMinute
		c.rateBurst = burst
	}
}

// NewRouter builds a gin engine with recovery, metrics, rate limiting, the
// API docs and every route.
func NewRouter(ctx context.Context, deps Dependencies, statsProvider StatsProvider, opts ...RouterOption) *gin.Engine {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	r := gin.New()
	r.Use(gin.Recovery(), MetricsMiddleware(), RateLimitMiddleware(cfg.ratePerMinute, cfg.rateBurst))
	NewServer(deps, statsProvider).Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps error kinds from the layers below to HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
		writeError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrMismatch),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidRecord),
		errors.Is(err, model.ErrInvalidProfile),
		errors.Is(err, model.ErrInvalidWorkout),
		errors.Is(err, classification.ErrEmptyUserID),
		errors.Is(err, audit.ErrEmptyUserID):
		writeError(c, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, ErrBackpressure):
		writeError(c, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(c, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
