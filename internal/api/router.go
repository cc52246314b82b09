package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/creatist/postfeed/internal/posts"
	"github.com/creatist/postfeed/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	rest    *PostsREST
	checks  map[string]HealthCheck
	logger  *zap.Logger
}

// NewRouter creates a new API router. checks are run by /health.
func NewRouter(svc *posts.Service, checks map[string]HealthCheck) *Router {
	logger := logging.WithComponent("api-router")
	handler := NewJSONRPCHandler()
	NewPostsAPI(svc).Register(handler)

	return &Router{
		handler: handler,
		rest:    NewPostsREST(svc, logging.WithComponent("rest")),
		checks:  checks,
		logger:  logger,
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	api := engine.Group("/", Tracing(), Identity(r.logger), RequestLogger(logging.WithComponent("http")))
	api.POST("/rpc", r.handler.Handle)
	r.rest.Register(api.Group("/api/v1/posts"))
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			r.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "OK"
	}

	state := "OK"
	if status != http.StatusOK {
		state = "DEGRADED"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"service":      "postfeed",
		"dependencies": deps,
	})
}
