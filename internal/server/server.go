// Package server is a development implementation of the registration API.
// It speaks the same HTTP contract the console consumes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"regdesk/internal/auth"
	"regdesk/internal/httpmiddleware"
	"regdesk/internal/metrics"
	"regdesk/internal/registry"
	"regdesk/internal/store"
)

// Options configures the router.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
	Release         bool
}

// Server wires the registry to gin handlers.
type Server struct {
	svc     *registry.Service
	issuer  *auth.Issuer
	metrics *metrics.Metrics
	redis   *store.Redis
	logger  *zap.Logger
}

// New creates a server. redis may be nil.
func New(svc *registry.Service, issuer *auth.Issuer, m *metrics.Metrics, redis *store.Redis, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Server{svc: svc, issuer: issuer, metrics: m, redis: redis, logger: logger}
}

// Router builds the gin engine with every route and middleware.
func (s *Server) Router(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(s.requestLogger("/healthz", "/metrics"))
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(securityHeaders(opts.Release))
	r.Use(s.metrics.GinMiddleware())
	r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).
		OnReject(s.metrics.RateLimited).
		GinMiddleware())

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.adminLogin)
	authGroup.GET("/dashboard", s.issuer.RequireRole(auth.RoleAdmin), s.adminDashboard)

	dept := api.Group("/department")
	dept.GET("/all", s.listDepartments)
	dept.POST("/create", s.createDepartment)
	dept.POST("/login", s.departmentLogin)
	dept.GET("/profile", s.issuer.RequireRole(auth.RoleDepartment), s.departmentProfile)

	students := api.Group("/students", s.issuer.RequireRole(auth.RoleDepartment))
	students.GET("/all", s.listStudents)
	students.POST("/add", s.addStudent)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbHealthy := s.svc.Ping(ctx) == nil
	body := gin.H{"status": "ok", "db": dbHealthy}
	status := http.StatusOK
	if s.redis != nil {
		redisHealthy := s.redis.Healthy(ctx)
		body["redis"] = redisHealthy
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
	}
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

func (s *Server) requestLogger(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if _, ok := skipped[c.Request.URL.Path]; ok {
			return
		}
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func securityHeaders(release bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if release {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
