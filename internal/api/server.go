package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sevenms-engine/internal/database"
	"sevenms-engine/internal/engine"
	"sevenms-engine/internal/events"
	"sevenms-engine/internal/execution"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/proposal"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// EngineAPI is what the runner exposes to the HTTP layer
type EngineAPI interface {
	TriggerRun(ctx context.Context, symbol string, timeframe market.Timeframe) (*engine.Result, error)
	Instruments() []string
	OpenPositions(ctx context.Context) ([]execution.Position, error)
	AccountInfo(ctx context.Context) (*execution.Account, error)
	CloseProposal(ctx context.Context, proposalID string) (*proposal.Proposal, error)
	Status() map[string]interface{}
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	gate        *proposal.Gate
	eventBus    *events.EventBus
	engineAPI   EngineAPI
	config      ServerConfig
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
}

// NewServer creates a new API server. repo may be nil when the
// database is disabled.
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	gate *proposal.Gate,
	eventBus *events.EventBus,
	engineAPI EngineAPI,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8080", "http://localhost:8090"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		repo:        repo,
		gate:        gate,
		eventBus:    eventBus,
		engineAPI:   engineAPI,
		config:      config,
		rateLimiter: NewRateLimiter(120, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	InitWebSocket(eventBus, logger)

	return server
}

// rateLimitMiddleware creates a middleware that rate limits requests
// by endpoint
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	// Endpoints serving in-memory state only skip the limiter
	noRateLimitPaths := map[string]bool{
		"/api/status":           true,
		"/api/proposals":        true,
		"/api/proposals/counts": true,
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if noRateLimitPaths[path] {
			c.Next()
			return
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Rate limit exceeded, slow down",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())

	api.GET("/status", s.handleStatus)
	api.GET("/instruments", s.handleInstruments)

	api.POST("/runs", s.handleTriggerRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	api.GET("/proposals", s.handleListProposals)
	api.GET("/proposals/counts", s.handleProposalCounts)
	api.GET("/proposals/:id", s.handleGetProposal)
	api.POST("/proposals/:id/decide", s.handleDecideProposal)
	api.POST("/proposals/:id/close", s.handleCloseProposal)

	api.GET("/positions", s.handlePositions)
	api.GET("/account", s.handleAccount)
}

// Start runs the HTTP server until it is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbStatus := "disabled"
	healthy := true
	if s.repo != nil {
		if err := s.repo.HealthCheck(ctx); err != nil {
			dbStatus = "unhealthy"
			healthy = false
		} else {
			dbStatus = "healthy"
		}
	}

	body := gin.H{
		"status":     "healthy",
		"database":   dbStatus,
		"ws_clients": WSClientCount(),
		"time":       time.Now().Format(time.RFC3339),
	}

	if !healthy {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
