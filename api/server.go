package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/lectra-api/api/types"
)

// RateLimitSettings configures the per-IP limiter on /api
type RateLimitSettings struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// Settings tunes the HTTP server and its global middleware
type Settings struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	CORS           CORSOptions
	RateLimit      RateLimitSettings
	// UploadSlack is added to the audio ceiling to cover multipart framing
	UploadSlack int64
	Version     string
}

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	settings           Settings
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}
	stopOnce           sync.Once

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(address string, settings Settings) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if settings.ReadTimeout <= 0 {
		settings.ReadTimeout = 30 * time.Second
	}
	// Transcription of a long recording can take minutes
	if settings.WriteTimeout <= 0 {
		settings.WriteTimeout = 5 * time.Minute
	}
	if settings.MaxHeaderBytes <= 0 {
		settings.MaxHeaderBytes = 1 << 20
	}

	return &Server{
		engine:       engine,
		settings:     settings,
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:           address,
			Handler:        engine,
			ReadTimeout:    settings.ReadTimeout,
			WriteTimeout:   settings.WriteTimeout,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: settings.MaxHeaderBytes,
		},
	}
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.engine.Use(gin.Logger())
	s.engine.Use(CORS(s.settings.CORS))

	return RegisterRoutes(s.engine, s.dependencies, RouteOptions{
		Version:            s.settings.Version,
		RateLimit:          s.settings.RateLimit,
		UploadSlack:        s.settings.UploadSlack,
		RateLimiters:       s.rateLimiters,
		CleanupStop:        s.cleanupStop,
		CleanupInitialized: &s.cleanupInitialized,
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.cleanupStop) })
	return s.httpServer.Shutdown(ctx)
}
