package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/lectra-api/api/health"
	"github.com/killallgit/lectra-api/api/transcription"
	"github.com/killallgit/lectra-api/api/types"
	"github.com/killallgit/lectra-api/api/version"
	_ "github.com/killallgit/lectra-api/docs/swagger"
	"github.com/killallgit/lectra-api/pkg/audio"
)

// RouteOptions carries the limiter state shared by every /api route
type RouteOptions struct {
	Version     string
	RateLimit   RateLimitSettings
	UploadSlack int64

	RateLimiters       *sync.Map
	CleanupStop        chan struct{}
	CleanupInitialized *sync.Once
}

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, opts RouteOptions) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	// Public routes, never rate limited
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, opts.Version)

	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	docsGroup := engine.Group("/docs")
	docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if deps.AudioDir != "" {
		engine.Static("/audio", deps.AudioDir)
	}

	engine.NoRoute(NotFoundHandler())

	apiGroup := engine.Group("/api")
	if opts.RateLimit.Enabled {
		if opts.RateLimiters == nil {
			opts.RateLimiters = &sync.Map{}
		}
		if opts.CleanupStop == nil {
			opts.CleanupStop = make(chan struct{})
		}
		if opts.CleanupInitialized == nil {
			opts.CleanupInitialized = &sync.Once{}
		}
		apiGroup.Use(PerClientRateLimit(opts.RateLimiters, opts.CleanupStop, opts.CleanupInitialized,
			opts.RateLimit.MaxRequests, opts.RateLimit.Window))
	}

	slack := opts.UploadSlack
	if slack <= 0 {
		slack = 64 * 1024
	}
	uploadLimit := RequestSizeLimitWithSize(audio.MaxUploadBytes + slack)

	transcription.RegisterRoutes(apiGroup.Group("/transcription"), deps, uploadLimit, RequestSizeLimit())

	return nil
}
