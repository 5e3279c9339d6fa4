package api

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/killallgit/lectra-api/api/types"
)

// clientLimiter holds one client's allowance for the current window and its
// last accessed time
type clientLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	windowStart time.Time
	lastSeen    atomic.Int64
}

// allow takes one request from the current window. The bucket starts full,
// refills by less than one token before the window ends and is replaced when
// the window rolls over, so no window admits more than limit requests.
func (cl *clientLimiter) allow(now time.Time, limit int, window time.Duration) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.limiter == nil || now.Sub(cl.windowStart) >= window {
		cl.limiter = rate.NewLimiter(rate.Every(window), limit)
		cl.windowStart = now
	}
	return cl.limiter.AllowN(now, 1)
}

func (cl *clientLimiter) touch(now time.Time) {
	cl.lastSeen.Store(now.UnixNano())
}

func (cl *clientLimiter) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, cl.lastSeen.Load()))
}

// CORSOptions lists what cross-origin callers may do
type CORSOptions struct {
	Origins []string
	Methods []string
	Headers []string
}

// CORS echoes the request origin when it is allowed. "*" allows any origin.
func CORS(opts CORSOptions) gin.HandlerFunc {
	methods := strings.Join(opts.Methods, ", ")
	if methods == "" {
		methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	headers := strings.Join(opts.Headers, ", ")
	if headers == "" {
		headers = "Content-Type, Authorization"
	}
	allowAny := slices.Contains(opts.Origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAny || slices.Contains(opts.Origins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// RequestSizeLimit limits request body size to 1MB
func RequestSizeLimit() gin.HandlerFunc {
	return RequestSizeLimitWithSize(1024 * 1024)
}

// RequestSizeLimitWithSize rejects bodies over maxBytes. A declared length is
// rejected up front; otherwise reads past the limit fail with *http.MaxBytesError.
func RequestSizeLimitWithSize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status:  types.StatusFail,
					Message: "Request body too large",
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// PerClientRateLimit allows limit requests per fixed window for each client IP.
// The window starts at a client's first request. Excess requests are rejected
// immediately with 429.
func PerClientRateLimit(rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once, limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	cleanupInitialized.Do(func() {
		go cleanupOldRateLimiters(rateLimiters, cleanupStop, window)
	})

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		now := time.Now()

		limiterInterface, loaded := rateLimiters.Load(clientIP)
		if !loaded {
			fresh := &clientLimiter{}
			fresh.touch(now)
			limiterInterface, _ = rateLimiters.LoadOrStore(clientIP, fresh)
		}

		cl := limiterInterface.(*clientLimiter)
		cl.touch(now)

		if !cl.allow(now, limit, window) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Status:  types.StatusFail,
				Message: "Too many requests from this IP, please try again later.",
			})
			return
		}
		c.Next()
	}
}

// cleanupOldRateLimiters drops limiters idle for longer than a window
func cleanupOldRateLimiters(rateLimiters *sync.Map, cleanupStop chan struct{}, window time.Duration) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rateLimiters.Range(func(key, value interface{}) bool {
				cl, ok := value.(*clientLimiter)
				if !ok || cl.idleSince(now) > window {
					rateLimiters.Delete(key)
				}
				return true
			})
		case <-cleanupStop:
			return
		}
	}
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  types.StatusFail,
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
