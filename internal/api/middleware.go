package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestID reuses the client's X-Request-ID or generates a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Header(RequestIDHeader, id)
		c.Set(requestIDKey, id)

		c.Next()
	}
}

// cors allows reading the API from any origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", ReadFailuresHeader+", "+RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// accessLog writes a line per request and counts requests by route.
func accessLog(log *zap.Logger, observe func(route, code string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()
		observe(route, strconv.Itoa(status))

		log.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

const visitorTTL = 3 * time.Minute

// limiter keeps a token bucket per client IP.
type limiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiter(rps float64, burst int) *limiter {
	if burst < 1 {
		burst = 1
	}

	return &limiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (l *limiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if now.Sub(l.lastSweep) > time.Minute {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}

	v.lastSeen = now

	return v.limiter.Allow()
}

func (l *limiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests"})
			return
		}

		c.Next()
	}
}
