package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/medeiros-dev/notification-gateway/internal/observability/metrics"
	"github.com/medeiros-dev/notification-gateway/pkg/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	ServiceName    string
	HandlerTimeout time.Duration
	SendCode       gin.HandlerFunc
	ProcessPayment gin.HandlerFunc
	Health         Pinger
}

// NewRouter mounts the call-style handlers behind tracing, request metrics and
// a per-request deadline.
func NewRouter(opts Options) *gin.Engine {
	srv := gin.New()
	srv.Use(gin.Recovery())
	if opts.ServiceName != "" {
		srv.Use(otelgin.Middleware(opts.ServiceName))
	}
	srv.Use(requestMetrics())

	calls := srv.Group("/", requestTimeout(opts.HandlerTimeout))
	calls.POST("/sendVerificationCode", opts.SendCode)
	calls.POST("/processPayment", opts.ProcessPayment)

	srv.GET("/healthz", health(opts.Health))
	srv.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	return srv
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		if endpoint == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		metrics.HttpRequestsTotal.WithLabelValues(endpoint, http.StatusText(status)).Inc()
		metrics.HttpRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func health(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logger.L().Warn("Health check failed", zap.Error(err), logger.TraceField(ctx))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
