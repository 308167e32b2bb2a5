// Package logger provides the request logging middleware. It also plants
// the process logger into each request context so handlers and use cases
// can pull it back out with logger.FromContext.
package logger

import (
	"context"
	"time"

	"github.com/agentplane/agentplane/pkg/logger"
	"github.com/gin-gonic/gin"
)

var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// Middleware injects the base logger into the request context and logs
// request completion with method, route, status, and latency.
func Middleware(ctx context.Context) gin.HandlerFunc {
	base := logger.FromContext(ctx)
	return func(c *gin.Context) {
		start := time.Now()
		reqCtx := logger.ContextWithLogger(c.Request.Context(), base)
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if _, quiet := quietPaths[path]; quiet {
			return
		}
		status := c.Writer.Status()
		log := base.With(
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
		)
		switch {
		case status >= 500:
			log.Error("Request completed")
		case status >= 400:
			log.Warn("Request completed")
		default:
			log.Info("Request completed")
		}
	}
}
