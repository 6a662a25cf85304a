package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader  = "X-Request-Id"
	ContextRequestID = "request_id"
)

// RequestLogger tags each request with an id and logs one line when it
// finishes. Successful hits on quietPaths (health checks, scrapes) are logged
// at debug only.
func RequestLogger(l *logrus.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		c.Set(ContextRequestID, reqID)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes":      c.Writer.Size(),
			"ip":         c.ClientIP(),
		}
		if v := c.GetString(ContextUserID); v != "" {
			fields["user_id"] = v
		}
		if v := c.GetHeader("X-Session-Id"); v != "" {
			fields["session_id"] = v
		}
		if c.IsWebsocket() {
			fields["websocket"] = true
		}
		entry := l.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		_, isQuiet := quiet[route]
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		case isQuiet:
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}
