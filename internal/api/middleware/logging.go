package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request. Headers are never logged since
// they carry tokens.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
		if identity, ok := GetIdentity(c); ok {
			entry = entry.WithField("username", identity.Username)
		}

		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request handled")
		case c.Writer.Status() >= 400:
			entry.Warn("request handled")
		default:
			entry.Info("request handled")
		}
	}
}
