package logging

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ginRequestIDKey is the Gin context key for request IDs.
const ginRequestIDKey = "__request_id__"

// maskedQueryParams lists query parameters whose values must never be logged.
var maskedQueryParams = []string{"uckey", "code", "token", "access_token", "key"}

// GinLogrusLogger returns a Gin middleware handler that logs HTTP requests
// using logrus: method, path (with sensitive query values masked), status,
// latency and client IP. Each request is tagged with a short request id.
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := MaskSensitiveQuery(c.Request.URL.RawQuery)

		requestID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		c.Set(ginRequestIDKey, requestID)

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		latency := time.Since(start).Truncate(time.Millisecond)
		status := c.Writer.Status()
		line := fmt.Sprintf("| %s | %3d | %13v | %15s | %-7s %s",
			requestID, status, latency, c.ClientIP(), c.Request.Method, path)

		switch {
		case status >= http.StatusInternalServerError:
			log.Error(line)
		case status >= http.StatusBadRequest:
			log.Warn(line)
		default:
			log.Info(line)
		}
	}
}

// RequestID retrieves the request id the logger middleware attached.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if id, exists := c.Get(ginRequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// GinRecovery returns a middleware that converts panics into 500 responses
// and logs the stack instead of crashing the process.
func GinRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic recovered: %v\n%s", r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal server error"})
			}
		}()
		c.Next()
	}
}

// MaskSensitiveQuery replaces credential-bearing query parameter values with
// a fixed placeholder so raw tokens and one-time codes stay out of logs.
func MaskSensitiveQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	changed := false
	for _, param := range maskedQueryParams {
		if values.Has(param) {
			values.Set(param, "***")
			changed = true
		}
	}
	if !changed {
		return rawQuery
	}
	return values.Encode()
}

// newTeeWriter duplicates writes across the given writers.
func newTeeWriter(writers ...io.Writer) io.Writer {
	return io.MultiWriter(writers...)
}
