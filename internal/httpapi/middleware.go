package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/metrics"
)

const (
	// OwnerHeader carries the identity established by the upstream auth layer
	OwnerHeader     = "X-Owner-ID"
	RequestIDHeader = "X-Request-ID"

	ownerKey     = "owner"
	requestIDKey = "request_id"
)

// RequestIDMiddleware propagates or assigns a request id
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogMiddleware logs every request and records its metrics
func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		// the route pattern keeps metric label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordAPIRequest(method, path, status, latency.Seconds())

		msg := "%s %s %d %s request_id=%s"
		args := []interface{}{method, c.Request.URL.Path, status, latency, c.GetString(requestIDKey)}
		switch {
		case status >= 500:
			klog.Errorf(msg, args...)
		case status >= 400:
			klog.Warningf(msg, args...)
		default:
			klog.V(1).Infof(msg, args...)
		}
	}
}

// OwnerMiddleware requires the owner header. Authentication itself happens
// upstream; this layer only scopes records to the given identity.
func OwnerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			Error(c, http.StatusUnauthorized, "missing owner", OwnerHeader+" header is required")
			c.Abort()
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func ownerOf(c *gin.Context) string {
	return c.GetString(ownerKey)
}
