// Package gategin wires the authorizer into a gin handler chain. Each
// middleware owns one concern: request identity, logging, the
// authorization gate, and usage-plan enforcement.
package gategin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meterline/gatekit/authorizer"
)

// HeaderRequestID is echoed back to callers and attached to log entries.
const HeaderRequestID = "X-Request-Id"

const (
	ctxKeyRequestID = "gatekit.request_id"
	ctxKeyTenant    = "gatekit.tenant"
	ctxKeyUsageKey  = "gatekit.usage_key"
)

// RequestID assigns each request an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// Logger emits one structured entry per request after the chain completes.
func Logger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if tenantID, ok := TenantFromContext(c); ok {
			fields["tenant"] = tenantID
		}
		log.WithFields(fields).Info("request handled")
	}
}

// Authorize gates the request on the authorizer's decision. A missing
// credential maps to 401, a deny decision to 403. On allow the resolved
// tenant and usage key are stored on the request context for downstream
// handlers.
func Authorize(a *authorizer.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		dec, err := a.Authorize(c.Request.Context(), authorizer.Request{
			AuthorizationToken: c.GetHeader("Authorization"),
			MethodArn:          c.Request.Method + " " + c.Request.URL.Path,
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !dec.Allowed() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(ctxKeyTenant, dec.Tenant())
		c.Set(ctxKeyUsageKey, dec.UsageIdentifierKey)
		c.Next()
	}
}

// UsageLimiter gates requests by usage identifier key.
type UsageLimiter interface {
	Allow(ctx context.Context, usageKey string) (bool, error)
}

// UsagePlan enforces the per-tenant usage plan attributed by Authorize.
// Limiter errors fail open: an unavailable limiter backend must not deny
// every tenant.
func UsagePlan(limiter UsageLimiter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		usageKey, ok := UsageKeyFromContext(c)
		if !ok || usageKey == "" {
			c.Next()
			return
		}
		allowed, err := limiter.Allow(c.Request.Context(), usageKey)
		if err != nil {
			log.WithError(err).Warn("usage limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "usage plan exhausted"})
			return
		}
		c.Next()
	}
}
