package gategin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/meterline/gatekit/tenant"
)

// TenantFromContext returns the tenant resolved by Authorize.
func TenantFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyTenant)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// UsageKeyFromContext returns the usage identifier key set by Authorize.
func UsageKeyFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUsageKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// RequireTenantAccess enforces tenant isolation before a handler touches a
// record owned by recordTenant. On mismatch it logs a security event,
// aborts with 403, and returns false. The forwarded tenant is trusted; the
// check is a plain equality comparison.
func RequireTenantAccess(c *gin.Context, recordTenant string, log logrus.FieldLogger) bool {
	tenantID, _ := TenantFromContext(c)
	if err := tenant.VerifyAccess(tenantID, recordTenant); err != nil {
		log.WithFields(logrus.Fields{
			"security_event":    "cross_tenant_access_attempt",
			"requesting_tenant": tenantID,
			"record_tenant":     recordTenant,
			"request_id":        RequestIDFromContext(c),
		}).Warn("cross-tenant access attempt")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}
