package gategin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterline/gatekit/authorizer"
	"github.com/meterline/gatekit/gatekittest"
	"github.com/meterline/gatekit/keyset"
	"github.com/meterline/gatekit/mapcache"
	memorystore "github.com/meterline/gatekit/paramstore/memory"
	memorylimiter "github.com/meterline/gatekit/ratelimit/memory"
	"github.com/meterline/gatekit/tenant"
	"github.com/meterline/gatekit/token"
)

const (
	clientMapPath = "/gatekit/client-tenant-map"
	usageMapPath  = "/gatekit/tenant-usage-key-map"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newAuthorizer(t *testing.T) (*authorizer.Authorizer, *gatekittest.Issuer) {
	t.Helper()
	iss := gatekittest.NewIssuer()
	t.Cleanup(iss.Close)

	store := memorystore.New()
	store.Set(clientMapPath, `{"abc123":"tenantA"}`)
	store.Set(usageMapPath, `{"tenantA":"key-789"}`)

	log := discardLogger()
	keys := keyset.New(iss.JWKSURL(), keyset.WithLogger(log))
	validator := token.NewValidator(keys, token.WithLogger(log))
	resolver := tenant.NewResolver(
		mapcache.New(store, clientMapPath, mapcache.WithLogger(log)),
		mapcache.New(store, usageMapPath, mapcache.WithLogger(log)),
		tenant.WithLogger(log),
	)
	return authorizer.New(validator, resolver, authorizer.WithLogger(log)), iss
}

func newRouter(t *testing.T, extra ...gin.HandlerFunc) (*gin.Engine, *gatekittest.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, iss := newAuthorizer(t)

	r := gin.New()
	chain := append([]gin.HandlerFunc{RequestID(), Logger(discardLogger()), Authorize(a)}, extra...)
	r.Use(chain...)
	r.GET("/orders", func(c *gin.Context) {
		tenantID, _ := TenantFromContext(c)
		c.JSON(http.StatusOK, gin.H{"tenant": tenantID})
	})
	return r, iss
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthorizeMiddlewareAllows(t *testing.T) {
	r, iss := newRouter(t)

	w := doGet(r, "Bearer "+iss.AccessToken("abc123"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant":"tenantA"`)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestAuthorizeMiddlewareMissingCredential(t *testing.T) {
	r, _ := newRouter(t)

	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeMiddlewareBadToken(t *testing.T) {
	r, _ := newRouter(t)

	w := doGet(r, "Bearer not-a-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUsagePlanMiddleware(t *testing.T) {
	limiter := memorylimiter.New(map[string]memorylimiter.Plan{
		"key-789": {Requests: 2, Window: time.Minute},
	})
	r, iss := newRouter(t, UsagePlan(limiter, discardLogger()))
	header := "Bearer " + iss.AccessToken("abc123")

	for i := 0; i < 2; i++ {
		w := doGet(r, header)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
	w := doGet(r, header)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRequireTenantAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, iss := newAuthorizer(t)
	log := discardLogger()

	r := gin.New()
	r.Use(RequestID(), Authorize(a))
	r.GET("/records/:owner", func(c *gin.Context) {
		if !RequireTenantAccess(c, c.Param("owner"), log) {
			return
		}
		c.Status(http.StatusOK)
	})

	header := "Bearer " + iss.AccessToken("abc123")

	req := httptest.NewRequest(http.MethodGet, "/records/tenantA", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/records/tenantB", nil)
	req.Header.Set("Authorization", header)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
