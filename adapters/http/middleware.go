// Package gatehttp adapts the authorizer to a plain net/http middleware.
package gatehttp

import (
	"context"
	"net/http"

	"github.com/meterline/gatekit/authorizer"
)

type tenantKey struct{}
type usageKeyKey struct{}

// Middleware gates next on the authorizer's decision and stores the
// resolved tenant and usage key on the request context.
func Middleware(a *authorizer.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec, err := a.Authorize(r.Context(), authorizer.Request{
				AuthorizationToken: r.Header.Get("Authorization"),
				MethodArn:          r.Method + " " + r.URL.Path,
			})
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !dec.Allowed() {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), tenantKey{}, dec.Tenant())
			ctx = context.WithValue(ctx, usageKeyKey{}, dec.UsageIdentifierKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant stored by Middleware.
func TenantFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(tenantKey{}).(string)
	return s, ok && s != ""
}

// UsageKeyFromContext returns the usage key stored by Middleware.
func UsageKeyFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(usageKeyKey{}).(string)
	return s, ok && s != ""
}
