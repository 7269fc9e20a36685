// Package tenant resolves a verified caller to its tenant and the tenant to
// its usage-plan key.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/meterline/gatekit/mapcache"
	"github.com/meterline/gatekit/token"
)

var (
	// ErrUnknownCaller means the caller identity has no tenant mapping.
	// This is an expected condition (unrecognized client), not a fault.
	ErrUnknownCaller = errors.New("tenant: no tenant mapping for caller")
	// ErrUnmappedTenant means the tenant has no usage key yet, e.g. a
	// freshly provisioned tenant pending usage-plan assignment.
	ErrUnmappedTenant = errors.New("tenant: no usage key mapping for tenant")
	// ErrIsolationViolation means a caller attempted to touch a record
	// owned by a different tenant.
	ErrIsolationViolation = errors.New("tenant: cross-tenant access denied")
)

// Resolution is the outcome of a successful resolve. On ErrUnmappedTenant
// the TenantID is still populated so denials can be attributed.
type Resolution struct {
	TenantID string
	UsageKey string
}

// Resolver maps caller identity → tenant and tenant → usage key over two
// independently cached mappings.
type Resolver struct {
	identityMap *mapcache.Cache
	usageKeyMap *mapcache.Cache
	log         logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution outcomes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver builds a resolver over the identity→tenant and
// tenant→usage-key mapping caches. The two caches must not be the same
// instance.
func NewResolver(identityMap, usageKeyMap *mapcache.Cache, opts ...Option) *Resolver {
	r := &Resolver{identityMap: identityMap, usageKeyMap: usageKeyMap}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) logger() logrus.FieldLogger {
	if r.log != nil {
		return r.log
	}
	return logrus.StandardLogger()
}

// Resolve maps the claims' caller identity to a tenant and usage key.
func (r *Resolver) Resolve(ctx context.Context, claims token.Claims) (Resolution, error) {
	identity := claims.CallerIdentity()

	tenantID, ok := r.identityMap.Lookup(ctx, identity)
	if !ok {
		r.logger().WithField("caller", identity).Warn("no tenant mapping for caller")
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownCaller, identity)
	}

	usageKey, ok := r.usageKeyMap.Lookup(ctx, tenantID)
	if !ok {
		r.logger().WithFields(logrus.Fields{
			"caller": identity,
			"tenant": tenantID,
		}).Warn("tenant has no usage key mapping")
		return Resolution{TenantID: tenantID}, fmt.Errorf("%w: %q", ErrUnmappedTenant, tenantID)
	}

	r.logger().WithFields(logrus.Fields{
		"caller": identity,
		"tenant": tenantID,
	}).Debug("resolved caller to tenant")
	return Resolution{TenantID: tenantID, UsageKey: usageKey}, nil
}

// VerifyAccess enforces tenant isolation between the authenticated tenant
// and the tenant recorded on a piece of data. Any component receiving a
// forwarded tenant id must call this before reading or writing a record.
func VerifyAccess(requestingTenant, recordTenant string) error {
	if requestingTenant == "" || requestingTenant != recordTenant {
		return fmt.Errorf("%w: %q cannot access data of %q", ErrIsolationViolation, requestingTenant, recordTenant)
	}
	return nil
}
