// Package authorizer orchestrates token validation, tenant resolution, and
// decision building for incoming requests.
package authorizer

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/meterline/gatekit/decision"
	"github.com/meterline/gatekit/tenant"
	"github.com/meterline/gatekit/token"
)

// ErrUnauthorized signals a request with no usable credential. The platform
// treats this as an unauthenticated request, distinct from an explicit deny
// decision.
var ErrUnauthorized = errors.New("authorizer: unauthorized")

const (
	bearerPrefix     = "bearer "
	principalUnknown = "unknown"
)

// Request is the slice of the incoming request the authorizer consumes.
type Request struct {
	// AuthorizationToken is the raw credential, optionally carrying a
	// case-insensitive "Bearer " scheme prefix.
	AuthorizationToken string
	// MethodArn identifies the resource the caller is invoking.
	MethodArn string
}

// Authorizer issues allow/deny decisions. It holds no cache state of its
// own; its collaborators own the key set and mapping caches.
type Authorizer struct {
	validator *token.Validator
	resolver  *tenant.Resolver
	log       logrus.FieldLogger
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger sets the logger used for decision outcomes.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Authorizer) { a.log = log }
}

// New builds an authorizer over the given validator and resolver.
func New(validator *token.Validator, resolver *tenant.Resolver, opts ...Option) *Authorizer {
	a := &Authorizer{validator: validator, resolver: resolver}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authorizer) logger() logrus.FieldLogger {
	if a.log != nil {
		return a.log
	}
	return logrus.StandardLogger()
}

// Authorize runs the full sequence: extract credential, validate token,
// resolve tenant and usage key, build the decision.
//
// Every business failure (bad token, unknown caller, unmapped tenant)
// produces a well-formed Deny decision with a nil error. Only a missing or
// empty credential returns ErrUnauthorized with no decision.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (*decision.Decision, error) {
	raw := req.AuthorizationToken
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		raw = raw[len(bearerPrefix):]
	}
	if raw == "" {
		return nil, ErrUnauthorized
	}
	resource := req.MethodArn
	if resource == "" {
		resource = "*"
	}

	claims, err := a.validator.Validate(ctx, raw)
	if err != nil {
		// Validation detail was already logged by the validator; the
		// claims are untrusted, so the principal stays anonymous.
		return decision.Build(principalUnknown, decision.EffectDeny, resource), nil
	}

	res, err := a.resolver.Resolve(ctx, claims)
	if err != nil {
		return a.denyFor(claims, res, err, resource), nil
	}

	a.logger().WithFields(logrus.Fields{
		"tenant": res.TenantID,
	}).Info("request authorized")
	return decision.Build(res.TenantID, decision.EffectAllow, resource,
		decision.WithUsageKey(res.UsageKey),
		decision.WithTenant(res.TenantID),
	), nil
}

// denyFor maps a resolution failure to the matching deny decision. Unknown
// callers carry no tenant context; an unmapped tenant is still attributed
// so downstream logging can name the denied tenant.
func (a *Authorizer) denyFor(claims token.Claims, res tenant.Resolution, err error, resource string) *decision.Decision {
	if errors.Is(err, tenant.ErrUnmappedTenant) && res.TenantID != "" {
		return decision.Build(res.TenantID, decision.EffectDeny, resource,
			decision.WithTenant(res.TenantID))
	}

	principal := claims.CallerIdentity()
	if principal == "" {
		principal = principalUnknown
	}
	if !errors.Is(err, tenant.ErrUnknownCaller) {
		// Anything else is an internal fault. It still must surface as
		// a deny, never as an error to the platform.
		a.logger().WithError(err).Error("tenant resolution fault")
	}
	return decision.Build(principal, decision.EffectDeny, resource)
}
