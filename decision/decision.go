// Package decision builds the structured allow/deny responses the gating
// platform consumes.
package decision

import "strings"

// Effect is the outcome carried by a decision.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

const (
	policyVersion = "2012-10-17"
	invokeAction  = "execute-api:Invoke"

	// ContextTenantID is the context key under which the resolved tenant
	// is forwarded to downstream handlers.
	ContextTenantID = "tenant_id"
)

// Statement grants or denies invocation of a resource pattern.
type Statement struct {
	Action   string `json:"Action"`
	Effect   Effect `json:"Effect"`
	Resource string `json:"Resource"`
}

// PolicyDocument is the policy grammar the gateway evaluates.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Decision is the authorizer response. It is constructed once per request
// and never mutated afterwards.
//
// An Allow always carries a usage identifier key and a tenant context
// entry; a Deny never carries a usage key.
type Decision struct {
	PrincipalID        string            `json:"principalId"`
	PolicyDocument     PolicyDocument    `json:"policyDocument"`
	UsageIdentifierKey string            `json:"usageIdentifierKey,omitempty"`
	Context            map[string]string `json:"context,omitempty"`
}

// Allowed reports whether the decision grants access.
func (d *Decision) Allowed() bool {
	s := d.PolicyDocument.Statement
	return len(s) > 0 && s[0].Effect == EffectAllow
}

// Tenant returns the tenant id forwarded in the decision context, or "".
func (d *Decision) Tenant() string {
	return d.Context[ContextTenantID]
}

// Option adds optional fields to a decision.
type Option func(*Decision)

// WithUsageKey attaches the usage-plan identifier key. Ignored on Deny.
func WithUsageKey(key string) Option {
	return func(d *Decision) {
		if key != "" {
			d.UsageIdentifierKey = key
		}
	}
}

// WithTenant records the resolved tenant in the decision context so
// downstream processing can attribute the request without re-deriving it.
func WithTenant(tenantID string) Option {
	return func(d *Decision) {
		if tenantID == "" {
			return
		}
		if d.Context == nil {
			d.Context = make(map[string]string, 1)
		}
		d.Context[ContextTenantID] = tenantID
	}
}

// Build constructs a decision for principal over the stage that resource
// belongs to. The resource is widened with WildcardResource so one cached
// decision covers every method and path of the stage.
func Build(principal string, effect Effect, resource string, opts ...Option) *Decision {
	d := &Decision{
		PrincipalID: principal,
		PolicyDocument: PolicyDocument{
			Version: policyVersion,
			Statement: []Statement{{
				Action:   invokeAction,
				Effect:   effect,
				Resource: WildcardResource(resource),
			}},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if effect != EffectAllow {
		d.UsageIdentifierKey = ""
	}
	return d
}

// WildcardResource rewrites an exact-match method ARN into a wildcard over
// its whole API. Anything without the six colon-separated ARN segments is
// returned unchanged.
func WildcardResource(resource string) string {
	parts := strings.SplitN(resource, ":", 6)
	if len(parts) < 6 {
		return resource
	}
	api := parts[5]
	if i := strings.IndexByte(api, '/'); i >= 0 {
		api = api[:i]
	}
	return strings.Join(parts[:5], ":") + ":" + api + "/*"
}
