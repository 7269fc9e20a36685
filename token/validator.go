// Package token verifies access tokens against the signer's key set.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/sirupsen/logrus"

	"github.com/meterline/gatekit/keyset"
)

// ErrInvalidToken is the only validation error surfaced to callers. The
// underlying cause (signature, expiry, token_use, key resolution) is logged,
// never returned, so a probing caller cannot distinguish failure modes.
var ErrInvalidToken = errors.New("token: invalid token")

// tokenUseAccess is the token_use claim value required of access tokens.
// ID tokens and other token classes are rejected even with a valid
// signature and expiry.
const tokenUseAccess = "access"

// Claims is the verified payload of an access token.
type Claims struct {
	ClientID string
	Subject  string
	TokenUse string
	Expiry   time.Time
}

// CallerIdentity returns the claim used to key tenant resolution: client_id
// when present, otherwise sub. Empty when the token carries neither.
func (c Claims) CallerIdentity() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return c.Subject
}

// Validator checks signature, expiry, and token class of raw tokens using
// keys resolved from a keyset.Cache.
type Validator struct {
	keys *keyset.Cache
	log  logrus.FieldLogger
	now  func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger that receives validation failure detail.
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Validator) { v.log = log }
}

// WithClock overrides the time source used for expiry checks (tests).
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator builds a validator over the given key set cache.
func NewValidator(keys *keyset.Cache, opts ...Option) *Validator {
	v := &Validator{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) logger() logrus.FieldLogger {
	if v.log != nil {
		return v.log
	}
	return logrus.StandardLogger()
}

// Validate verifies raw and returns its claims. All failures collapse to
// ErrInvalidToken; the cause is logged without the raw credential.
func (v *Validator) Validate(ctx context.Context, raw string) (Claims, error) {
	claims, err := v.validate(ctx, raw)
	if err != nil {
		v.logger().WithError(err).Warn("token validation failed")
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (v *Validator) validate(ctx context.Context, raw string) (Claims, error) {
	// The header is read before any verification solely to learn which
	// key the token claims to be signed with. Nothing in it is trusted.
	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return Claims{}, fmt.Errorf("parse: %w", err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return Claims{}, errors.New("token has no signature")
	}
	kid := sigs[0].ProtectedHeaders().KeyID()
	if kid == "" {
		return Claims{}, errors.New("token header has no kid")
	}

	key, err := v.keys.VerificationKey(ctx, kid)
	if err != nil {
		return Claims{}, err
	}
	alg := key.Algorithm()
	if alg == nil || alg.String() == "" {
		alg = jwa.RS256
	}

	tok, err := jwxjwt.Parse([]byte(raw),
		jwxjwt.WithContext(ctx),
		jwxjwt.WithKey(alg, key),
		jwxjwt.WithValidate(true),
		jwxjwt.WithClock(jwxjwt.ClockFunc(v.now)),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("verify: %w", err)
	}

	claims := Claims{Subject: tok.Subject(), Expiry: tok.Expiration()}
	if val, ok := tok.Get("client_id"); ok {
		if s, ok := val.(string); ok {
			claims.ClientID = s
		}
	}
	if val, ok := tok.Get("token_use"); ok {
		if s, ok := val.(string); ok {
			claims.TokenUse = s
		}
	}
	if claims.TokenUse != tokenUseAccess {
		return Claims{}, fmt.Errorf("token_use %q is not %q", claims.TokenUse, tokenUseAccess)
	}
	return claims, nil
}
