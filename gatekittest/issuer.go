// Package gatekittest provides a mock token issuer for tests. It runs an
// HTTP server exposing a JWKS document and signs access tokens that verify
// against it, so authorizer tests need no real signer.
//
// Example:
//
//	iss := gatekittest.NewIssuer()
//	defer iss.Close()
//
//	keys := keyset.New(iss.JWKSURL())
//	tok := iss.AccessToken("client-123")
package gatekittest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Issuer serves a JWKS at /.well-known/jwks.json and signs RS256 tokens
// with the matching private key.
type Issuer struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	kid    string
}

// NewIssuer generates a fresh RSA key pair and starts the JWKS server.
// Call Close when done.
func NewIssuer() *Issuer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("gatekittest: generate RSA key: " + err.Error())
	}
	iss := &Issuer{key: key, kid: "test-key-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", iss.handleJWKS)
	iss.server = httptest.NewServer(mux)
	return iss
}

// JWKSURL returns the URL of the served JWKS document.
func (i *Issuer) JWKSURL() string {
	return i.server.URL + "/.well-known/jwks.json"
}

// KID returns the key id the issuer signs with.
func (i *Issuer) KID() string { return i.kid }

// Close shuts down the JWKS server.
func (i *Issuer) Close() {
	if i.server != nil {
		i.server.Close()
	}
}

func (i *Issuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	k, err := jwk.FromRaw(&i.key.PublicKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = k.Set(jwk.KeyIDKey, i.kid)
	_ = k.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = k.Set(jwk.KeyUsageKey, "sig")
	set := jwk.NewSet()
	_ = set.AddKey(k)

	b, err := json.Marshal(set)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

// AccessToken signs a valid access token for the given client id.
func (i *Issuer) AccessToken(clientID string) string {
	return i.TokenWithClaims(clientID, nil)
}

// ExpiredAccessToken signs an access token that expired an hour ago.
func (i *Issuer) ExpiredAccessToken(clientID string) string {
	return i.TokenWithClaims(clientID, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
}

// IDToken signs a token whose token_use marks it as an ID token.
func (i *Issuer) IDToken(clientID string) string {
	return i.TokenWithClaims(clientID, map[string]any{"token_use": "id"})
}

// TokenWithClaims signs a token with access-token defaults merged with
// extra claims. Set a claim to override a default, e.g. "exp" or
// "token_use".
func (i *Issuer) TokenWithClaims(clientID string, extra map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"client_id": clientID,
		"token_use": "access",
		"sub":       clientID,
		"iat":       now.Unix(),
		"exp":       now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return i.sign(i.kid, claims)
}

// TokenWithKID signs an access token whose header claims an arbitrary key
// id, for exercising key-miss paths.
func (i *Issuer) TokenWithKID(kid, clientID string) string {
	now := time.Now()
	return i.sign(kid, jwt.MapClaims{
		"client_id": clientID,
		"token_use": "access",
		"sub":       clientID,
		"iat":       now.Unix(),
		"exp":       now.Add(time.Hour).Unix(),
	})
}

func (i *Issuer) sign(kid string, claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(i.key)
	if err != nil {
		panic("gatekittest: sign token: " + err.Error())
	}
	return s
}
