// Package keyset fetches and caches the token signer's published JWKS and
// resolves key ids to verification keys.
package keyset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

var (
	// ErrKeyNotFound means the cached key set has no key with the
	// requested kid.
	ErrKeyNotFound = errors.New("keyset: no key matches kid")
	// ErrUnavailable means the key set could not be fetched. The failure
	// is not cached; the next lookup retries.
	ErrUnavailable = errors.New("keyset: key set unavailable")
)

// DefaultFetchTimeout bounds the outbound JWKS request.
const DefaultFetchTimeout = 5 * time.Second

const maxBodyBytes = 1 << 20

// EndpointURL builds the well-known JWKS URL for a user pool.
func EndpointURL(region, poolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, poolID)
}

// Cache fetches the key set once and serves kid lookups from memory for the
// life of the process. A kid missing from a successfully fetched set is a
// hard miss; the set is not refetched, so keys rotated by the signer are
// not picked up until the process restarts.
type Cache struct {
	url    string
	client *http.Client
	log    logrus.FieldLogger

	mu   sync.RWMutex
	keys map[string]jwk.Key
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the HTTP client used for the JWKS fetch.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = log }
}

// New creates a cache that fetches the JWKS from url on first use.
func New(url string, opts ...Option) *Cache {
	c := &Cache{
		url:    url,
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) logger() logrus.FieldLogger {
	if c.log != nil {
		return c.log
	}
	return logrus.StandardLogger()
}

// VerificationKey resolves kid to a public key from the cached set,
// fetching the set on first use.
func (c *Cache) VerificationKey(ctx context.Context, kid string) (jwk.Key, error) {
	c.mu.RLock()
	keys := c.keys
	c.mu.RUnlock()

	if keys == nil {
		fetched, err := c.fetch(ctx)
		if err != nil {
			c.logger().WithError(err).WithField("url", c.url).Error("key set fetch failed")
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// Concurrent cold-start fetches are allowed; first writer wins.
		c.mu.Lock()
		if c.keys == nil {
			c.keys = fetched
		}
		keys = c.keys
		c.mu.Unlock()
	}

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
	}
	return key, nil
}

func (c *Cache) fetch(ctx context.Context) (map[string]jwk.Key, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse key set: %w", err)
	}
	keys := make(map[string]jwk.Key, set.Len())
	for i := 0; i < set.Len(); i++ {
		k, ok := set.Key(i)
		if !ok {
			continue
		}
		if kid := k.KeyID(); kid != "" {
			keys[kid] = k
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("key set contains no keys with a kid")
	}
	return keys, nil
}
