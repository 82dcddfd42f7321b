package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSCache fetches the identity provider's key set and keeps it for ttl.
// An unknown kid forces one refresh so rotated keys are picked up early.
type JWKSCache struct {
	mu        sync.RWMutex
	set       jwk.Set
	expiresAt time.Time

	refreshMu  sync.Mutex
	jwksURL    string
	anonKey    string
	ttl        time.Duration
	httpClient *http.Client
}

var _ KeyProvider = (*JWKSCache)(nil)

func NewJWKSCache(jwksURL, anonKey string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		jwksURL:    jwksURL,
		anonKey:    anonKey,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKey returns the key for kid, refreshing the set when it is stale or the kid is unknown.
func (c *JWKSCache) GetKey(ctx context.Context, kid string) (jwk.Key, error) {
	c.mu.RLock()
	set, fresh := c.set, time.Now().Before(c.expiresAt)
	c.mu.RUnlock()

	if set != nil && fresh {
		if key, ok := set.LookupKeyID(kid); ok {
			return key, nil
		}
	}

	set, err := c.refresh(ctx, set)
	if err != nil {
		logger.GetLogger().Errorw("Failed to refresh JWKS cache", "kid", kid, "error", err)
		return nil, fmt.Errorf("failed to refresh JWKS cache for kid %s: %w", kid, err)
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

// refresh fetches a new set unless another caller already replaced seen.
func (c *JWKSCache) refresh(ctx context.Context, seen jwk.Set) (jwk.Set, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	current := c.set
	c.mu.RUnlock()
	if current != nil && current != seen {
		return current, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", c.jwksURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS keys: %w", err)
	}

	c.mu.Lock()
	c.set = set
	c.expiresAt = time.Now().Add(c.ttl)
	c.mu.Unlock()

	logger.GetLogger().Infow("JWKS cache refreshed", "keys_cached", set.Len())
	return set, nil
}
