package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"storyboard/internal/types"
)

const (
	defaultProviderCacheTTL = 60 * time.Second
	providerCacheKey        = "settings/providers"
	providerCacheMaxCost    = 1 << 20
)

// providerCache keeps the provider catalog for a short while. The catalog
// only feeds model pickers, so a stale read is harmless.
type providerCache struct {
	ttl   time.Duration
	cache *ristretto.Cache[string, []byte]
}

func newProviderCache(ttl time.Duration) *providerCache {
	if ttl <= 0 {
		return &providerCache{}
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100,
		MaxCost:     providerCacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return &providerCache{}
	}
	return &providerCache{ttl: ttl, cache: cache}
}

func (p *providerCache) get() ([]types.Provider, bool) {
	if p == nil || p.cache == nil {
		return nil, false
	}
	raw, ok := p.cache.Get(providerCacheKey)
	if !ok {
		return nil, false
	}
	var providers []types.Provider
	if err := json.Unmarshal(raw, &providers); err != nil {
		return nil, false
	}
	return providers, true
}

func (p *providerCache) set(providers []types.Provider) {
	if p == nil || p.cache == nil {
		return
	}
	raw, err := json.Marshal(providers)
	if err != nil {
		return
	}
	p.cache.SetWithTTL(providerCacheKey, raw, int64(len(raw)), p.ttl)
	p.cache.Wait()
}

func (p *providerCache) invalidate() {
	if p == nil || p.cache == nil {
		return
	}
	p.cache.Del(providerCacheKey)
}

func (p *providerCache) close() {
	if p == nil || p.cache == nil {
		return
	}
	p.cache.Close()
}

// Providers returns the configured AI providers, served from the in-process
// cache while it is fresh.
func (c *Client) Providers(ctx context.Context) ([]types.Provider, error) {
	if cached, ok := c.providers.get(); ok {
		return cached, nil
	}
	var providers []types.Provider
	if err := c.Call(ctx, http.MethodGet, "/settings", nil, &providers); err != nil {
		return nil, err
	}
	if providers == nil {
		providers = []types.Provider{}
	}
	c.providers.set(providers)
	return providers, nil
}

// RefreshProviders drops the cached catalog and pulls it again.
func (c *Client) RefreshProviders(ctx context.Context) ([]types.Provider, error) {
	c.providers.invalidate()
	return c.Providers(ctx)
}
