// Package catalog resolves API keys to their rate-limit quotas.
package catalog

import "sync"

// Quota is the tuple of per-minute limits bound to one API key.
type Quota struct {
	Name       string
	RPM        int
	InputTPM   int
	OutputTPM  int
}

// Catalog is a read-mostly api_key -> Quota mapping. The reference
// deployment hardcodes this table; a production system would back it
// with a config service or database, but the lookup contract — and the
// gateway's handling of a miss — doesn't change.
type Catalog struct {
	mu     sync.RWMutex
	quotas map[string]Quota
}

// New returns a Catalog seeded with the given quotas.
func New(seed map[string]Quota) *Catalog {
	c := &Catalog{quotas: make(map[string]Quota, len(seed))}
	for k, v := range seed {
		c.quotas[k] = v
	}
	return c
}

// Default returns the catalog shipped with the reference deployment:
// four named tiers covering the free, default, high-throughput, and
// unlimited test scenarios.
func Default() *Catalog {
	return New(map[string]Quota{
		"test-key-1": {
			Name:      "Default Tier",
			RPM:       500,
			InputTPM:  60000,
			OutputTPM: 20000,
		},
		"test-key-2": {
			Name:      "High-Throughput Tier",
			RPM:       1000,
			InputTPM:  200000,
			OutputTPM: 80000,
		},
		"unlimited-key": {
			Name:      "Unlimited Test",
			RPM:       999999,
			InputTPM:  99999999,
			OutputTPM: 99999999,
		},
		"free-tier-key": {
			Name:      "Free Tier",
			RPM:       20,
			InputTPM:  4000,
			OutputTPM: 1000,
		},
	})
}

// Lookup returns the quota for an API key. ok is false when the key is
// not in the catalog; callers decide how to treat that (the gateway
// handler defaults to fail-open, see Config.DenyUnknownAPIKey).
func (c *Catalog) Lookup(apiKey string) (Quota, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotas[apiKey]
	return q, ok
}

// Set inserts or replaces the quota for an API key.
func (c *Catalog) Set(apiKey string, q Quota) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotas[apiKey] = q
}

// Delete removes an API key from the catalog.
func (c *Catalog) Delete(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.quotas, apiKey)
}
