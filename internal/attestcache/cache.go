// Package attestcache caches attestation.Verify results and rate-limits
// calls into it. It is purely an optimization: a cache miss, or the cache
// disabled entirely, must produce byte-identical results to calling
// attestation.Verify directly.
package attestcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/r3e-network/sgx-attest-verifier/internal/attestation"
)

const (
	defaultSize      = 1000
	defaultTTL       = 1 * time.Hour
	defaultRateLimit = 100.0 // verifications per minute
	defaultBurst     = 10
)

// Config tunes cache capacity, entry lifetime, and the rate limit applied
// to calls guarded by Wait.
type Config struct {
	Size      int
	TTL       time.Duration
	RateLimit float64 // verifications per minute
	Burst     int
}

func (c *Config) setDefaults() {
	if c.Size <= 0 {
		c.Size = defaultSize
	}
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
}

type entry struct {
	report     attestation.AttestationReport
	expiration time.Time
}

// Cache is a SHA-256(certificate)-keyed LRU cache of AttestationReport
// results, guarded by a token-bucket rate limiter for calls into the core.
type Cache struct {
	mu      sync.RWMutex
	lru     *lru.Cache[string, *entry]
	limiter *rate.Limiter
	ttl     time.Duration
	log     *logrus.Logger
}

// New builds a Cache. A nil logger defaults to a fresh logrus.Logger.
func New(cfg Config, log *logrus.Logger) (*Cache, error) {
	cfg.setDefaults()

	store, err := lru.New[string, *entry](cfg.Size)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}

	return &Cache{
		lru:     store,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit/60.0), cfg.Burst),
		ttl:     cfg.TTL,
		log:     log,
	}, nil
}

// Key derives the cache key for a submitted certificate.
func Key(certDER []byte) string {
	sum := sha256.Sum256(certDER)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached report for key, if present and unexpired.
func (c *Cache) Get(key string) (attestation.AttestationReport, bool) {
	c.mu.RLock()
	e, ok := c.lru.Get(key)
	c.mu.RUnlock()
	if !ok {
		return attestation.AttestationReport{}, false
	}
	if time.Now().After(e.expiration) {
		c.mu.Lock()
		c.lru.Remove(key)
		c.mu.Unlock()
		return attestation.AttestationReport{}, false
	}
	return e.report, true
}

// Put stores report under key with the configured TTL.
func (c *Cache) Put(key string, report attestation.AttestationReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &entry{report: report, expiration: time.Now().Add(c.ttl)})
}

// Wait blocks until the rate limiter admits one more verification, or ctx
// is done.
func (c *Cache) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// Purge drops every cached entry unconditionally.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// PurgeExpired drops only entries whose TTL has elapsed. The scheduler
// calls this periodically so memory doesn't grow with churned certificates
// between LRU evictions.
func (c *Cache) PurgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && now.After(e.expiration) {
			c.lru.Remove(key)
		}
	}
}

// Len reports the number of entries currently cached, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}
