package selection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
	"github.com/wonny/bistpro/pkg/redis"
)

// ResultCache holds scan results for a bounded time.
// Owned by the caller and passed to the scanner explicitly.
type ResultCache interface {
	Get(ctx context.Context, key string) (*contracts.ScanResult, bool, error)
	Set(ctx context.Context, key string, result *contracts.ScanResult, ttl time.Duration) error
}

// CacheKey identifies a scan of codes at lookback within the TTL bucket that
// contains now. Two scans of the same universe inside one bucket share a key.
func CacheKey(codes []string, lookback contracts.Lookback, now time.Time, ttl time.Duration) string {
	h := sha256.New()
	h.Write([]byte(lookback))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(codes, ",")))
	sum := hex.EncodeToString(h.Sum(nil))[:16]

	bucket := int64(0)
	if ttl > 0 {
		bucket = now.UnixNano() / int64(ttl)
	}
	return fmt.Sprintf("scan:%s:%d", sum, bucket)
}

// =============================================================================
// In-process cache
// =============================================================================

type memoryEntry struct {
	result    contracts.ScanResult
	expiresAt time.Time
}

// MemoryCache is a process-local ResultCache
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of a live entry
func (c *MemoryCache) Get(_ context.Context, key string) (*contracts.ScanResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}

	r := e.result
	r.Candidates = append([]contracts.ScoredCandidate(nil), e.result.Candidates...)
	r.Outcomes = append([]contracts.InstrumentOutcome(nil), e.result.Outcomes...)
	return &r, true, nil
}

// Set stores a copy of result, evicting expired entries
func (c *MemoryCache) Set(_ context.Context, key string, result *contracts.ScanResult, ttl time.Duration) error {
	if result == nil || ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	r := *result
	r.Candidates = append([]contracts.ScoredCandidate(nil), result.Candidates...)
	r.Outcomes = append([]contracts.InstrumentOutcome(nil), result.Outcomes...)
	c.entries[key] = memoryEntry{result: r, expiresAt: now.Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// =============================================================================
// Redis cache
// =============================================================================

// RedisCache shares scan results between processes
type RedisCache struct {
	cache *redis.Cache
}

// NewRedisCache wraps a pkg/redis cache helper
func NewRedisCache(cache *redis.Cache) *RedisCache {
	return &RedisCache{cache: cache}
}

// Get loads a result stored by any process
func (c *RedisCache) Get(ctx context.Context, key string) (*contracts.ScanResult, bool, error) {
	var r contracts.ScanResult
	found, err := c.cache.Get(ctx, key, &r)
	if err != nil || !found {
		return nil, false, err
	}
	return &r, true, nil
}

// Set stores result with ttl
func (c *RedisCache) Set(ctx context.Context, key string, result *contracts.ScanResult, ttl time.Duration) error {
	if result == nil || ttl <= 0 {
		return nil
	}
	return c.cache.Set(ctx, key, result, ttl)
}
