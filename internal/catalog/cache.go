package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// listScope is the invalidation namespace for one tenant's list and
// list-derived queries.
func listScope(tenantID *string) string {
	return "services-list:" + tenantKey(tenantID)
}

func recordKey(tenantID *string, id string) string {
	return fmt.Sprintf("service:%s:%s", id, tenantKey(tenantID))
}

func statsKey(tenantID *string) string {
	return fmt.Sprintf("service-stats:%s:30d", tenantKey(tenantID))
}

// listCacheKey builds the deterministic list key: namespace, current
// generation, and a hash over every filter/sort/pagination parameter.
// ok=false means the generation is unreadable and the cache must be bypassed.
func (c *Catalog) listCacheKey(ctx context.Context, q models.ListQuery) (string, bool) {
	scope := listScope(q.TenantID)
	gen, ok := c.cache.Generation(ctx, scope)
	if !ok {
		return "", false
	}

	payload, err := json.Marshal(struct {
		Tenant    string                `json:"tenant"`
		Filters   models.ServiceFilters `json:"filters"`
		SortBy    string                `json:"sort_by"`
		SortOrder string                `json:"sort_order"`
		Limit     int                   `json:"limit"`
		Offset    int                   `json:"offset"`
	}{tenantKey(q.TenantID), q.Filters, q.SortBy, q.SortOrder, q.Limit, q.Offset})
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("%s:%d:%x", scope, gen, sha1.Sum(payload)), true
}

// cacheGet deserializes a cached entry into out. Any failure is a miss.
func (c *Catalog) cacheGet(ctx context.Context, key, kind string, out interface{}) bool {
	raw, ok := c.cache.Get(ctx, key)
	if !ok {
		util.CacheMissesTotal.WithLabelValues(kind).Inc()
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		util.CacheMissesTotal.WithLabelValues(kind).Inc()
		return false
	}
	util.CacheHitsTotal.WithLabelValues(kind).Inc()
	return true
}

// cachePut serializes and stores an entry; failures are dropped.
func (c *Catalog) cachePut(ctx context.Context, key string, val interface{}, ttl time.Duration) {
	raw, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.cache.Set(ctx, key, raw, ttl)
}

// invalidate bumps the tenant's list namespace and drops the single-record
// entries for the affected ids. Every successful write path calls this before
// returning, which is what guarantees read-your-writes.
func (c *Catalog) invalidate(ctx context.Context, tenantID *string, ids ...string) {
	c.cache.BumpGeneration(ctx, listScope(tenantID))
	for _, id := range ids {
		c.cache.Delete(ctx, recordKey(tenantID, id))
	}
}
