// Package settings exposes per-tenant settings to the catalog engine, with a
// read-through cache in front of the settings table.
package settings

import (
	"context"
	"encoding/json"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// Store is the persistence slice the settings service needs.
type Store interface {
	GetTenantSettings(ctx context.Context, tenantID *string) (*models.TenantSettings, error)
}

// Cache is the cache slice the settings service needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Service resolves tenant settings, falling back to configured defaults when
// a tenant carries no settings row.
type Service struct {
	store    Store
	cache    Cache
	ttl      time.Duration
	defaults models.TenantSettings
	logger   *zap.Logger
}

// New creates a settings service
func New(store Store, cache Cache, allowCloningByDefault bool, ttl time.Duration) *Service {
	return &Service{
		store: store,
		cache: cache,
		ttl:   ttl,
		defaults: models.TenantSettings{
			Services: models.ServicesSettings{AllowCloning: allowCloningByDefault},
		},
		logger: util.GetLogger(),
	}
}

// Get returns the tenant's settings document, or the defaults when the tenant
// has none.
func (s *Service) Get(ctx context.Context, tenantID *string) (*models.TenantSettings, error) {
	key := cacheKey(tenantID)
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var cached models.TenantSettings
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
			s.logger.Warn("corrupt cached tenant settings", zap.String("key", key))
		}
	}

	settings, err := s.store.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := s.defaults
		settings = &defaults
	}

	if s.cache != nil {
		if raw, err := json.Marshal(settings); err == nil {
			s.cache.Set(ctx, key, raw, s.ttl)
		}
	}
	return settings, nil
}

func cacheKey(tenantID *string) string {
	if tenantID == nil {
		return "tenant-settings:global"
	}
	return "tenant-settings:" + *tenantID
}
