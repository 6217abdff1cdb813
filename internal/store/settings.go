package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"catalog-service/internal/models"
)

// GetTenantSettings loads the settings document for a tenant. Returns
// (nil, nil) when the tenant has no settings row; globally shared records
// (nil tenant) carry no settings document.
func (s *Store) GetTenantSettings(ctx context.Context, tenantID *string) (*models.TenantSettings, error) {
	if tenantID == nil {
		return nil, nil
	}

	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		"SELECT settings FROM tenant_settings WHERE tenant_id = $1", *tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant settings: %w", err)
	}

	var settings models.TenantSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("decode tenant settings: %w", err)
	}
	return &settings, nil
}
