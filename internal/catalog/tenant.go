package catalog

// TenantResolver maps a caller-supplied tenant identifier to the effective
// one. The default tenant is injected at startup; resolution is pure and does
// no I/O.
type TenantResolver struct {
	defaultTenantID string
}

// NewTenantResolver creates a resolver with an optional default tenant.
func NewTenantResolver(defaultTenantID string) *TenantResolver {
	return &TenantResolver{defaultTenantID: defaultTenantID}
}

// Resolve returns the candidate unchanged when supplied, otherwise the
// configured default, otherwise nil: the sentinel for globally shared
// records.
func (r *TenantResolver) Resolve(candidate *string) *string {
	if candidate != nil && *candidate != "" {
		return candidate
	}
	if r.defaultTenantID != "" {
		id := r.defaultTenantID
		return &id
	}
	return nil
}

// tenantKey renders a tenant id for cache keys; nil maps to the shared scope.
func tenantKey(tenantID *string) string {
	if tenantID == nil {
		return "global"
	}
	return *tenantID
}
