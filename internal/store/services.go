package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"catalog-service/internal/models"

	"github.com/lib/pq"
)

const serviceColumns = `id, tenant_id, name, slug, description, short_desc, features, price, duration, category, featured, active, status, image, settings, created_at, updated_at`

// rawProjectionColumns is the minimal column set used by the degraded list
// path. Features and settings are deliberately excluded: the fallback only
// filters, sorts and paginates, none of which touch them.
const rawProjectionColumns = `id, tenant_id, name, slug, description, short_desc, price, duration, category, featured, active, status, image, created_at, updated_at`

// ListServices runs the structured list query: dynamic WHERE from the filters,
// ORDER BY from the sort key, LIMIT/OFFSET pagination, plus a COUNT over the
// same predicate.
func (s *Store) ListServices(ctx context.Context, q models.ListQuery) ([]models.Service, int, error) {
	where, args := buildServiceWhere(q.TenantID, q.Filters)

	orderCol := "updated_at"
	switch q.SortBy {
	case "name":
		orderCol = "name"
	case "price":
		orderCol = "COALESCE(price, 0)"
	case "createdAt":
		orderCol = "created_at"
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	query := fmt.Sprintf(
		"SELECT %s FROM services%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		serviceColumns, where, orderCol, dir, len(args)+1, len(args)+2)

	var services []models.Service
	if err := s.db.SelectContext(ctx, &services, query, append(args, q.Limit, q.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM services" + where
	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	return services, total, nil
}

// ListServiceRows fetches the raw tenant-scoped projection for the degraded
// list path. A nil tenant yields no rows: there is no global raw scope.
func (s *Store) ListServiceRows(ctx context.Context, tenantID *string) ([]models.Service, error) {
	if tenantID == nil {
		return []models.Service{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM services WHERE tenant_id = $1", rawProjectionColumns)
	var services []models.Service
	if err := s.db.SelectContext(ctx, &services, query, *tenantID); err != nil {
		return nil, fmt.Errorf("raw service rows: %w", err)
	}
	return services, nil
}

// ListServicesForExport fetches the tenant's records ordered by recency for
// the export surface. Inactive records are skipped unless asked for.
func (s *Store) ListServicesForExport(ctx context.Context, tenantID *string, includeInactive bool) ([]models.Service, error) {
	conds := []string{}
	args := []interface{}{}
	if tenantID != nil {
		args = append(args, *tenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if !includeInactive {
		conds = append(conds, "active = TRUE")
	}

	query := fmt.Sprintf("SELECT %s FROM services", serviceColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC, id ASC"

	var services []models.Service
	if err := s.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("export services: %w", err)
	}
	return services, nil
}

// GetServicesByIDs loads the records for the given ids within the tenant
// scope. Missing ids are simply absent from the result.
func (s *Store) GetServicesByIDs(ctx context.Context, tenantID *string, ids []string) ([]models.Service, error) {
	if len(ids) == 0 {
		return []models.Service{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM services WHERE id = ANY($1)", serviceColumns)
	args := []interface{}{pq.Array(ids)}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	var services []models.Service
	if err := s.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("get services by ids: %w", err)
	}
	return services, nil
}

// GetService retrieves one service scoped to the tenant. Returns (nil, nil)
// when absent.
func (s *Store) GetService(ctx context.Context, tenantID *string, id string) (*models.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE id = $1", serviceColumns)
	args := []interface{}{id}
	if tenantID != nil {
		query += " AND tenant_id = $2"
		args = append(args, *tenantID)
	}

	var svc models.Service
	err := s.db.GetContext(ctx, &svc, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	return &svc, nil
}

// FindServiceBySlug looks a slug up within its tenant uniqueness scope. A nil
// tenant scopes to globally shared records (tenant_id IS NULL). excludeID
// skips the record being updated.
func (s *Store) FindServiceBySlug(ctx context.Context, tenantID *string, slug, excludeID string) (*models.Service, error) {
	query := fmt.Sprintf("SELECT %s FROM services WHERE slug = $1", serviceColumns)
	args := []interface{}{slug}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	} else {
		query += " AND tenant_id IS NULL"
	}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}

	var svc models.Service
	err := s.db.GetContext(ctx, &svc, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find service by slug %s: %w", slug, err)
	}
	return &svc, nil
}

// CreateService inserts a new service and loads the DB-assigned timestamps
// back onto it.
func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	query := `
		INSERT INTO services (id, tenant_id, name, slug, description, short_desc, features, price, duration, category, featured, active, status, image, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		svc.ID, svc.TenantID, svc.Name, svc.Slug, svc.Description, svc.ShortDesc,
		svc.Features, svc.Price, svc.Duration, svc.Category, svc.Featured,
		svc.Active, svc.Status, svc.Image, svc.Settings,
	).Scan(&svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// UpdateService writes every mutable field of the record and refreshes
// updated_at.
func (s *Store) UpdateService(ctx context.Context, svc *models.Service) error {
	query := `
		UPDATE services
		SET name = $1, slug = $2, description = $3, short_desc = $4, features = $5,
		    price = $6, duration = $7, category = $8, featured = $9, active = $10,
		    status = $11, image = $12, settings = $13, updated_at = NOW()
		WHERE id = $14
		RETURNING updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		svc.Name, svc.Slug, svc.Description, svc.ShortDesc, svc.Features,
		svc.Price, svc.Duration, svc.Category, svc.Featured, svc.Active,
		svc.Status, svc.Image, svc.Settings, svc.ID,
	).Scan(&svc.UpdatedAt)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("update service %s: %w", svc.ID, err)
	}
	return nil
}

// UpdateServiceSettings replaces the settings column of one record. The
// shallow merge happens in the engine, which holds the prior settings.
func (s *Store) UpdateServiceSettings(ctx context.Context, id string, settings models.JSONMap) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE services SET settings = $1, updated_at = NOW() WHERE id = $2",
		settings, id)
	if err != nil {
		return fmt.Errorf("update service settings %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateServicesFields applies one field-update payload to every target id in
// a single batched write scoped to the tenant. Returns the count actually
// updated, which may be less than requested when ids belong to another
// tenant. Columns are whitelisted by the engine.
func (s *Store) UpdateServicesFields(ctx context.Context, tenantID *string, ids []string, fields map[string]interface{}) (int64, error) {
	if len(ids) == 0 || len(fields) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys)+2)
	for _, k := range keys {
		args = append(args, fields[k])
		sets = append(sets, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, pq.Array(ids))
	query := fmt.Sprintf("UPDATE services SET %s WHERE id = ANY($%d)", strings.Join(sets, ", "), len(args))
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update services: %w", err)
	}
	return res.RowsAffected()
}

// HardDeleteService removes a row outright. Only the clone-rollback path may
// call this, and only on records it just created.
func (s *Store) HardDeleteService(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM services WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("hard delete service %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountServices counts records matching the filter.
func (s *Store) CountServices(ctx context.Context, f models.ServiceCountFilter) (int, error) {
	conds := []string{}
	args := []interface{}{}
	if f.TenantID != nil {
		args = append(args, *f.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.FeaturedOnly {
		conds = append(conds, "featured = TRUE")
	}

	query := "SELECT COUNT(*) FROM services"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return total, nil
}

// CountDistinctCategories counts distinct non-null categories among active
// records.
func (s *Store) CountDistinctCategories(ctx context.Context, tenantID *string) (int, error) {
	query := "SELECT COUNT(DISTINCT category) FROM services WHERE status = $1 AND category IS NOT NULL"
	args := []interface{}{models.StatusActive}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// AggregatePrice averages and sums price across active priced records.
func (s *Store) AggregatePrice(ctx context.Context, tenantID *string) (avg, sum float64, err error) {
	query := "SELECT COALESCE(AVG(price), 0), COALESCE(SUM(price), 0) FROM services WHERE status = $1 AND price IS NOT NULL"
	args := []interface{}{models.StatusActive}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}

	row := s.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&avg, &sum); err != nil {
		return 0, 0, fmt.Errorf("aggregate price: %w", err)
	}
	return avg, sum, nil
}

// buildServiceWhere translates the list filters into a WHERE clause. The
// in-memory fallback must stay behaviorally identical to these predicates.
func buildServiceWhere(tenantID *string, f models.ServiceFilters) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	if tenantID != nil {
		args = append(args, *tenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	switch f.Status {
	case models.StatusBucketActive:
		args = append(args, models.StatusActive)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	case models.StatusBucketInactive:
		args = append(args, models.StatusActive)
		conds = append(conds, fmt.Sprintf("status <> $%d", len(args)))
	}
	switch f.Featured {
	case models.FeaturedOnly:
		conds = append(conds, "featured = TRUE")
	case models.NonFeaturedOnly:
		conds = append(conds, "featured = FALSE")
	}
	if f.Category != "" && f.Category != "all" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE $%d ESCAPE '\\' OR slug ILIKE $%d ESCAPE '\\' OR short_desc ILIKE $%d ESCAPE '\\' OR description ILIKE $%d ESCAPE '\\' OR category ILIKE $%d ESCAPE '\\')",
			n, n, n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike neutralizes LIKE metacharacters so a search term matches as a
// literal substring, the same way the in-memory fallback matches it.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
