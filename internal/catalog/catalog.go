package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/notify"
	"catalog-service/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence capability the engine drives. The concrete
// implementation lives in internal/store.
type Store interface {
	ListServices(ctx context.Context, q models.ListQuery) ([]models.Service, int, error)
	ListServiceRows(ctx context.Context, tenantID *string) ([]models.Service, error)
	ListServicesForExport(ctx context.Context, tenantID *string, includeInactive bool) ([]models.Service, error)
	GetService(ctx context.Context, tenantID *string, id string) (*models.Service, error)
	GetServicesByIDs(ctx context.Context, tenantID *string, ids []string) ([]models.Service, error)
	FindServiceBySlug(ctx context.Context, tenantID *string, slug, excludeID string) (*models.Service, error)
	CreateService(ctx context.Context, svc *models.Service) error
	UpdateService(ctx context.Context, svc *models.Service) error
	UpdateServiceSettings(ctx context.Context, id string, settings models.JSONMap) error
	UpdateServicesFields(ctx context.Context, tenantID *string, ids []string, fields map[string]interface{}) (int64, error)
	HardDeleteService(ctx context.Context, id string) error
	CountServices(ctx context.Context, f models.ServiceCountFilter) (int, error)
	CountDistinctCategories(ctx context.Context, tenantID *string) (int, error)
	AggregatePrice(ctx context.Context, tenantID *string) (avg, sum float64, err error)
	ListRecentBookings(ctx context.Context, tenantID *string, since time.Time, limit int) ([]models.BookingWithService, error)
	ListRecentBookingsRaw(ctx context.Context, tenantID *string, since time.Time, limit int) ([]models.BookingWithService, error)
}

// Cache is the key-value store with per-key TTL and namespace generations.
// It is never a source of truth; implementations swallow their own failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Generation(ctx context.Context, scope string) (int64, bool)
	BumpGeneration(ctx context.Context, scope string)
}

// EventBus emits catalog domain events; publish failures never abort the
// triggering operation.
type EventBus interface {
	PublishServiceCreated(ctx context.Context, tenantID *string, ref models.ServiceRef, actor string) error
	PublishServiceUpdated(ctx context.Context, tenantID *string, ref models.ServiceRef, changes []string, actor string) error
	PublishServiceDeleted(ctx context.Context, tenantID *string, serviceID, actor string) error
	PublishBulkAction(ctx context.Context, tenantID *string, action string, count int, actor string) error
}

// SettingsService resolves per-tenant settings.
type SettingsService interface {
	Get(ctx context.Context, tenantID *string) (*models.TenantSettings, error)
}

// Options carries the engine's cache TTLs and the analytics sub-query budget.
type Options struct {
	ListTTL      time.Duration
	RecordTTL    time.Duration
	StatsTTL     time.Duration
	StatsTimeout time.Duration
}

// DefaultOptions returns the documented TTLs: 60s lists, 300s records and
// stats, 10s analytics sub-queries.
func DefaultOptions() Options {
	return Options{
		ListTTL:      60 * time.Second,
		RecordTTL:    300 * time.Second,
		StatsTTL:     300 * time.Second,
		StatsTimeout: 10 * time.Second,
	}
}

// Catalog is the tenant-scoped service-catalog engine.
type Catalog struct {
	store    Store
	cache    Cache
	events   EventBus
	notifier notify.Notifier
	settings SettingsService
	resolver *TenantResolver
	opts     Options
	validate *validator.Validate
	logger   *zap.Logger
}

// New creates the engine.
func New(store Store, cache Cache, events EventBus, notifier notify.Notifier, settings SettingsService, resolver *TenantResolver, opts Options) *Catalog {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Catalog{
		store:    store,
		cache:    cache,
		events:   events,
		notifier: notifier,
		settings: settings,
		resolver: resolver,
		opts:     opts,
		validate: validator.New(),
		logger:   util.GetLogger(),
	}
}

// ListResult is a page of catalog records.
type ListResult struct {
	Services   []models.Service `json:"services"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// List returns a filtered, sorted page of services. The structured query is
// tried first; when it fails the degraded in-memory path answers with
// identical semantics. Results are cached for the list TTL either way.
func (c *Catalog) List(ctx context.Context, tenantID *string, q models.ListQuery) (*ListResult, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.List")
	defer span.End()

	q.TenantID = c.resolver.Resolve(tenantID)
	q.Normalize()

	key, cacheable := c.listCacheKey(ctx, q)
	if cacheable {
		var cached ListResult
		if c.cacheGet(ctx, key, "list", &cached) {
			return &cached, nil
		}
	}

	start := time.Now()
	defer func() {
		util.ListQueryLatency.Observe(time.Since(start).Seconds())
	}()

	var result *ListResult
	services, total, err := c.store.ListServices(ctx, q)
	if err != nil {
		c.logger.Warn("structured list query failed, using degraded path",
			zap.String("tenant", tenantKey(q.TenantID)), zap.Error(err))
		util.ListFallbackTotal.Inc()

		rows, ferr := c.store.ListServiceRows(ctx, q.TenantID)
		if ferr != nil {
			return nil, fmt.Errorf("degraded list query: %w", ferr)
		}
		result = listInMemory(rows, q)
	} else {
		if services == nil {
			services = []models.Service{}
		}
		result = &ListResult{
			Services:   services,
			Total:      total,
			Page:       q.Offset/q.Limit + 1,
			Limit:      q.Limit,
			TotalPages: pageCount(total, q.Limit),
		}
	}

	if cacheable {
		c.cachePut(ctx, key, result, c.opts.ListTTL)
	}
	return result, nil
}

// GetByID returns one record for the tenant, read through the record cache.
func (c *Catalog) GetByID(ctx context.Context, tenantID *string, id string) (*models.Service, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.GetByID")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	key := recordKey(tid, id)

	var cached models.Service
	if c.cacheGet(ctx, key, "record", &cached) {
		return &cached, nil
	}

	svc, err := c.store.GetService(ctx, tid, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, ErrNotFound
	}

	c.cachePut(ctx, key, svc, c.opts.RecordTTL)
	return svc, nil
}

// Create validates and persists a new record, invalidates caches, and emits
// the creation event best-effort.
func (c *Catalog) Create(ctx context.Context, tenantID *string, form *ServiceFormData, actor string) (*models.Service, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Create")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	form.sanitize()
	if err := validateStruct(c.validate, form); err != nil {
		return nil, err
	}

	slug := form.Slug
	if slug == "" {
		slug = GenerateSlug(form.Name)
	}
	if err := c.checkSlugUnique(ctx, tid, slug, ""); err != nil {
		return nil, err
	}

	active := true
	if form.Active != nil {
		active = *form.Active
	}

	svc := &models.Service{
		ID:          uuid.New().String(),
		TenantID:    tid,
		Name:        form.Name,
		Slug:        slug,
		Description: form.Description,
		ShortDesc:   form.ShortDesc,
		Features:    form.Features,
		Price:       form.Price,
		Duration:    form.Duration,
		Category:    form.Category,
		Featured:    form.Featured,
		Active:      active,
		Image:       form.Image,
		Settings:    form.Settings,
	}
	syncStatus(svc)

	if err := c.store.CreateService(ctx, svc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.logger.Error("create accepted no row, persistence unavailable",
				zap.String("tenant", tenantKey(tid)), zap.String("slug", slug))
			return nil, ErrPersistenceUnavailable
		}
		return nil, err
	}

	util.ServicesCreatedTotal.Inc()
	c.invalidate(ctx, tid, svc.ID)
	c.emitCreated(ctx, tid, svc, actor)

	return svc, nil
}

// Update applies a partial patch, re-validating slug uniqueness only when the
// slug changes and keeping active/status synchronized. The change-set of
// field names rides on the update event.
func (c *Catalog) Update(ctx context.Context, tenantID *string, id string, patch *ServicePatch, actor string) (*models.Service, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Update")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	existing, err := c.GetByID(ctx, tid, id)
	if err != nil {
		return nil, err
	}

	patch.sanitize()
	if err := validateStruct(c.validate, patch); err != nil {
		return nil, err
	}
	if patch.Slug != nil && *patch.Slug != existing.Slug {
		if err := c.checkSlugUnique(ctx, tid, *patch.Slug, id); err != nil {
			return nil, err
		}
	}

	updated := *existing
	applyPatch(&updated, patch)
	syncStatus(&updated)

	if err := c.store.UpdateService(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	util.ServicesUpdatedTotal.Inc()
	c.invalidate(ctx, tid, id)

	changes := detectChanges(existing, &updated)
	if len(changes) > 0 {
		if err := c.notifier.NotifyServiceUpdated(ctx, &updated, changes, actor); err != nil {
			c.logger.Warn("service updated notification failed", zap.Error(err))
		}
	}
	if err := c.events.PublishServiceUpdated(ctx, tid, serviceRef(&updated), changes, actor); err != nil {
		c.logger.Warn("service updated event failed", zap.Error(err))
	}

	return &updated, nil
}

// Delete soft-deletes: the row stays, deactivated.
func (c *Catalog) Delete(ctx context.Context, tenantID *string, id string, actor string) error {
	ctx, span := util.StartSpan(ctx, "Catalog.Delete")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	existing, err := c.GetByID(ctx, tid, id)
	if err != nil {
		return err
	}

	count, err := c.store.UpdateServicesFields(ctx, tid, []string{id}, map[string]interface{}{
		"active": false,
		"status": models.StatusInactive,
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	util.ServicesDeletedTotal.Inc()
	c.invalidate(ctx, tid, id)

	if err := c.notifier.NotifyServiceDeleted(ctx, existing, actor); err != nil {
		c.logger.Warn("service deleted notification failed", zap.Error(err))
	}
	if err := c.events.PublishServiceDeleted(ctx, tid, id, actor); err != nil {
		c.logger.Warn("service deleted event failed", zap.Error(err))
	}
	return nil
}

// Clone copies an existing record into a new DRAFT: unfeatured, inactive,
// with a scope-unique slug derived from the new name, copying price,
// duration, category, features, image and settings. The tenant's settings
// must allow cloning, otherwise ErrCloningDisabled. Failures preserve the
// underlying cause.
func (c *Catalog) Clone(ctx context.Context, name, fromID string) (*models.Service, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Clone")
	defer span.End()

	svc, err := c.cloneLocked(ctx, name, fromID)
	if err != nil {
		return nil, fmt.Errorf("clone service failed: %w", err)
	}
	return svc, nil
}

func (c *Catalog) cloneLocked(ctx context.Context, name, fromID string) (*models.Service, error) {
	src, err := c.store.GetService(ctx, nil, fromID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("source service %s not found", fromID)
	}

	tid := src.TenantID
	if tid == nil {
		tid = c.resolver.Resolve(nil)
	}
	if tid == nil {
		return nil, errors.New("tenant context required to clone service")
	}

	settings, err := c.settings.Get(ctx, tid)
	if err != nil {
		return nil, fmt.Errorf("verify settings: %w", err)
	}
	if settings != nil && !settings.Services.AllowCloning {
		return nil, ErrCloningDisabled
	}

	clone, err := c.insertClone(ctx, src, tid, name)
	if err != nil {
		return nil, err
	}

	c.invalidate(ctx, tid, clone.ID)
	c.emitCreated(ctx, tid, clone, "system")

	return clone, nil
}

// insertClone copies src into a new DRAFT record under tid, probing for a
// scope-unique slug. Callers own cache invalidation and events.
func (c *Catalog) insertClone(ctx context.Context, src *models.Service, tid *string, name string) (*models.Service, error) {
	baseSlug := GenerateSlug(name)
	if baseSlug == "" {
		baseSlug = fmt.Sprintf("service-%d", time.Now().UnixMilli())
	}

	slug := baseSlug
	for attempt := 1; ; attempt++ {
		existing, err := c.store.FindServiceBySlug(ctx, tid, slug, "")
		if err != nil {
			return nil, err
		}
		if existing == nil {
			break
		}
		slug = fmt.Sprintf("%s-%d", baseSlug, attempt+1)
	}

	clone := &models.Service{
		ID:          uuid.New().String(),
		TenantID:    tid,
		Name:        name,
		Slug:        slug,
		Description: src.Description,
		ShortDesc:   src.ShortDesc,
		Features:    src.Features,
		Price:       src.Price,
		Duration:    src.Duration,
		Category:    src.Category,
		Featured:    false,
		Active:      false,
		Status:      models.StatusDraft,
		Image:       src.Image,
		Settings:    src.Settings,
	}

	if err := c.store.CreateService(ctx, clone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPersistenceUnavailable
		}
		return nil, err
	}

	util.ServicesClonedTotal.Inc()
	return clone, nil
}

// SettingsUpdate targets one record's settings with a shallow merge.
type SettingsUpdate struct {
	ID       string         `json:"id"`
	Settings models.JSONMap `json:"settings"`
}

// SettingsUpdateResult reports how many records merged cleanly.
type SettingsUpdateResult struct {
	Updated int             `json:"updated"`
	Errors  []BulkItemError `json:"errors"`
}

// BulkUpdateSettings shallow-merges settings into each target record,
// collecting per-item errors. It never batches: every record's prior settings
// differ.
func (c *Catalog) BulkUpdateSettings(ctx context.Context, tenantID *string, updates []SettingsUpdate) (*SettingsUpdateResult, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.BulkUpdateSettings")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	return c.bulkUpdateSettings(ctx, tid, updates)
}

func (c *Catalog) bulkUpdateSettings(ctx context.Context, tid *string, updates []SettingsUpdate) (*SettingsUpdateResult, error) {
	result := &SettingsUpdateResult{Errors: []BulkItemError{}}
	if len(updates) == 0 {
		return result, nil
	}

	ids := make([]string, len(updates))
	for i, u := range updates {
		ids[i] = u.ID
	}
	existing, err := c.store.GetServicesByIDs(ctx, tid, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Service, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	touched := make([]string, 0, len(updates))
	for _, u := range updates {
		before, ok := byID[u.ID]
		if !ok {
			result.Errors = append(result.Errors, BulkItemError{ID: u.ID, Error: ErrNotFound.Error()})
			continue
		}
		merged := mergeSettings(before.Settings, u.Settings)
		if err := c.store.UpdateServiceSettings(ctx, u.ID, merged); err != nil {
			msg := err.Error()
			if errors.Is(err, sql.ErrNoRows) {
				msg = ErrNotFound.Error()
			}
			result.Errors = append(result.Errors, BulkItemError{ID: u.ID, Error: msg})
			continue
		}
		result.Updated++
		touched = append(touched, u.ID)
	}

	c.invalidate(ctx, tid, touched...)
	return result, nil
}

// Export renders the catalog as CSV or JSON. Inactive records are excluded
// unless asked for.
func (c *Catalog) Export(ctx context.Context, tenantID *string, format string, includeInactive bool) ([]byte, string, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Export")
	defer span.End()

	rows, err := c.store.ListServicesForExport(ctx, tenantID, includeInactive)
	if err != nil {
		return nil, "", err
	}
	return renderExport(rows, format)
}

// --- helpers ---

func (c *Catalog) checkSlugUnique(ctx context.Context, tid *string, slug, excludeID string) error {
	existing, err := c.store.FindServiceBySlug(ctx, tid, slug, excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return &SlugConflictError{Slug: slug, TenantID: tid}
	}
	return nil
}

func (c *Catalog) emitCreated(ctx context.Context, tid *string, svc *models.Service, actor string) {
	if err := c.notifier.NotifyServiceCreated(ctx, svc, actor); err != nil {
		c.logger.Warn("service created notification failed", zap.Error(err))
	}
	if err := c.events.PublishServiceCreated(ctx, tid, serviceRef(svc), actor); err != nil {
		c.logger.Warn("service created event failed", zap.Error(err))
	}
}

// syncStatus keeps the active flag and lifecycle status consistent: active
// records are ACTIVE, everything else keeps its non-active status, defaulting
// to INACTIVE.
func syncStatus(svc *models.Service) {
	if svc.Active {
		svc.Status = models.StatusActive
		return
	}
	if svc.Status == "" || svc.Status == models.StatusActive {
		svc.Status = models.StatusInactive
	}
}

func applyPatch(svc *models.Service, p *ServicePatch) {
	if p.Name != nil {
		svc.Name = *p.Name
	}
	if p.Slug != nil {
		svc.Slug = *p.Slug
	}
	if p.Description != nil {
		svc.Description = p.Description
	}
	if p.ShortDesc != nil {
		svc.ShortDesc = p.ShortDesc
	}
	if p.Features != nil {
		svc.Features = p.Features
	}
	if p.Price != nil {
		svc.Price = p.Price
	}
	if p.Duration != nil {
		svc.Duration = p.Duration
	}
	if p.Category != nil {
		svc.Category = p.Category
	}
	if p.Featured != nil {
		svc.Featured = *p.Featured
	}
	if p.Active != nil {
		svc.Active = *p.Active
		if !*p.Active {
			svc.Status = models.StatusInactive
		}
	}
	if p.Image != nil {
		svc.Image = p.Image
	}
	if p.Settings != nil {
		svc.Settings = mergeSettings(svc.Settings, p.Settings)
	}
}

// mergeSettings is a shallow merge: top-level keys from next win, everything
// else in prev survives.
func mergeSettings(prev, next models.JSONMap) models.JSONMap {
	merged := make(models.JSONMap, len(prev)+len(next))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range next {
		merged[k] = v
	}
	return merged
}

func detectChanges(before, after *models.Service) []string {
	var changes []string
	add := func(field string, changed bool) {
		if changed {
			changes = append(changes, field)
		}
	}
	add("name", before.Name != after.Name)
	add("slug", before.Slug != after.Slug)
	add("description", !strPtrEq(before.Description, after.Description))
	add("short_desc", !strPtrEq(before.ShortDesc, after.ShortDesc))
	add("features", !strSliceEq(before.Features, after.Features))
	add("price", !floatPtrEq(before.Price, after.Price))
	add("duration", !intPtrEq(before.Duration, after.Duration))
	add("category", !strPtrEq(before.Category, after.Category))
	add("featured", before.Featured != after.Featured)
	add("active", before.Active != after.Active)
	add("status", before.Status != after.Status)
	add("image", !strPtrEq(before.Image, after.Image))
	add("settings", !settingsEq(before.Settings, after.Settings))
	return changes
}

func serviceRef(svc *models.Service) models.ServiceRef {
	return models.ServiceRef{ID: svc.ID, Slug: svc.Slug, Name: svc.Name}
}

func pageCount(total, limit int) int {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return pages
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strSliceEq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func settingsEq(a, b models.JSONMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || fmt.Sprintf("%v", av) != fmt.Sprintf("%v", bv) {
			return false
		}
	}
	return true
}
