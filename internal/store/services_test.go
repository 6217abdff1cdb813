package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"catalog-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

func serviceRows(ids ...string) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "slug", "description", "short_desc", "features",
		"price", "duration", "category", "featured", "active", "status", "image",
		"settings", "created_at", "updated_at",
	})
	for _, id := range ids {
		rows.AddRow(id, "t1", "Service "+id, "service-"+id, nil, nil, "{}",
			nil, nil, nil, false, true, models.StatusActive, nil,
			[]byte(`{}`), now, now)
	}
	return rows
}

func TestListServicesBuildsPredicatesAndOrder(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	q := models.ListQuery{
		TenantID:  &tenant,
		Filters:   models.ServiceFilters{Status: models.StatusBucketActive},
		SortBy:    "name",
		SortOrder: "asc",
		Limit:     10,
		Offset:    0,
	}

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, tenant_id, name, slug, description, short_desc, features, price, duration, category, featured, active, status, image, settings, created_at, updated_at FROM services WHERE tenant_id = $1 AND status = $2 ORDER BY name ASC, id ASC LIMIT $3 OFFSET $4",
	)).WithArgs(tenant, models.StatusActive, 10, 0).
		WillReturnRows(serviceRows("a", "b"))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM services WHERE tenant_id = $1 AND status = $2",
	)).WithArgs(tenant, models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	services, total, err := s.ListServices(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, services, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListServicesSearchSpansColumns(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	q := models.ListQuery{
		TenantID:  &tenant,
		Filters:   models.ServiceFilters{Search: "massage"},
		SortBy:    "updatedAt",
		SortOrder: "desc",
		Limit:     20,
		Offset:    0,
	}

	mock.ExpectQuery(regexp.QuoteMeta(
		`(name ILIKE $2 ESCAPE '\' OR slug ILIKE $2 ESCAPE '\' OR short_desc ILIKE $2 ESCAPE '\' OR description ILIKE $2 ESCAPE '\' OR category ILIKE $2 ESCAPE '\')`,
	)).WithArgs(tenant, "%massage%", 20, 0).
		WillReturnRows(serviceRows("a"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM services")).
		WithArgs(tenant, "%massage%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, total, err := s.ListServices(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListServicesSearchEscapesWildcards(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	q := models.ListQuery{
		TenantID: &tenant,
		Filters:  models.ServiceFilters{Search: `50%_off\deal`},
		Limit:    20,
		Offset:   0,
	}

	// The term matches as a literal substring: every LIKE metacharacter in
	// it arrives escaped.
	escaped := `%50\%\_off\\deal%`
	mock.ExpectQuery(regexp.QuoteMeta(`ILIKE $2 ESCAPE '\'`)).
		WithArgs(tenant, escaped, 20, 0).
		WillReturnRows(serviceRows())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM services")).
		WithArgs(tenant, escaped).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := s.ListServices(context.Background(), q)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetServiceAbsentReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND tenant_id = $2")).
		WithArgs("missing", tenant).
		WillReturnRows(serviceRows())

	svc, err := s.GetService(context.Background(), &tenant, "missing")
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestFindServiceBySlugGlobalScope(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE slug = $1 AND tenant_id IS NULL")).
		WithArgs("haircut").
		WillReturnRows(serviceRows("a"))

	svc, err := s.FindServiceBySlug(context.Background(), nil, "haircut", "")
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "a", svc.ID)
}

func TestFindServiceBySlugExcludesSelf(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE slug = $1 AND tenant_id = $2 AND id <> $3")).
		WithArgs("haircut", tenant, "self").
		WillReturnRows(serviceRows())

	svc, err := s.FindServiceBySlug(context.Background(), &tenant, "haircut", "self")
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestListServiceRowsNilTenantIsEmpty(t *testing.T) {
	s, _ := newMockStore(t)

	rows, err := s.ListServiceRows(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateServicesFieldsDeterministicSQL(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	ids := []string{"a", "b"}

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE services SET active = $1, status = $2, updated_at = NOW() WHERE id = ANY($3) AND tenant_id = $4",
	)).WithArgs(false, models.StatusInactive, pq.Array(ids), tenant).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := s.UpdateServicesFields(context.Background(), &tenant, ids, map[string]interface{}{
		"status": models.StatusInactive,
		"active": false,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateServicesFieldsEmptyInputIsNoop(t *testing.T) {
	s, _ := newMockStore(t)

	count, err := s.UpdateServicesFields(context.Background(), nil, nil, map[string]interface{}{"active": true})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListServicesForExportSkipsInactive(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE tenant_id = $1 AND active = TRUE ORDER BY updated_at DESC, id ASC",
	)).WithArgs(tenant).
		WillReturnRows(serviceRows("a"))

	rows, err := s.ListServicesForExport(context.Background(), &tenant, false)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCountServicesFilters(t *testing.T) {
	s, mock := newMockStore(t)

	tenant := "t1"
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM services WHERE tenant_id = $1 AND status = $2 AND featured = TRUE",
	)).WithArgs(tenant, models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.CountServices(context.Background(), models.ServiceCountFilter{
		TenantID:     &tenant,
		Status:       models.StatusActive,
		FeaturedOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
