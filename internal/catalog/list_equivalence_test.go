package catalog

import (
	"context"
	"testing"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// equivalenceFixture is a catalog slice exercising every filter and sort
// dimension: status buckets, featured flags, categories, nil prices, a name
// carrying LIKE metacharacters, and distinct created/updated orderings.
func equivalenceFixture() []models.Service {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.Service{
		{
			ID: "a", TenantID: strPtr("t1"), Name: "Deep Tissue Massage", Slug: "deep-tissue-massage",
			Category: strPtr("massage"), Price: floatPtr(80), Featured: true,
			Active: true, Status: models.StatusActive,
			CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour),
		},
		{
			ID: "b", TenantID: strPtr("t1"), Name: "Haircut", Slug: "haircut",
			Category: strPtr("hair"), Price: floatPtr(35),
			Active: true, Status: models.StatusActive,
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(4 * time.Hour),
		},
		{
			ID: "c", TenantID: strPtr("t1"), Name: "Beard Trim", Slug: "beard-trim",
			Category: strPtr("hair"), ShortDesc: strPtr("Quick tidy-up"),
			Active: false, Status: models.StatusDraft,
			CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(3 * time.Hour),
		},
		{
			ID: "d", TenantID: strPtr("t1"), Name: "50% Off Combo", Slug: "50-off-combo",
			Category: strPtr("promo"), Price: floatPtr(20), Featured: true,
			Active: true, Status: models.StatusActive,
			CreatedAt: base.Add(3 * time.Hour), UpdatedAt: base.Add(2 * time.Hour),
		},
		{
			ID: "e", TenantID: strPtr("t1"), Name: "Hot Stone Massage", Slug: "hot-stone-massage",
			Category: strPtr("massage"), Price: floatPtr(80),
			Active: false, Status: models.StatusInactive,
			CreatedAt: base.Add(4 * time.Hour), UpdatedAt: base.Add(time.Hour),
		},
		{
			ID: "f", TenantID: strPtr("t1"), Name: "Swedish Massage", Slug: "swedish-massage",
			Category: strPtr("massage"),
			Active:   true, Status: models.StatusActive,
			CreatedAt: base.Add(5 * time.Hour), UpdatedAt: base.Add(30 * time.Minute),
		},
	}
}

// TestListPathsAgreeOnOrderAndTotals runs each query through the structured
// store path and the in-memory path, asserting both return the same ordered
// ids and the same total. The expected ids per case are derived by hand from
// the fixture.
func TestListPathsAgreeOnOrderAndTotals(t *testing.T) {
	fixture := equivalenceFixture()
	tenant := "t1"

	cases := []struct {
		name  string
		query models.ListQuery
		ids   []string
		total int
	}{
		{
			name:  "default recent first",
			query: models.ListQuery{},
			ids:   []string{"a", "b", "c", "d", "e", "f"},
			total: 6,
		},
		{
			name: "active by name asc first page",
			query: models.ListQuery{
				Filters: models.ServiceFilters{Status: models.StatusBucketActive},
				SortBy:  "name", SortOrder: "asc", Limit: 2,
			},
			ids:   []string{"d", "a"},
			total: 4,
		},
		{
			name: "active by name asc second page",
			query: models.ListQuery{
				Filters: models.ServiceFilters{Status: models.StatusBucketActive},
				SortBy:  "name", SortOrder: "asc", Limit: 2, Offset: 2,
			},
			ids:   []string{"b", "f"},
			total: 4,
		},
		{
			name:  "price desc treats nil as zero with id tiebreak",
			query: models.ListQuery{SortBy: "price", SortOrder: "desc"},
			ids:   []string{"a", "e", "b", "d", "c", "f"},
			total: 6,
		},
		{
			name:  "featured only",
			query: models.ListQuery{Filters: models.ServiceFilters{Featured: models.FeaturedOnly}},
			ids:   []string{"a", "d"},
			total: 2,
		},
		{
			name:  "inactive bucket includes drafts",
			query: models.ListQuery{Filters: models.ServiceFilters{Status: models.StatusBucketInactive}},
			ids:   []string{"c", "e"},
			total: 2,
		},
		{
			name:  "category equality",
			query: models.ListQuery{Filters: models.ServiceFilters{Category: "hair"}},
			ids:   []string{"b", "c"},
			total: 2,
		},
		{
			name:  "search matches a literal percent sign",
			query: models.ListQuery{Filters: models.ServiceFilters{Search: "50%"}},
			ids:   []string{"d"},
			total: 1,
		},
		{
			name:  "search is case insensitive across fields",
			query: models.ListQuery{Filters: models.ServiceFilters{Search: "MASSAGE"}},
			ids:   []string{"a", "e", "f"},
			total: 3,
		},
		{
			name:  "created asc",
			query: models.ListQuery{SortBy: "createdAt", SortOrder: "asc", Limit: 3},
			ids:   []string{"a", "b", "c"},
			total: 6,
		},
		{
			name: "offset beyond range",
			query: models.ListQuery{
				Filters: models.ServiceFilters{Status: models.StatusBucketActive},
				Limit:   2, Offset: 10,
			},
			ids:   []string{},
			total: 4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.query
			q.TenantID = &tenant
			q.Normalize()

			inMem := listInMemory(fixture, q)
			assert.Equal(t, tc.ids, serviceIDs(inMem.Services))
			assert.Equal(t, tc.total, inMem.Total)

			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			st := store.NewStoreFromDB(sqlx.NewDb(db, "sqlmock"))

			mock.ExpectQuery("SELECT (.+) FROM services").
				WillReturnRows(fixtureRows(fixture, tc.ids))
			mock.ExpectQuery("SELECT COUNT").
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tc.total))

			services, total, err := st.ListServices(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, serviceIDs(inMem.Services), serviceIDs(services))
			assert.Equal(t, inMem.Total, total)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func serviceIDs(services []models.Service) []string {
	ids := make([]string, 0, len(services))
	for i := range services {
		ids = append(ids, services[i].ID)
	}
	return ids
}

// fixtureRows renders the fixture records with the given ids, in that order,
// as the column set the structured list query selects.
func fixtureRows(fixture []models.Service, ids []string) *sqlmock.Rows {
	byID := make(map[string]*models.Service, len(fixture))
	for i := range fixture {
		byID[fixture[i].ID] = &fixture[i]
	}

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "slug", "description", "short_desc", "features",
		"price", "duration", "category", "featured", "active", "status", "image",
		"settings", "created_at", "updated_at",
	})
	for _, id := range ids {
		s := byID[id]
		rows.AddRow(s.ID, nullableStr(s.TenantID), s.Name, s.Slug,
			nullableStr(s.Description), nullableStr(s.ShortDesc), "{}",
			nullableFloat(s.Price), nullableInt(s.Duration), nullableStr(s.Category),
			s.Featured, s.Active, s.Status, nullableStr(s.Image),
			[]byte(`{}`), s.CreatedAt, s.UpdatedAt)
	}
	return rows
}

func nullableStr(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int64(*p)
}
