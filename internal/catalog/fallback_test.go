package catalog

import (
	"testing"
	"time"

	"catalog-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fallbackFixture() []models.Service {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.Service{
		{
			ID: "a", Name: "Deep Tissue Massage", Slug: "deep-tissue-massage",
			Category: strPtr("massage"), Price: floatPtr(80), Featured: true,
			Active: true, Status: models.StatusActive,
			CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour),
		},
		{
			ID: "b", Name: "Haircut", Slug: "haircut",
			Category: strPtr("hair"), Price: floatPtr(35),
			Active: true, Status: models.StatusActive,
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(2 * time.Hour),
		},
		{
			ID: "c", Name: "Beard Trim", Slug: "beard-trim",
			Category: strPtr("hair"), ShortDesc: strPtr("Quick tidy-up"),
			Active: false, Status: models.StatusDraft,
			CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(time.Hour),
		},
	}
}

func TestFilterServicesStatusBuckets(t *testing.T) {
	rows := fallbackFixture()

	active := filterServices(rows, models.ServiceFilters{Status: models.StatusBucketActive})
	assert.Len(t, active, 2)

	// "inactive" means anything that is not ACTIVE, DRAFT included
	inactive := filterServices(rows, models.ServiceFilters{Status: models.StatusBucketInactive})
	require.Len(t, inactive, 1)
	assert.Equal(t, "c", inactive[0].ID)
}

func TestFilterServicesFeaturedTriState(t *testing.T) {
	rows := fallbackFixture()

	featured := filterServices(rows, models.ServiceFilters{Featured: models.FeaturedOnly})
	require.Len(t, featured, 1)
	assert.Equal(t, "a", featured[0].ID)

	nonFeatured := filterServices(rows, models.ServiceFilters{Featured: models.NonFeaturedOnly})
	assert.Len(t, nonFeatured, 2)

	all := filterServices(rows, models.ServiceFilters{})
	assert.Len(t, all, 3)
}

func TestFilterServicesCategoryAllMeansNoFilter(t *testing.T) {
	rows := fallbackFixture()

	hair := filterServices(rows, models.ServiceFilters{Category: "hair"})
	assert.Len(t, hair, 2)

	all := filterServices(rows, models.ServiceFilters{Category: "all"})
	assert.Len(t, all, 3)
}

func TestFilterServicesSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	rows := fallbackFixture()

	byName := filterServices(rows, models.ServiceFilters{Search: "MASSAGE"})
	require.Len(t, byName, 1)
	assert.Equal(t, "a", byName[0].ID)

	byShortDesc := filterServices(rows, models.ServiceFilters{Search: "tidy"})
	require.Len(t, byShortDesc, 1)
	assert.Equal(t, "c", byShortDesc[0].ID)

	byCategory := filterServices(rows, models.ServiceFilters{Search: "hair"})
	assert.Len(t, byCategory, 2)
}

func TestSortServicesPriceTreatsNilAsZero(t *testing.T) {
	rows := fallbackFixture()
	rows[2].Price = nil

	sortServices(rows, "price", "asc")
	assert.Equal(t, "c", rows[0].ID)
	assert.Equal(t, "b", rows[1].ID)
	assert.Equal(t, "a", rows[2].ID)

	sortServices(rows, "price", "desc")
	assert.Equal(t, "a", rows[0].ID)
}

func TestSortServicesTiebreakIsIDAscending(t *testing.T) {
	now := time.Now()
	rows := []models.Service{
		{ID: "z", Name: "Same", UpdatedAt: now},
		{ID: "a", Name: "Same", UpdatedAt: now},
		{ID: "m", Name: "Same", UpdatedAt: now},
	}

	sortServices(rows, "name", "desc")
	assert.Equal(t, []string{"a", "m", "z"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
}

func TestSortServicesDefaultIsUpdatedAt(t *testing.T) {
	rows := fallbackFixture()

	sortServices(rows, "updatedAt", "desc")
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "c", rows[2].ID)
}

func TestListInMemoryPagination(t *testing.T) {
	rows := fallbackFixture()

	q := models.ListQuery{SortBy: "name", SortOrder: "asc", Limit: 2, Offset: 0}
	page1 := listInMemory(rows, q)
	assert.Equal(t, 3, page1.Total)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Equal(t, 1, page1.Page)
	require.Len(t, page1.Services, 2)
	assert.Equal(t, "Beard Trim", page1.Services[0].Name)

	q.Offset = 2
	page2 := listInMemory(rows, q)
	assert.Equal(t, 2, page2.Page)
	require.Len(t, page2.Services, 1)
	assert.Equal(t, "Haircut", page2.Services[0].Name)

	q.Offset = 10
	beyond := listInMemory(rows, q)
	assert.Empty(t, beyond.Services)
	assert.Equal(t, 3, beyond.Total)
}
