package catalog

import (
	"sort"
	"strings"

	"catalog-service/internal/models"
)

// listInMemory answers a list query from raw rows with the same semantics as
// the structured SQL path: identical predicates, identical sort keys, id
// ascending tiebreak, identical pagination.
func listInMemory(rows []models.Service, q models.ListQuery) *ListResult {
	filtered := filterServices(rows, q.Filters)
	sortServices(filtered, q.SortBy, q.SortOrder)

	total := len(filtered)
	page := paginate(filtered, q.Limit, q.Offset)

	return &ListResult{
		Services:   page,
		Total:      total,
		Page:       q.Offset/q.Limit + 1,
		Limit:      q.Limit,
		TotalPages: pageCount(total, q.Limit),
	}
}

func filterServices(rows []models.Service, f models.ServiceFilters) []models.Service {
	out := make([]models.Service, 0, len(rows))
	search := strings.ToLower(f.Search)
	for _, svc := range rows {
		switch f.Status {
		case models.StatusBucketActive:
			if svc.Status != models.StatusActive {
				continue
			}
		case models.StatusBucketInactive:
			if svc.Status == models.StatusActive {
				continue
			}
		}
		switch f.Featured {
		case models.FeaturedOnly:
			if !svc.Featured {
				continue
			}
		case models.NonFeaturedOnly:
			if svc.Featured {
				continue
			}
		}
		if f.Category != "" && f.Category != "all" {
			if svc.Category == nil || *svc.Category != f.Category {
				continue
			}
		}
		if search != "" && !matchesSearch(&svc, search) {
			continue
		}
		out = append(out, svc)
	}
	return out
}

func matchesSearch(svc *models.Service, search string) bool {
	fields := []string{svc.Name, svc.Slug}
	for _, p := range []*string{svc.ShortDesc, svc.Description, svc.Category} {
		if p != nil {
			fields = append(fields, *p)
		}
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func sortServices(rows []models.Service, sortBy, sortOrder string) {
	asc := sortOrder == "asc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		var less, eq bool
		switch sortBy {
		case "name":
			less, eq = a.Name < b.Name, a.Name == b.Name
		case "price":
			pa, pb := priceOrZero(a), priceOrZero(b)
			less, eq = pa < pb, pa == pb
		case "createdAt":
			less, eq = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		default:
			less, eq = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		}
		if eq {
			return a.ID < b.ID
		}
		if asc {
			return less
		}
		return !less
	})
}

// priceOrZero mirrors the SQL COALESCE(price, 0) sort expression.
func priceOrZero(svc *models.Service) float64 {
	if svc.Price == nil {
		return 0
	}
	return *svc.Price
}

func paginate(rows []models.Service, limit, offset int) []models.Service {
	if offset >= len(rows) {
		return []models.Service{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
