package models

// Filter buckets accepted by list queries
const (
	StatusBucketActive   = "active"
	StatusBucketInactive = "inactive"

	FeaturedOnly    = "featured"
	NonFeaturedOnly = "non-featured"
)

// ServiceFilters narrows a list query. Zero values mean "no filter"; Category
// "all" is treated the same as empty.
type ServiceFilters struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Featured string `json:"featured"`
	Status   string `json:"status"`
}

// ListQuery is the full list input: tenant scope, filters, sort, pagination.
type ListQuery struct {
	TenantID  *string
	Filters   ServiceFilters
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// ServiceCountFilter narrows the stats counting queries.
type ServiceCountFilter struct {
	TenantID     *string
	Status       string
	FeaturedOnly bool
}

// Normalize applies the documented defaults: limit 20, updatedAt-descending
// sort, and clamps unknown sort keys.
func (q *ListQuery) Normalize() {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	switch q.SortBy {
	case "name", "price", "createdAt", "updatedAt":
	default:
		q.SortBy = "updatedAt"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
}
