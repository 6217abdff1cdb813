package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a record absent for the given tenant and id.
	ErrNotFound = errors.New("service not found")

	// ErrCloningDisabled marks a clone attempt blocked by tenant settings.
	ErrCloningDisabled = errors.New("cloning disabled by settings")

	// ErrPersistenceUnavailable marks a write that the persistence layer
	// accepted no row for. Surfaced as-is; callers must not fabricate a
	// record around it.
	ErrPersistenceUnavailable = errors.New("persistence layer unavailable")
)

// SlugConflictError reports a slug uniqueness violation within its tenant
// scope.
type SlugConflictError struct {
	Slug     string
	TenantID *string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

// ValidationError reports malformed input fields.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid service data: " + strings.Join(e.Issues, "; ")
}

// DependencyError reports a booking configuration the catalog cannot honor:
// booking enabled without a positive duration, or a negative buffer time.
type DependencyError struct {
	Issues []string
}

func (e *DependencyError) Error() string {
	return "service dependency check failed: " + strings.Join(e.Issues, "; ")
}
