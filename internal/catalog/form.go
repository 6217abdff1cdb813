package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"catalog-service/internal/models"

	"github.com/go-playground/validator/v10"
)

// ServiceFormData is the full create payload.
type ServiceFormData struct {
	Name        string         `json:"name" validate:"required,max=200"`
	Slug        string         `json:"slug" validate:"omitempty,max=200"`
	Description *string        `json:"description"`
	ShortDesc   *string        `json:"short_desc"`
	Features    []string       `json:"features"`
	Price       *float64       `json:"price" validate:"omitempty,gte=0"`
	Duration    *int           `json:"duration" validate:"omitempty,gt=0"`
	Category    *string        `json:"category"`
	Featured    bool           `json:"featured"`
	Active      *bool          `json:"active"`
	Image       *string        `json:"image" validate:"omitempty,url"`
	Settings    models.JSONMap `json:"settings"`
}

// ServicePatch is a partial update; nil fields are left untouched. Settings
// are shallow-merged into the record's existing settings.
type ServicePatch struct {
	Name        *string        `json:"name" validate:"omitempty,max=200"`
	Slug        *string        `json:"slug" validate:"omitempty,max=200"`
	Description *string        `json:"description"`
	ShortDesc   *string        `json:"short_desc"`
	Features    []string       `json:"features"`
	Price       *float64       `json:"price" validate:"omitempty,gte=0"`
	Duration    *int           `json:"duration" validate:"omitempty,gt=0"`
	Category    *string        `json:"category"`
	Featured    *bool          `json:"featured"`
	Active      *bool          `json:"active"`
	Image       *string        `json:"image" validate:"omitempty,url"`
	Settings    models.JSONMap `json:"settings"`
}

// DependencyCheck is the payload for booking dependency validation.
type DependencyCheck struct {
	BookingEnabled *bool `json:"booking_enabled"`
	Duration       *int  `json:"duration"`
	BufferTime     *int  `json:"buffer_time"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug derives a URL-safe slug from a human name.
func GenerateSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func (f *ServiceFormData) sanitize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Slug = strings.ToLower(strings.TrimSpace(f.Slug))
	trimAll(f.Features)
}

func (p *ServicePatch) sanitize() {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
	}
	if p.Slug != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*p.Slug))
		p.Slug = &trimmed
	}
	trimAll(p.Features)
}

func trimAll(ss []string) {
	for i, s := range ss {
		ss[i] = strings.TrimSpace(s)
	}
}

// validateStruct runs tag validation and folds failures into the engine's
// ValidationError.
func validateStruct(v *validator.Validate, payload interface{}) error {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	issues := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Issues: issues}
}

// ValidateDependencies checks a booking configuration. A nil return means
// the configuration is consistent.
func ValidateDependencies(check DependencyCheck) *DependencyError {
	var issues []string
	if check.BookingEnabled != nil && *check.BookingEnabled {
		if check.Duration == nil || *check.Duration <= 0 {
			issues = append(issues, "booking enabled but duration is missing or invalid")
		}
	}
	if check.BufferTime != nil && *check.BufferTime < 0 {
		issues = append(issues, "buffer time cannot be negative")
	}
	if len(issues) == 0 {
		return nil
	}
	return &DependencyError{Issues: issues}
}
