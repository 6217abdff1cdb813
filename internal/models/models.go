package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Service represents a sellable catalog offering scoped to a tenant.
// A nil TenantID marks a globally shared record.
type Service struct {
	ID          string         `db:"id" json:"id"`
	TenantID    *string        `db:"tenant_id" json:"tenant_id,omitempty"`
	Name        string         `db:"name" json:"name"`
	Slug        string         `db:"slug" json:"slug"`
	Description *string        `db:"description" json:"description"`
	ShortDesc   *string        `db:"short_desc" json:"short_desc"`
	Features    pq.StringArray `db:"features" json:"features"`
	Price       *float64       `db:"price" json:"price"`
	Duration    *int           `db:"duration" json:"duration"`
	Category    *string        `db:"category" json:"category"`
	Featured    bool           `db:"featured" json:"featured"`
	Active      bool           `db:"active" json:"active"`
	Status      string         `db:"status" json:"status"`
	Image       *string        `db:"image" json:"image"`
	Settings    JSONMap        `db:"settings" json:"settings,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Service lifecycle statuses
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusDraft    = "DRAFT"
)

// Booking is read-only here; only the analytics aggregator consumes it.
type Booking struct {
	ID          string    `db:"id" json:"id"`
	ServiceID   string    `db:"service_id" json:"service_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Status      string    `db:"status" json:"status"`
}

// BookingWithService is the booking-to-service join projection used by stats.
type BookingWithService struct {
	Booking
	ServiceName  *string  `db:"service_name" json:"service_name"`
	ServicePrice *float64 `db:"service_price" json:"service_price"`
}

// Booking statuses counted as conversions
const (
	BookingStatusCompleted = "COMPLETED"
	BookingStatusConfirmed = "CONFIRMED"
)

// TenantSettings is the per-tenant settings document.
type TenantSettings struct {
	Services ServicesSettings `json:"services"`
}

// ServicesSettings holds catalog-related tenant settings.
type ServicesSettings struct {
	AllowCloning bool `json:"allow_cloning"`
}

// JSONMap maps a jsonb column to an open key/value settings object.
type JSONMap map[string]interface{}

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported settings column type %T", src)
	}
}
