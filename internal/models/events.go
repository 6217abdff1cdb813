package models

import "time"

// Event types
const (
	EventTypeServiceCreated = "SERVICE_CREATED"
	EventTypeServiceUpdated = "SERVICE_UPDATED"
	EventTypeServiceDeleted = "SERVICE_DELETED"
	EventTypeBulkAction     = "SERVICE_BULK_ACTION"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceRef is the minimal service identity carried on events.
type ServiceRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ServiceCreatedEvent published when a service is created or cloned
type ServiceCreatedEvent struct {
	BaseEvent
	TenantID *string    `json:"tenant_id,omitempty"`
	Service  ServiceRef `json:"service"`
	Actor    string     `json:"actor"`
}

// ServiceUpdatedEvent published when a service is updated, with the changed
// field names
type ServiceUpdatedEvent struct {
	BaseEvent
	TenantID *string    `json:"tenant_id,omitempty"`
	Service  ServiceRef `json:"service"`
	Changes  []string   `json:"changes"`
	Actor    string     `json:"actor"`
}

// ServiceDeletedEvent published when a service is soft-deleted
type ServiceDeletedEvent struct {
	BaseEvent
	TenantID  *string `json:"tenant_id,omitempty"`
	ServiceID string  `json:"service_id"`
	Actor     string  `json:"actor"`
}

// BulkActionEvent published after a bulk action completes, with the count of
// targets actually mutated
type BulkActionEvent struct {
	BaseEvent
	TenantID *string `json:"tenant_id,omitempty"`
	Action   string  `json:"action"`
	Count    int     `json:"count"`
	Actor    string  `json:"actor"`
}
