package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"catalog-service/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes catalog domain events. Callers treat every publish
// as fire-and-forget; errors are returned for logging only and must never
// abort the triggering operation.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishServiceCreated publishes a ServiceCreated event
func (ep *EventPublisher) PublishServiceCreated(ctx context.Context, tenantID *string, ref models.ServiceRef, actor string) error {
	event := &models.ServiceCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeServiceCreated),
		TenantID:  tenantID,
		Service:   ref,
		Actor:     actor,
	}
	return ep.producer.PublishEvent(ctx, "service-"+ref.ID, event)
}

// PublishServiceUpdated publishes a ServiceUpdated event with the change-set
func (ep *EventPublisher) PublishServiceUpdated(ctx context.Context, tenantID *string, ref models.ServiceRef, changes []string, actor string) error {
	event := &models.ServiceUpdatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeServiceUpdated),
		TenantID:  tenantID,
		Service:   ref,
		Changes:   changes,
		Actor:     actor,
	}
	return ep.producer.PublishEvent(ctx, "service-"+ref.ID, event)
}

// PublishServiceDeleted publishes a ServiceDeleted event
func (ep *EventPublisher) PublishServiceDeleted(ctx context.Context, tenantID *string, serviceID, actor string) error {
	event := &models.ServiceDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeServiceDeleted),
		TenantID:  tenantID,
		ServiceID: serviceID,
		Actor:     actor,
	}
	return ep.producer.PublishEvent(ctx, "service-"+serviceID, event)
}

// PublishBulkAction publishes a BulkAction event with the successful count
func (ep *EventPublisher) PublishBulkAction(ctx context.Context, tenantID *string, action string, count int, actor string) error {
	event := &models.BulkActionEvent{
		BaseEvent: newBaseEvent(models.EventTypeBulkAction),
		TenantID:  tenantID,
		Action:    action,
		Count:     count,
		Actor:     actor,
	}
	key := "bulk-" + action
	if tenantID != nil {
		key = fmt.Sprintf("bulk-%s-%s", action, *tenantID)
	}
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming catalog events to registered handlers.
type EventHandler struct {
	onServiceCreated func(context.Context, *models.ServiceCreatedEvent) error
	onServiceUpdated func(context.Context, *models.ServiceUpdatedEvent) error
	onServiceDeleted func(context.Context, *models.ServiceDeletedEvent) error
	onBulkAction     func(context.Context, *models.BulkActionEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnServiceCreated registers a handler for ServiceCreated events
func (eh *EventHandler) OnServiceCreated(handler func(context.Context, *models.ServiceCreatedEvent) error) {
	eh.onServiceCreated = handler
}

// OnServiceUpdated registers a handler for ServiceUpdated events
func (eh *EventHandler) OnServiceUpdated(handler func(context.Context, *models.ServiceUpdatedEvent) error) {
	eh.onServiceUpdated = handler
}

// OnServiceDeleted registers a handler for ServiceDeleted events
func (eh *EventHandler) OnServiceDeleted(handler func(context.Context, *models.ServiceDeletedEvent) error) {
	eh.onServiceDeleted = handler
}

// OnBulkAction registers a handler for BulkAction events
func (eh *EventHandler) OnBulkAction(handler func(context.Context, *models.BulkActionEvent) error) {
	eh.onBulkAction = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeServiceCreated:
		if eh.onServiceCreated != nil {
			var event models.ServiceCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ServiceCreated event: %w", err)
			}
			return eh.onServiceCreated(ctx, &event)
		}

	case models.EventTypeServiceUpdated:
		if eh.onServiceUpdated != nil {
			var event models.ServiceUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ServiceUpdated event: %w", err)
			}
			return eh.onServiceUpdated(ctx, &event)
		}

	case models.EventTypeServiceDeleted:
		if eh.onServiceDeleted != nil {
			var event models.ServiceDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ServiceDeleted event: %w", err)
			}
			return eh.onServiceDeleted(ctx, &event)
		}

	case models.EventTypeBulkAction:
		if eh.onBulkAction != nil {
			var event models.BulkActionEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BulkAction event: %w", err)
			}
			return eh.onBulkAction(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
