package notify

import (
	"context"
	"time"

	"catalog-service/internal/broker"
	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier is the catalog's notification sink. Every method is
// fire-and-forget: implementations report errors for logging, callers never
// let them abort the primary operation.
type Notifier interface {
	NotifyServiceCreated(ctx context.Context, svc *models.Service, actor string) error
	NotifyServiceUpdated(ctx context.Context, svc *models.Service, changes []string, actor string) error
	NotifyServiceDeleted(ctx context.Context, svc *models.Service, actor string) error
	NotifyBulkAction(ctx context.Context, action string, count int, actor string) error
}

// message is the wire shape written to the notifications topic.
type message struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor"`
	ServiceID string    `json:"service_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Action    string    `json:"action,omitempty"`
	Count     int       `json:"count,omitempty"`
	Changes   []string  `json:"changes,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// KafkaNotifier writes notifications to a dedicated Kafka topic consumed by
// the (external) notification subsystem.
type KafkaNotifier struct {
	producer *broker.Producer
	logger   *zap.Logger
}

// NewKafkaNotifier creates a Kafka-backed notifier
func NewKafkaNotifier(producer *broker.Producer) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, logger: util.GetLogger()}
}

func (n *KafkaNotifier) send(ctx context.Context, key string, msg message) error {
	msg.ID = uuid.New().String()
	msg.SentAt = time.Now()
	return n.producer.PublishEvent(ctx, key, msg)
}

// NotifyServiceCreated notifies about a newly created service
func (n *KafkaNotifier) NotifyServiceCreated(ctx context.Context, svc *models.Service, actor string) error {
	return n.send(ctx, "service-"+svc.ID, message{
		Kind:      "service_created",
		Actor:     actor,
		ServiceID: svc.ID,
		Name:      svc.Name,
	})
}

// NotifyServiceUpdated notifies about an updated service with its change-set
func (n *KafkaNotifier) NotifyServiceUpdated(ctx context.Context, svc *models.Service, changes []string, actor string) error {
	return n.send(ctx, "service-"+svc.ID, message{
		Kind:      "service_updated",
		Actor:     actor,
		ServiceID: svc.ID,
		Name:      svc.Name,
		Changes:   changes,
	})
}

// NotifyServiceDeleted notifies about a soft-deleted service
func (n *KafkaNotifier) NotifyServiceDeleted(ctx context.Context, svc *models.Service, actor string) error {
	return n.send(ctx, "service-"+svc.ID, message{
		Kind:      "service_deleted",
		Actor:     actor,
		ServiceID: svc.ID,
		Name:      svc.Name,
	})
}

// NotifyBulkAction notifies about a completed bulk action
func (n *KafkaNotifier) NotifyBulkAction(ctx context.Context, action string, count int, actor string) error {
	return n.send(ctx, "bulk-"+action, message{
		Kind:   "bulk_action",
		Actor:  actor,
		Action: action,
		Count:  count,
	})
}

// Noop discards all notifications; used when no sink is configured and in
// tests.
type Noop struct{}

func (Noop) NotifyServiceCreated(context.Context, *models.Service, string) error { return nil }
func (Noop) NotifyServiceUpdated(context.Context, *models.Service, []string, string) error {
	return nil
}
func (Noop) NotifyServiceDeleted(context.Context, *models.Service, string) error { return nil }
func (Noop) NotifyBulkAction(context.Context, string, int, string) error         { return nil }
