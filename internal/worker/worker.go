package worker

import (
	"context"
	"log"

	"catalog-service/internal/broker"
	"catalog-service/internal/catalog"
	"catalog-service/internal/models"

	"github.com/robfig/cron/v3"
)

// CatalogWorker consumes catalog events and keeps the record caches warm:
// a write observed on the topic re-primes the single-record cache entry that
// the write path just dropped.
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	engine       *catalog.Catalog
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, engine *catalog.Catalog) *CatalogWorker {
	eventHandler := broker.NewEventHandler()
	w := &CatalogWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		engine:       engine,
	}

	eventHandler.OnServiceCreated(w.handleServiceCreated)
	eventHandler.OnServiceUpdated(w.handleServiceUpdated)

	return w
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	log.Println("Starting catalog worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	log.Println("Stopping catalog worker...")
	return w.consumer.Close()
}

func (w *CatalogWorker) handleServiceCreated(ctx context.Context, event *models.ServiceCreatedEvent) error {
	return w.primeRecord(ctx, event.TenantID, event.Service.ID)
}

func (w *CatalogWorker) handleServiceUpdated(ctx context.Context, event *models.ServiceUpdatedEvent) error {
	return w.primeRecord(ctx, event.TenantID, event.Service.ID)
}

// primeRecord loads the record through the engine, which fills the record
// cache as a side effect. A record already deleted by the time the event
// arrives is not an error.
func (w *CatalogWorker) primeRecord(ctx context.Context, tenantID *string, id string) error {
	if _, err := w.engine.GetByID(ctx, tenantID, id); err != nil && err != catalog.ErrNotFound {
		log.Printf("Failed to re-prime service %s: %v", id, err)
		return err
	}
	return nil
}

// StatsWarmer periodically refreshes the stats cache for configured tenants
// so dashboards read warm entries instead of paying the aggregation cost.
type StatsWarmer struct {
	engine  *catalog.Catalog
	tenants []string
	cron    *cron.Cron
}

// NewStatsWarmer creates a stats warmer for the given tenants
func NewStatsWarmer(engine *catalog.Catalog, tenants []string) *StatsWarmer {
	return &StatsWarmer{
		engine:  engine,
		tenants: tenants,
		cron:    cron.New(),
	}
}

// Start schedules the warm job and starts the cron loop
func (sw *StatsWarmer) Start(schedule string) error {
	if len(sw.tenants) == 0 {
		return nil
	}
	if _, err := sw.cron.AddFunc(schedule, sw.warm); err != nil {
		return err
	}
	sw.cron.Start()
	log.Printf("Stats warmer scheduled (%s) for %d tenants", schedule, len(sw.tenants))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (sw *StatsWarmer) Stop() {
	ctx := sw.cron.Stop()
	<-ctx.Done()
}

func (sw *StatsWarmer) warm() {
	ctx := context.Background()
	for _, tenant := range sw.tenants {
		t := tenant
		if _, err := sw.engine.Stats(ctx, &t); err != nil {
			log.Printf("Stats warm failed for tenant %s: %v", t, err)
		}
	}
}
