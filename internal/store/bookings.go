package store

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/models"

	"github.com/lib/pq"
)

// ListRecentBookings is the structured booking-to-service join used by the
// analytics aggregator: completed or confirmed bookings inside the window,
// joined with the owning service for name and price.
func (s *Store) ListRecentBookings(ctx context.Context, tenantID *string, since time.Time, limit int) ([]models.BookingWithService, error) {
	query := `
		SELECT b.id, b.service_id, b.scheduled_at, b.status,
		       s.name AS service_name, s.price AS service_price
		FROM bookings b
		JOIN services s ON s.id = b.service_id
		WHERE b.scheduled_at >= $1 AND b.status = ANY($2)`
	args := []interface{}{since, pq.Array([]string{models.BookingStatusCompleted, models.BookingStatusConfirmed})}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND s.tenant_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY b.scheduled_at LIMIT $%d", len(args))

	var rows []models.BookingWithService
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("recent bookings: %w", err)
	}
	return rows, nil
}

// ListRecentBookingsRaw is the degraded booking query: a plain left join with
// only the window and tenant predicates, mirroring the structured query's
// shape without the status filter.
func (s *Store) ListRecentBookingsRaw(ctx context.Context, tenantID *string, since time.Time, limit int) ([]models.BookingWithService, error) {
	query := `
		SELECT b.id, b.service_id, b.scheduled_at, b.status,
		       s.name AS service_name, s.price AS service_price
		FROM bookings b
		LEFT JOIN services s ON s.id = b.service_id
		WHERE b.scheduled_at >= $1`
	args := []interface{}{since}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND s.tenant_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	var rows []models.BookingWithService
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("recent bookings (raw): %w", err)
	}
	return rows, nil
}
