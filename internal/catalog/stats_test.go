package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booking(serviceID, name string, price float64, scheduled time.Time) models.BookingWithService {
	return models.BookingWithService{
		Booking: models.Booking{
			ID:          serviceID + "-" + scheduled.Format("20060102"),
			ServiceID:   serviceID,
			ScheduledAt: scheduled,
			Status:      models.BookingStatusCompleted,
		},
		ServiceName:  &name,
		ServicePrice: &price,
	}
}

func TestAggregateBookings(t *testing.T) {
	march := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

	bookings := []models.BookingWithService{
		booking("s1", "Haircut", 35, march),
		booking("s2", "Massage", 80, march),
		booking("s1", "Haircut", 35, april),
	}

	var out ServiceAnalytics
	aggregateBookings(bookings, &out)

	// per-service buckets keep first-seen order
	require.Len(t, out.RevenueByService, 2)
	assert.Equal(t, "Haircut", out.RevenueByService[0].Service)
	assert.Equal(t, 70.0, out.RevenueByService[0].Revenue)
	assert.Equal(t, "Massage", out.RevenueByService[1].Service)

	require.Len(t, out.PopularServices, 2)
	assert.Equal(t, 2, out.PopularServices[0].Bookings)

	// monthly buckets sort by month key
	require.Len(t, out.MonthlyBookings, 2)
	assert.Equal(t, "2026-03", out.MonthlyBookings[0].Month)
	assert.Equal(t, 2, out.MonthlyBookings[0].Bookings)
	assert.Equal(t, "2026-04", out.MonthlyBookings[1].Month)

	require.Len(t, out.RevenueTimeSeries, 1)
	assert.Equal(t, "all", out.RevenueTimeSeries[0].Service)
	require.Len(t, out.RevenueTimeSeries[0].Monthly, 2)
	assert.Equal(t, 115.0, out.RevenueTimeSeries[0].Monthly[0].Revenue)
	assert.Equal(t, 35.0, out.RevenueTimeSeries[0].Monthly[1].Revenue)
}

func TestAggregateBookingsUnknownServiceAndNilPrice(t *testing.T) {
	when := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b := models.BookingWithService{
		Booking: models.Booking{ID: "x", ServiceID: "orphan", ScheduledAt: when},
	}

	var out ServiceAnalytics
	aggregateBookings([]models.BookingWithService{b}, &out)

	require.Len(t, out.RevenueByService, 1)
	assert.Equal(t, "Unknown", out.RevenueByService[0].Service)
	assert.Zero(t, out.RevenueByService[0].Revenue)
}

func TestAggregateBookingsEmptyWindow(t *testing.T) {
	var out ServiceAnalytics
	aggregateBookings(nil, &out)

	assert.Empty(t, out.RevenueTimeSeries)
	assert.Empty(t, out.MonthlyBookings)
}

func TestStatsCountsAndAggregates(t *testing.T) {
	env := newTestEnv("")
	a := seedService("a", "t1", "Haircut", "haircut")
	a.Price = floatPtr(30)
	a.Category = strPtr("hair")
	a.Featured = true
	env.store.add(a)

	b := seedService("b", "t1", "Massage", "massage")
	b.Price = floatPtr(90)
	b.Category = strPtr("massage")
	env.store.add(b)

	c := seedService("c", "t1", "Old", "old")
	c.Active = false
	c.Status = models.StatusInactive
	env.store.add(c)

	env.store.bookings = []models.BookingWithService{
		booking("a", "Haircut", 30, time.Date(2026, 6, 5, 10, 0, 0, 0, time.UTC)),
	}

	stats, err := env.engine.Stats(context.Background(), strPtr("t1"))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Featured)
	assert.Equal(t, 2, stats.Categories)
	assert.Equal(t, 60.0, stats.AveragePrice)
	assert.Equal(t, 120.0, stats.TotalRevenue)
	require.Len(t, stats.Analytics.PopularServices, 1)
}

func TestStatsFallsBackToRawBookings(t *testing.T) {
	env := newTestEnv("")
	env.store.bookingsErr = errors.New("join refused")
	env.store.bookings = []models.BookingWithService{
		booking("a", "Haircut", 30, time.Date(2026, 6, 5, 10, 0, 0, 0, time.UTC)),
	}

	stats, err := env.engine.Stats(context.Background(), strPtr("t1"))
	require.NoError(t, err)
	require.Len(t, stats.Analytics.MonthlyBookings, 1)
}

func TestStatsBothBookingPathsDownYieldsEmptyAnalytics(t *testing.T) {
	env := newTestEnv("")
	env.store.bookingsErr = errors.New("join refused")
	env.store.bookingsRawErr = errors.New("raw refused")

	stats, err := env.engine.Stats(context.Background(), strPtr("t1"))
	require.NoError(t, err)
	assert.Empty(t, stats.Analytics.MonthlyBookings)
	assert.Empty(t, stats.Analytics.RevenueTimeSeries)
}

func TestStatsIsCached(t *testing.T) {
	env := newTestEnv("")
	env.store.add(seedService("a", "t1", "Haircut", "haircut"))

	first, err := env.engine.Stats(context.Background(), strPtr("t1"))
	require.NoError(t, err)

	// new records do not show up until the TTL expires
	env.store.add(seedService("b", "t1", "Massage", "massage"))
	second, err := env.engine.Stats(context.Background(), strPtr("t1"))
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
}
