package catalog

import (
	"context"
	"errors"
	"sort"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const bookingsWindowLimit = 1000

// MonthBookings is one month's booking count in the analytics window.
type MonthBookings struct {
	Month    string `json:"month"`
	Bookings int    `json:"bookings"`
}

// MonthRevenue is one month's revenue in the analytics window.
type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// ServiceRevenue attributes window revenue to one service.
type ServiceRevenue struct {
	Service string  `json:"service"`
	Revenue float64 `json:"revenue"`
}

// ServicePopularity attributes window bookings to one service.
type ServicePopularity struct {
	Service  string `json:"service"`
	Bookings int    `json:"bookings"`
}

// ServiceConversion carries booking counts with view-derived rates. View
// tracking has no persistence source yet, so views and rates report zero.
type ServiceConversion struct {
	Service        string  `json:"service"`
	Bookings       int     `json:"bookings"`
	Views          int     `json:"views"`
	ConversionRate float64 `json:"conversion_rate"`
}

// ServiceRate is one service's conversion rate.
type ServiceRate struct {
	Service string  `json:"service"`
	Rate    float64 `json:"rate"`
}

// ServiceViews is one service's view count.
type ServiceViews struct {
	Service string `json:"service"`
	Views   int    `json:"views"`
}

// RevenueSeries is a monthly revenue time series for one scope.
type RevenueSeries struct {
	Service string         `json:"service"`
	Monthly []MonthRevenue `json:"monthly"`
}

// ServiceAnalytics is the booking-derived slice of the stats payload.
type ServiceAnalytics struct {
	MonthlyBookings      []MonthBookings     `json:"monthly_bookings"`
	RevenueByService     []ServiceRevenue    `json:"revenue_by_service"`
	PopularServices      []ServicePopularity `json:"popular_services"`
	ConversionRates      []ServiceRate       `json:"conversion_rates"`
	RevenueTimeSeries    []RevenueSeries     `json:"revenue_time_series"`
	ConversionsByService []ServiceConversion `json:"conversions_by_service"`
	ViewsByService       []ServiceViews      `json:"views_by_service"`
}

// ServiceStats is the aggregated catalog dashboard payload.
type ServiceStats struct {
	Total        int              `json:"total"`
	Active       int              `json:"active"`
	Featured     int              `json:"featured"`
	Categories   int              `json:"categories"`
	AveragePrice float64          `json:"average_price"`
	TotalRevenue float64          `json:"total_revenue"`
	Analytics    ServiceAnalytics `json:"analytics"`
}

// Stats aggregates catalog counts, price aggregates, and six months of
// booking analytics. The counting sub-queries run in parallel, each under its
// own timeout, and degrade to zero values individually rather than failing
// the whole payload. Results are cached for the stats TTL.
func (c *Catalog) Stats(ctx context.Context, tenantID *string) (*ServiceStats, error) {
	ctx, span := util.StartSpan(ctx, "Catalog.Stats")
	defer span.End()

	tid := c.resolver.Resolve(tenantID)
	key := statsKey(tid)

	var cached ServiceStats
	if c.cacheGet(ctx, key, "stats", &cached) {
		return &cached, nil
	}

	start := time.Now()
	defer func() {
		util.StatsQueryLatency.Observe(time.Since(start).Seconds())
	}()

	stats := &ServiceStats{Analytics: emptyAnalytics()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(c.statsSub(gctx, "total", func(ctx context.Context) error {
		n, err := c.store.CountServices(ctx, models.ServiceCountFilter{TenantID: tid})
		stats.Total = n
		return err
	}))
	g.Go(c.statsSub(gctx, "active", func(ctx context.Context) error {
		n, err := c.store.CountServices(ctx, models.ServiceCountFilter{TenantID: tid, Status: models.StatusActive})
		stats.Active = n
		return err
	}))
	g.Go(c.statsSub(gctx, "featured", func(ctx context.Context) error {
		n, err := c.store.CountServices(ctx, models.ServiceCountFilter{
			TenantID: tid, Status: models.StatusActive, FeaturedOnly: true,
		})
		stats.Featured = n
		return err
	}))
	g.Go(c.statsSub(gctx, "categories", func(ctx context.Context) error {
		n, err := c.store.CountDistinctCategories(ctx, tid)
		stats.Categories = n
		return err
	}))
	g.Go(c.statsSub(gctx, "price", func(ctx context.Context) error {
		avg, sum, err := c.store.AggregatePrice(ctx, tid)
		if err == nil {
			stats.AveragePrice = avg
			stats.TotalRevenue = sum
		}
		return err
	}))
	_ = g.Wait()

	bookings := c.windowBookings(ctx, tid)
	aggregateBookings(bookings, &stats.Analytics)

	c.cachePut(ctx, key, stats, c.opts.StatsTTL)
	return stats, nil
}

// statsSub wraps one counting sub-query with the per-query timeout. Errors
// leave the target at its zero value; timeouts are counted.
func (c *Catalog) statsSub(ctx context.Context, name string, fn func(ctx context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(ctx, c.opts.StatsTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				util.StatsSubqueryTimeouts.WithLabelValues(name).Inc()
			}
			c.logger.Warn("stats sub-query degraded",
				zap.String("subquery", name), zap.Error(err))
		}
		return nil
	}
}

// windowBookings loads the six-month booking window, falling back from the
// status-filtered join to the raw unfiltered join, then to an empty window.
func (c *Catalog) windowBookings(ctx context.Context, tid *string) []models.BookingWithService {
	now := time.Now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -5, 0)

	qctx, cancel := context.WithTimeout(ctx, c.opts.StatsTimeout)
	defer cancel()
	bookings, err := c.store.ListRecentBookings(qctx, tid, since, bookingsWindowLimit)
	if err == nil {
		return bookings
	}
	if errors.Is(err, context.DeadlineExceeded) {
		util.StatsSubqueryTimeouts.WithLabelValues("bookings").Inc()
	}
	c.logger.Warn("structured booking window failed, trying raw join", zap.Error(err))

	rctx, rcancel := context.WithTimeout(ctx, c.opts.StatsTimeout)
	defer rcancel()
	bookings, err = c.store.ListRecentBookingsRaw(rctx, tid, since, bookingsWindowLimit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			util.StatsSubqueryTimeouts.WithLabelValues("bookings_raw").Inc()
		}
		c.logger.Warn("raw booking window failed, analytics will be empty", zap.Error(err))
		return nil
	}
	return bookings
}

// aggregateBookings folds the booking window into the analytics payload.
// Per-service buckets keep first-seen order; monthly buckets sort by month
// key.
func aggregateBookings(bookings []models.BookingWithService, out *ServiceAnalytics) {
	type serviceBucket struct {
		name     string
		bookings int
		revenue  float64
	}
	type monthBucket struct {
		bookings int
		revenue  float64
	}

	perService := map[string]*serviceBucket{}
	var serviceOrder []string
	perMonth := map[string]*monthBucket{}

	for i := range bookings {
		b := &bookings[i]

		name := "Unknown"
		if b.ServiceName != nil && *b.ServiceName != "" {
			name = *b.ServiceName
		}
		price := 0.0
		if b.ServicePrice != nil {
			price = *b.ServicePrice
		}

		bucket, ok := perService[b.ServiceID]
		if !ok {
			bucket = &serviceBucket{name: name}
			perService[b.ServiceID] = bucket
			serviceOrder = append(serviceOrder, b.ServiceID)
		}
		bucket.bookings++
		bucket.revenue += price

		if !b.ScheduledAt.IsZero() {
			monthKey := b.ScheduledAt.Format("2006-01")
			mb, ok := perMonth[monthKey]
			if !ok {
				mb = &monthBucket{}
				perMonth[monthKey] = mb
			}
			mb.bookings++
			mb.revenue += price
		}
	}

	for _, sid := range serviceOrder {
		bucket := perService[sid]
		label := bucket.name
		if label == "" {
			label = sid
		}
		out.ConversionsByService = append(out.ConversionsByService, ServiceConversion{Service: label, Bookings: bucket.bookings})
		out.RevenueByService = append(out.RevenueByService, ServiceRevenue{Service: label, Revenue: bucket.revenue})
		out.PopularServices = append(out.PopularServices, ServicePopularity{Service: label, Bookings: bucket.bookings})
		out.ConversionRates = append(out.ConversionRates, ServiceRate{Service: label})
		out.ViewsByService = append(out.ViewsByService, ServiceViews{Service: label})
	}

	months := make([]string, 0, len(perMonth))
	for m := range perMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	var series []MonthRevenue
	for _, m := range months {
		out.MonthlyBookings = append(out.MonthlyBookings, MonthBookings{Month: m, Bookings: perMonth[m].bookings})
		series = append(series, MonthRevenue{Month: m, Revenue: perMonth[m].revenue})
	}
	if len(series) > 0 {
		out.RevenueTimeSeries = []RevenueSeries{{Service: "all", Monthly: series}}
	}
}

func emptyAnalytics() ServiceAnalytics {
	return ServiceAnalytics{
		MonthlyBookings:      []MonthBookings{},
		RevenueByService:     []ServiceRevenue{},
		PopularServices:      []ServicePopularity{},
		ConversionRates:      []ServiceRate{},
		RevenueTimeSeries:    []RevenueSeries{},
		ConversionsByService: []ServiceConversion{},
		ViewsByService:       []ServiceViews{},
	}
}
