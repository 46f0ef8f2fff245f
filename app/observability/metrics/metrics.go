package metrics

import (
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	GenerationsTotal          metric.Int64Counter
	GenerationDurationSeconds metric.Float64Histogram
	StageDurationSeconds      metric.Float64Histogram
	StageFallbacksTotal       metric.Int64Counter
	RestaurantRepeatsTotal    metric.Int64Counter
	DbQueryDurationSeconds    metric.Float64Histogram
	DbQueryErrorsTotal        metric.Int64Counter
	DraftsSweptTotal          metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	if m.GenerationsTotal, err = meter.Int64Counter(
		"itinerary_generations_total",
		metric.WithDescription("Total number of itinerary generation requests, by outcome"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create itinerary_generations_total: %w", err)
	}

	if m.GenerationDurationSeconds, err = meter.Float64Histogram(
		"itinerary_generation_duration_seconds",
		metric.WithDescription("End to end duration of the enrichment pipeline"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create itinerary_generation_duration_seconds: %w", err)
	}

	if m.StageDurationSeconds, err = meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of each pipeline stage"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pipeline_stage_duration_seconds: %w", err)
	}

	if m.StageFallbacksTotal, err = meter.Int64Counter(
		"pipeline_stage_fallbacks_total",
		metric.WithDescription("Units (days or meals) that fell back to pre-stage data"),
		metric.WithUnit("{fallback}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create pipeline_stage_fallbacks_total: %w", err)
	}

	if m.RestaurantRepeatsTotal, err = meter.Int64Counter(
		"restaurant_repeats_total",
		metric.WithDescription("Meals that reused a restaurant after candidates ran out"),
		metric.WithUnit("{meal}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create restaurant_repeats_total: %w", err)
	}

	if m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create db_query_duration_seconds: %w", err)
	}

	if m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create db_query_errors_total: %w", err)
	}

	if m.DraftsSweptTotal, err = meter.Int64Counter(
		"itinerary_drafts_swept_total",
		metric.WithDescription("Expired draft itineraries deleted by the sweeper"),
		metric.WithUnit("{itinerary}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create itinerary_drafts_swept_total: %w", err)
	}

	return m, nil
}

// InitAppMetrics initializes the global metrics instruments once, using the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter("ItineraryPlanner"))
		if err != nil {
			log.Fatalf("Metrics: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
