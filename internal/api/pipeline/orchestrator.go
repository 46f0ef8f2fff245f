// Package pipeline turns a generated skeleton into the final itinerary:
// transport legs, meals, prayer stops, then order repair.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/classifier"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/fallback"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/meals"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/mosque"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/ordering"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/transport"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ErrGeneration wraps failures of the skeleton generator.
var ErrGeneration = errors.New("itinerary generation failed")

// Generator produces the raw skeleton for a set of preferences.
type Generator interface {
	Generate(ctx context.Context, prefs types.Preferences) (*types.SkeletonItinerary, error)
}

const (
	stageGenerate  = "generate"
	stageTransport = "transport"
	stageMeals     = "meals"
	stageMosques   = "mosques"
	stageOrdering  = "ordering"
)

type Config struct {
	MealTimeout          time.Duration `mapstructure:"meal_timeout"`   // per day
	MosqueTimeout        time.Duration `mapstructure:"mosque_timeout"` // per day
	TransportConcurrency int           `mapstructure:"transport_concurrency"`
	MaxDays              int           `mapstructure:"max_days"`
	DefaultCurrency      string        `mapstructure:"default_currency"`
}

type Orchestrator struct {
	generator Generator
	transport *transport.Enricher
	planner   *meals.Planner
	mosques   *mosque.Enricher
	cfg       Config
	metrics   *metrics.AppMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator wires the stages. m may be nil.
func NewOrchestrator(
	generator Generator,
	transportEnricher *transport.Enricher,
	planner *meals.Planner,
	mosqueEnricher *mosque.Enricher,
	cfg Config,
	m *metrics.AppMetrics,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &Orchestrator{
		generator: generator,
		transport: transportEnricher,
		planner:   planner,
		mosques:   mosqueEnricher,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run generates and enriches an itinerary. Only invalid preferences and
// generator failures are returned as errors; every enrichment stage falls
// back to its input for the affected day or meal.
func (o *Orchestrator) Run(ctx context.Context, prefs types.Preferences) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("Pipeline").Start(ctx, "Run", trace.WithAttributes(
		attribute.String("destination", prefs.Destination),
		attribute.Bool("halal", prefs.DietaryPreferences.Halal),
	))
	defer span.End()

	l := o.logger.With(slog.String("method", "Run"), slog.String("destination", prefs.Destination))
	start := o.now()

	if err := prefs.Validate(o.cfg.MaxDays); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid preferences")
		o.countGeneration(ctx, "invalid")
		return nil, err
	}

	days, err := o.generate(ctx, prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		o.countGeneration(ctx, "generator_error")
		l.ErrorContext(ctx, "Skeleton generation failed", slog.Any("error", err))
		return nil, err
	}

	days = o.enrichTransport(ctx, days, prefs.Destination)
	if o.planner != nil {
		days = o.insertMeals(ctx, days, prefs)
	}
	legged := days
	if prefs.DietaryPreferences.Halal && o.mosques != nil {
		days = o.insertMosques(ctx, days)
	}
	days = o.enforceOrder(ctx, days)
	days = o.enrichTransportFor(ctx, days, prefs.Destination, changedDays(legged, days))

	currency := prefs.Currency
	if currency == "" {
		currency = o.cfg.DefaultCurrency
	}
	now := o.now()
	it := &types.Itinerary{
		ID:        uuid.New(),
		Currency:  currency,
		Status:    types.StatusDraft,
		Prefs:     prefs,
		Days:      days,
		CreatedAt: now,
		UpdatedAt: now,
	}

	o.countGeneration(ctx, "ok")
	if o.metrics != nil {
		o.metrics.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}
	l.InfoContext(ctx, "Itinerary generated",
		slog.String("itinerary_id", it.ID.String()),
		slog.Int("days", len(days)),
		slog.Duration("duration", time.Since(start)))
	span.SetStatus(codes.Ok, "Itinerary generated")
	return it, nil
}

// Reorder runs only the order enforcer, for user edits.
func (o *Orchestrator) Reorder(ctx context.Context, days []types.Day) []types.Day {
	return o.enforceOrder(ctx, classifier.NormalizeDays(days))
}

func (o *Orchestrator) generate(ctx context.Context, prefs types.Preferences) ([]types.Day, error) {
	ctx, done := o.stage(ctx, stageGenerate)
	defer done()

	skeleton, err := o.generator.Generate(ctx, prefs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if skeleton == nil || len(skeleton.Days) == 0 {
		return nil, fmt.Errorf("%w: generator returned no days", ErrGeneration)
	}
	return classifier.NormalizeDays(skeleton.Days), nil
}

// enrichTransport fans out one bounded call per day. Tasks never fail; a
// slow or broken day keeps its original activities.
func (o *Orchestrator) enrichTransport(ctx context.Context, days []types.Day, destination string) []types.Day {
	all := make([]int, len(days))
	for i := range all {
		all[i] = i
	}
	return o.enrichTransportFor(ctx, days, destination, all)
}

// enrichTransportFor recomputes legs for the listed day indexes only.
func (o *Orchestrator) enrichTransportFor(ctx context.Context, days []types.Day, destination string, which []int) []types.Day {
	if !o.transport.Enabled() || len(which) == 0 {
		return days
	}
	ctx, done := o.stage(ctx, stageTransport)
	defer done()

	results := make([][]types.Activity, len(days))
	for i, d := range days {
		results[i] = d.Activities
	}
	var g errgroup.Group
	if o.cfg.TransportConcurrency > 0 {
		g.SetLimit(o.cfg.TransportConcurrency)
	}
	for _, i := range which {
		g.Go(func() error {
			acts, ok := o.transport.EnrichDayWithTimeout(ctx, days[i].Activities, destination)
			if !ok {
				o.countFallback(ctx, stageTransport)
			}
			results[i] = acts
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.Day, len(days))
	for i, d := range days {
		out[i] = types.Day{Day: d.Day, Summary: d.Summary, Activities: results[i]}
	}
	return out
}

// insertMeals runs strictly day after day. Each call sees a snapshot of the
// ledger; the result is merged here only after the call resolved in time.
func (o *Orchestrator) insertMeals(ctx context.Context, days []types.Day, prefs types.Preferences) []types.Day {
	ctx, done := o.stage(ctx, stageMeals)
	defer done()

	l := o.logger.With(slog.String("method", "insertMeals"))
	ledger := types.NewRestaurantLedger()
	out := types.CloneDays(days)

	for i := range out {
		req := meals.DayRequest{
			Activities:  out[i].Activities,
			DayIndex:    out[i].Day,
			Destination: prefs.Destination,
			Budget:      prefs.Budget,
			Dietary:     prefs.DietaryPreferences,
			Interests:   prefs.Interests,
			MealTimes:   meals.DetermineMealTimes(out[i].Activities, o.planner.Policy()),
		}
		if len(req.MealTimes.Slots()) == 0 {
			continue
		}

		snapshot := ledger.Clone()
		res, err := fallback.Run(ctx, o.cfg.MealTimeout, meals.DayResult{}, func(ctx context.Context) (meals.DayResult, error) {
			return o.planner.InsertMealsForDay(ctx, req, snapshot)
		})
		if err != nil {
			o.countFallback(ctx, stageMeals)
			l.WarnContext(ctx, "Meal planning fell back to the unplanned day",
				slog.Int("day", out[i].Day),
				slog.Any("error", err))
			continue
		}

		ledger.Merge(res.UsedRestaurants)
		if res.Repeats > 0 && o.metrics != nil {
			o.metrics.RestaurantRepeatsTotal.Add(ctx, int64(res.Repeats))
		}

		acts := res.Activities
		if o.transport.Enabled() {
			var ok bool
			acts, ok = o.transport.EnrichDayWithTimeout(ctx, res.Activities, prefs.Destination)
			if !ok {
				o.countFallback(ctx, stageTransport)
			}
		}
		out[i].Activities = acts
	}
	return out
}

func (o *Orchestrator) insertMosques(ctx context.Context, days []types.Day) []types.Day {
	ctx, done := o.stage(ctx, stageMosques)
	defer done()

	out := make([]types.Day, len(days))
	for i, d := range days {
		one := []types.Day{d}
		res, err := fallback.Run(ctx, o.cfg.MosqueTimeout, one, func(ctx context.Context) ([]types.Day, error) {
			return o.mosques.Enrich(ctx, one, true), nil
		})
		if err != nil || len(res) != 1 {
			o.countFallback(ctx, stageMosques)
			o.logger.WarnContext(ctx, "Mosque enrichment fell back to the unenriched day",
				slog.Int("day", d.Day),
				slog.Any("error", err))
			out[i] = d
			continue
		}
		out[i] = res[0]
	}
	return out
}

// changedDays lists the days whose activity sequence differs between before
// and after. Their legs point at old neighbours and need a fresh lookup.
func changedDays(before, after []types.Day) []int {
	var idx []int
	for i := range after {
		a, b := after[i].Activities, before[i].Activities
		if len(a) != len(b) {
			idx = append(idx, i)
			continue
		}
		for j := range a {
			if a[j].Title != b[j].Title || a[j].Time != b[j].Time || a[j].ID != b[j].ID {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func (o *Orchestrator) enforceOrder(ctx context.Context, days []types.Day) []types.Day {
	_, done := o.stage(ctx, stageOrdering)
	defer done()
	return ordering.Enforce(days)
}

// stage opens a span and returns a func recording the stage duration.
func (o *Orchestrator) stage(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := otel.Tracer("Pipeline").Start(ctx, "Stage."+name)
	start := time.Now()
	return ctx, func() {
		if o.metrics != nil {
			o.metrics.StageDurationSeconds.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.String("stage", name)))
		}
		span.End()
	}
}

func (o *Orchestrator) countFallback(ctx context.Context, stage string) {
	if o.metrics == nil {
		return
	}
	o.metrics.StageFallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (o *Orchestrator) countGeneration(ctx context.Context, outcome string) {
	if o.metrics == nil {
		return
	}
	o.metrics.GenerationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
