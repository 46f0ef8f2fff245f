package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/fallback"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// DirectionsLookup resolves the travel leg between two points of a trip.
type DirectionsLookup interface {
	Lookup(ctx context.Context, origin, destination types.Coordinates, destinationContext string) (types.TransportLeg, error)
}

// Enricher annotates each activity with how to reach the next one.
type Enricher struct {
	lookup  DirectionsLookup
	timeout time.Duration
	logger  *slog.Logger
}

// NewEnricher returns an enricher. A nil lookup disables enrichment.
func NewEnricher(lookup DirectionsLookup, timeout time.Duration, logger *slog.Logger) *Enricher {
	return &Enricher{
		lookup:  lookup,
		timeout: timeout,
		logger:  logger,
	}
}

// Enabled reports whether a directions capability is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && e.lookup != nil
}

// EnrichDay returns a copy of activities where every element but the last
// carries a fresh TransportToNext when both ends have coordinates. Legs from a
// previous pass are replaced, never accumulated. A failed lookup leaves that
// pair without a leg; a done context fails the whole day.
func (e *Enricher) EnrichDay(ctx context.Context, activities []types.Activity, destination string) ([]types.Activity, error) {
	out := types.CloneActivities(activities)
	if !e.Enabled() || len(out) == 0 {
		return out, nil
	}

	ctx, span := otel.Tracer("TransportEnricher").Start(ctx, "EnrichDay", trace.WithAttributes(
		attribute.String("destination", destination),
		attribute.Int("activities.count", len(out)),
	))
	defer span.End()

	legs := 0
	for i := range out {
		out[i].TransportToNext = nil
		if i == len(out)-1 {
			break
		}
		from, to := out[i], out[i+1]
		if !from.HasCoordinates() || !to.HasCoordinates() {
			continue
		}
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Context done")
			return nil, err
		}
		leg, err := e.lookup.Lookup(ctx, *from.Coordinates, *to.Coordinates, destination)
		if err != nil {
			if ctx.Err() != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Context done")
				return nil, fmt.Errorf("failed to look up leg %q -> %q: %w", from.Title, to.Title, err)
			}
			span.RecordError(err)
			e.logger.DebugContext(ctx, "Directions lookup failed, leaving pair without a leg",
				slog.String("from", from.Title),
				slog.String("to", to.Title),
				slog.Any("error", err))
			continue
		}
		out[i].TransportToNext = &leg
		legs++
	}

	span.SetAttributes(attribute.Int("legs.count", legs))
	span.SetStatus(codes.Ok, "Day enriched")
	return out, nil
}

// EnrichDayWithTimeout bounds EnrichDay by the configured timeout and returns
// the original activities unchanged on timeout or error. ok is false when the
// day fell back.
func (e *Enricher) EnrichDayWithTimeout(ctx context.Context, activities []types.Activity, destination string) (out []types.Activity, ok bool) {
	if !e.Enabled() {
		return activities, true
	}
	enriched, err := fallback.Run(ctx, e.timeout, activities, func(ctx context.Context) ([]types.Activity, error) {
		return e.EnrichDay(ctx, activities, destination)
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Transport enrichment fell back to unannotated activities",
			slog.String("destination", destination),
			slog.Any("error", err))
		return activities, false
	}
	return enriched, true
}
