// Package mosque inserts a nearby prayer stop after lunch and dinner on
// halal trips.
package mosque

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/classifier"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Place is a religious site returned by a nearby search.
type Place struct {
	ID             string
	Name           string
	Address        string
	Coordinates    types.Coordinates
	Rating         float64
	PhotoReference string
}

// Distance is a walking distance between two points.
type Distance struct {
	Text     string // "450 m"
	Duration string // "6 mins"
}

type NearbySearch interface {
	SearchNearby(ctx context.Context, at types.Coordinates, radiusMeters int) ([]Place, error)
}

type DistanceLookup interface {
	WalkingDistance(ctx context.Context, from, to types.Coordinates) (Distance, error)
}

// Policy controls the radius-expanding search.
type Policy struct {
	InitialRadius int           `mapstructure:"initial_radius"` // meters
	RadiusStep    int           `mapstructure:"radius_step"`
	MaxRadius     int           `mapstructure:"max_radius"`
	Delay         time.Duration `mapstructure:"delay"` // minimum spacing between external lookups
}

func DefaultPolicy() Policy {
	return Policy{
		InitialRadius: 2000,
		RadiusStep:    2000,
		MaxRadius:     10000,
		Delay:         200 * time.Millisecond,
	}
}

type Enricher struct {
	nearby   NearbySearch
	distance DistanceLookup
	policy   Policy
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewEnricher returns an enricher. Without both lookups Enrich is the identity.
func NewEnricher(nearby NearbySearch, distance DistanceLookup, policy Policy, logger *slog.Logger) *Enricher {
	if policy.RadiusStep <= 0 {
		policy.RadiusStep = DefaultPolicy().RadiusStep
	}
	if policy.InitialRadius <= 0 {
		policy.InitialRadius = policy.RadiusStep
	}
	if policy.MaxRadius < policy.InitialRadius {
		policy.MaxRadius = policy.InitialRadius
	}
	limit := rate.Inf
	if policy.Delay > 0 {
		limit = rate.Every(policy.Delay)
	}
	return &Enricher{
		nearby:   nearby,
		distance: distance,
		policy:   policy,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// ID is the stable id of an inserted mosque activity.
func ID(day int, placeID string) string {
	return fmt.Sprintf("mosque-d%d-%s", day, placeID)
}

// usedSet is reset for every day. Places are registered by id and by name.
type usedSet map[string]struct{}

func (u usedSet) add(id, name string) {
	if id != "" {
		u["id:"+id] = struct{}{}
	}
	if n := types.NormalizeName(name); n != "" {
		u["name:"+n] = struct{}{}
	}
}

func (u usedSet) has(p Place) bool {
	if p.ID != "" {
		if _, ok := u["id:"+p.ID]; ok {
			return true
		}
	}
	_, ok := u["name:"+types.NormalizeName(p.Name)]
	return ok
}

// Enrich returns days with a mosque activity after every lunch and dinner that
// has coordinates. It is the identity when halalRequired is false.
func (e *Enricher) Enrich(ctx context.Context, days []types.Day, halalRequired bool) []types.Day {
	if !halalRequired || e.nearby == nil || e.distance == nil {
		return days
	}

	ctx, span := otel.Tracer("MosqueEnricher").Start(ctx, "Enrich", trace.WithAttributes(
		attribute.Int("days.count", len(days)),
	))
	defer span.End()

	out := types.CloneDays(days)
	inserted := 0
	for i := range out {
		var n int
		out[i].Activities, n = e.enrichDay(ctx, out[i].Day, out[i].Activities)
		inserted += n
	}

	span.SetAttributes(attribute.Int("mosques.inserted", inserted))
	span.SetStatus(codes.Ok, "Mosques inserted")
	return out
}

func (e *Enricher) enrichDay(ctx context.Context, day int, activities []types.Activity) ([]types.Activity, int) {
	l := e.logger.With(slog.String("method", "enrichDay"), slog.Int("day", day))

	used := usedSet{}
	for _, a := range activities {
		if classifier.Kind(a) == types.KindMosque {
			used.add(a.PlaceID, strings.TrimPrefix(a.Title, "Prayer at "))
		}
	}

	out := make([]types.Activity, 0, len(activities))
	inserted := 0
	for i, a := range activities {
		out = append(out, a)

		if classifier.Kind(a) != types.KindMeal || !a.HasCoordinates() {
			continue
		}
		meal := classifier.MealTypeOf(a)
		if meal == types.MealBreakfast {
			continue
		}
		if i+1 < len(activities) && classifier.Kind(activities[i+1]) == types.KindMosque {
			continue
		}
		if ctx.Err() != nil {
			continue
		}

		place, dist, found, err := e.find(ctx, *a.Coordinates, used)
		if err != nil {
			l.WarnContext(ctx, "Mosque lookup failed, skipping meal",
				slog.String("meal", a.Title),
				slog.Any("error", err))
			continue
		}
		if !found {
			l.InfoContext(ctx, "No unused mosque within the maximum radius",
				slog.String("meal", a.Title),
				slog.Int("max_radius", e.policy.MaxRadius))
			continue
		}

		used.add(place.ID, place.Name)
		// the meal's old leg pointed at the activity after the stop
		out[len(out)-1].TransportToNext = &types.TransportLeg{Mode: "walking", Duration: dist.Duration, Cost: "Free"}
		out = append(out, prayerStop(day, a, place, dist))
		inserted++
	}
	return out, inserted
}

// find expands the search radius until a place outside used has a usable
// walking distance. Candidates whose distance cannot be resolved are dropped.
func (e *Enricher) find(ctx context.Context, at types.Coordinates, used usedSet) (Place, Distance, bool, error) {
	rejected := usedSet{}
	for radius := e.policy.InitialRadius; radius <= e.policy.MaxRadius; radius += e.policy.RadiusStep {
		if err := e.limiter.Wait(ctx); err != nil {
			return Place{}, Distance{}, false, err
		}
		places, err := e.nearby.SearchNearby(ctx, at, radius)
		if err != nil {
			return Place{}, Distance{}, false, fmt.Errorf("failed to search mosques within %dm: %w", radius, err)
		}

		for _, p := range places {
			if used.has(p) || rejected.has(p) {
				continue
			}
			if err := e.limiter.Wait(ctx); err != nil {
				return Place{}, Distance{}, false, err
			}
			d, err := e.distance.WalkingDistance(ctx, at, p.Coordinates)
			if err != nil || d.Text == "" {
				e.logger.DebugContext(ctx, "Discarding mosque without walking distance",
					slog.String("place", p.Name),
					slog.Any("error", err))
				rejected.add(p.ID, p.Name)
				continue
			}
			return p, d, true, nil
		}
	}
	return Place{}, Distance{}, false, nil
}

func prayerStop(day int, meal types.Activity, p Place, d Distance) types.Activity {
	location := p.Address
	if location == "" {
		location = p.Name
	}
	coords := p.Coordinates
	placeID := p.ID
	if placeID == "" {
		placeID = strings.ReplaceAll(types.NormalizeName(p.Name), " ", "-")
	}
	return types.Activity{
		ID:             ID(day, placeID),
		Title:          "Prayer at " + p.Name,
		Time:           meal.Time,
		Location:       location,
		Type:           types.KindMosque,
		Coordinates:    &coords,
		Distance:       d.Text,
		WalkingTime:    d.Duration,
		Rating:         p.Rating,
		PhotoReference: p.PhotoReference,
		PlaceID:        p.ID,
	}
}
