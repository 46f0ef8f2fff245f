package meals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/classifier"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/costs"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// RestaurantQuery narrows a restaurant search. Dietary flags are hard filters.
type RestaurantQuery struct {
	Destination string
	Meal        types.MealType
	Budget      string
	Dietary     types.DietaryPreferences
	Interests   []string
	Near        *types.Coordinates
}

// RestaurantSource returns candidates in ranking order.
type RestaurantSource interface {
	Search(ctx context.Context, q RestaurantQuery) ([]types.RestaurantOption, error)
}

// DayRequest is the input of one meal-planning call.
type DayRequest struct {
	Activities  []types.Activity
	DayIndex    int // 1-based
	Destination string
	Budget      string
	Dietary     types.DietaryPreferences
	Interests   []string
	MealTimes   MealTimes
}

// DayResult is the output of one meal-planning call. UsedRestaurants is only
// folded into the cross-day ledger by the caller.
type DayResult struct {
	Activities      []types.Activity
	UsedRestaurants types.UsedRestaurants
	Repeats         int // meals that reused a restaurant because candidates ran out
}

// Planner selects restaurants for the due meal slots of a day.
type Planner struct {
	source RestaurantSource
	policy MealPolicy
	logger *slog.Logger
}

// NewPlanner returns a planner. A nil source disables meal insertion.
func NewPlanner(source RestaurantSource, policy MealPolicy, logger *slog.Logger) *Planner {
	if policy.MaxOptions <= 0 {
		policy.MaxOptions = 3
	}
	return &Planner{
		source: source,
		policy: policy,
		logger: logger,
	}
}

// Policy returns the slot heuristic the planner was built with.
func (p *Planner) Policy() MealPolicy {
	return p.policy
}

// MealID is the stable id of an inserted meal, so re-runs replace instead of duplicate.
func MealID(day int, meal types.MealType) string {
	return fmt.Sprintf("meal-d%d-%s", day, meal)
}

// InsertMealsForDay inserts one meal activity per due slot. The ledger is only
// read. A failed lookup skips that meal and records nothing for it.
func (p *Planner) InsertMealsForDay(ctx context.Context, req DayRequest, ledger *types.RestaurantLedger) (DayResult, error) {
	ctx, span := otel.Tracer("MealPlanner").Start(ctx, "InsertMealsForDay", trace.WithAttributes(
		attribute.Int("day", req.DayIndex),
		attribute.String("destination", req.Destination),
	))
	defer span.End()

	l := p.logger.With(slog.String("method", "InsertMealsForDay"), slog.Int("day", req.DayIndex))

	result := DayResult{Activities: types.CloneActivities(req.Activities)}
	if p.source == nil {
		span.SetStatus(codes.Ok, "No restaurant source")
		return result, nil
	}

	for _, slot := range req.MealTimes.Slots() {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Context done")
			return DayResult{}, err
		}

		candidates, err := p.source.Search(ctx, RestaurantQuery{
			Destination: req.Destination,
			Meal:        slot.Meal,
			Budget:      req.Budget,
			Dietary:     req.Dietary,
			Interests:   req.Interests,
			Near:        anchor(result.Activities, slot.Minutes),
		})
		if err != nil {
			span.RecordError(err)
			l.WarnContext(ctx, "Restaurant lookup failed, skipping meal",
				slog.String("meal", string(slot.Meal)),
				slog.Any("error", err))
			continue
		}

		eligible := filterDietary(candidates, req.Dietary)
		if len(eligible) == 0 {
			l.InfoContext(ctx, "No restaurant satisfies the dietary filters",
				slog.String("meal", string(slot.Meal)),
				slog.Int("candidates", len(candidates)))
			continue
		}

		fresh := make([]types.RestaurantOption, 0, len(eligible))
		for _, r := range eligible {
			if !ledger.Contains(slot.Meal, r.LedgerKey()) {
				fresh = append(fresh, r)
			}
		}

		repeated := false
		options := fresh
		if len(options) == 0 {
			l.InfoContext(ctx, "Restaurant candidates exhausted, allowing a repeat",
				slog.String("meal", string(slot.Meal)))
			options = eligible
			repeated = true
			result.Repeats++
		}
		if len(options) > p.policy.MaxOptions {
			options = options[:p.policy.MaxOptions]
		}

		meal := buildMeal(req.DayIndex, slot, options, repeated)
		result.Activities = insertMeal(result.Activities, meal, slot)
		result.UsedRestaurants.Add(slot.Meal, options[0].LedgerKey())
	}

	span.SetAttributes(attribute.Int("repeats", result.Repeats))
	span.SetStatus(codes.Ok, "Meals inserted")
	return result, nil
}

func buildMeal(day int, slot MealSlot, options []types.RestaurantOption, repeated bool) types.Activity {
	chosen := options[0]
	location := chosen.Address
	if location == "" {
		location = chosen.Name
	}
	opts := make([]types.RestaurantOption, len(options))
	copy(opts, options)

	return types.Activity{
		ID:                MealID(day, slot.Meal),
		Title:             fmt.Sprintf("%s at %s", mealLabel(slot.Meal), chosen.Name),
		Time:              slot.Time,
		Location:          location,
		Cost:              fmt.Sprintf("$%.0f", costs.EstimateMealCost(chosen.PriceLevel)),
		Type:              types.KindMeal,
		MealType:          slot.Meal,
		Coordinates:       chosen.Coordinates,
		RestaurantOptions: opts,
		Repeated:          repeated,
		Rating:            chosen.Rating,
		PhotoReference:    chosen.PhotoReference,
		PlaceID:           chosen.ID,
	}
}

func mealLabel(m types.MealType) string {
	s := string(m)
	if s == "" {
		return "Meal"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// anchor returns the coordinates of the last located activity at or before
// the slot, so candidates are searched near where the traveler will be.
func anchor(activities []types.Activity, minutes int) *types.Coordinates {
	var near *types.Coordinates
	for _, a := range activities {
		if m, ok := costs.ParseClock(a.Time); ok && m > minutes {
			break
		}
		if a.HasCoordinates() {
			near = a.Coordinates
		}
	}
	return near
}

// insertMeal drops any previous activity with the same id, then places the
// meal before the first activity that starts later. Untimed activities are
// compared by meal rank when they are meals themselves.
func insertMeal(activities []types.Activity, meal types.Activity, slot MealSlot) []types.Activity {
	out := make([]types.Activity, 0, len(activities)+1)
	for _, a := range activities {
		if a.ID != meal.ID {
			out = append(out, a)
		}
	}

	pos := len(out)
	for i, a := range out {
		if m, ok := costs.ParseClock(a.Time); ok {
			if m > slot.Minutes {
				pos = i
				break
			}
			continue
		}
		if mt := classifier.MealTypeOf(a); mt != "" && mt.Rank() > slot.Meal.Rank() {
			pos = i
			break
		}
	}

	out = append(out, types.Activity{})
	copy(out[pos+1:], out[pos:])
	out[pos] = meal
	return out
}
