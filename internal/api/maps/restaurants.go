package maps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gmaps "googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/meals"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// maxAccessibilityLookups caps Place Details calls per search.
const maxAccessibilityLookups = 10

// Restaurants serves meal candidates from Places text search, in Google's ranking order.
type Restaurants struct {
	api          API
	radiusMeters uint
	logger       *slog.Logger
}

func NewRestaurants(api API, radiusMeters uint, logger *slog.Logger) *Restaurants {
	if radiusMeters == 0 {
		radiusMeters = 3000
	}
	return &Restaurants{api: api, radiusMeters: radiusMeters, logger: logger}
}

func priceRange(budget string) (gmaps.PriceLevel, gmaps.PriceLevel) {
	switch strings.ToLower(budget) {
	case "low":
		return gmaps.PriceLevelFree, gmaps.PriceLevelModerate
	case "high":
		return gmaps.PriceLevelModerate, gmaps.PriceLevelExpensive
	case "luxury":
		return gmaps.PriceLevelExpensive, gmaps.PriceLevelVeryExpensive
	default:
		return gmaps.PriceLevelInexpensive, gmaps.PriceLevelExpensive
	}
}

func searchText(q meals.RestaurantQuery) string {
	var parts []string
	d := q.Dietary
	if d.Halal {
		parts = append(parts, "halal")
	}
	if d.Vegan {
		parts = append(parts, "vegan")
	} else if d.Vegetarian {
		parts = append(parts, "vegetarian")
	}
	if d.WheelchairAccessible {
		parts = append(parts, "wheelchair accessible")
	}
	parts = append(parts, string(q.Meal), "restaurant in", q.Destination)
	return strings.Join(parts, " ")
}

func (r *Restaurants) Search(ctx context.Context, q meals.RestaurantQuery) ([]types.RestaurantOption, error) {
	minPrice, maxPrice := priceRange(q.Budget)
	req := &gmaps.TextSearchRequest{
		Query:    searchText(q),
		Type:     gmaps.PlaceTypeRestaurant,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}
	if q.Near != nil {
		req.Location = latLng(*q.Near)
		req.Radius = r.radiusMeters
	}

	resp, err := r.api.TextSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search restaurants: %w", err)
	}

	out := make([]types.RestaurantOption, 0, len(resp.Results))
	for _, p := range resp.Results {
		if p.PermanentlyClosed {
			continue
		}
		opt := types.RestaurantOption{
			ID:          p.PlaceID,
			Name:        p.Name,
			PriceLevel:  p.PriceLevel,
			Rating:      float64(p.Rating),
			Address:     p.FormattedAddress,
			Coordinates: coords(p.Geometry.Location),
		}
		if len(p.Photos) > 0 {
			opt.PhotoReference = p.Photos[0].PhotoReference
		}
		out = append(out, opt)
	}
	if q.Dietary.WheelchairAccessible {
		r.markAccessibility(ctx, out)
	}
	r.logger.DebugContext(ctx, "Restaurant search",
		slog.String("query", req.Query),
		slog.Int("results", len(out)))
	return out, nil
}

// markAccessibility asks Place Details for the entrance flag of each candidate.
// Failed lookups leave Accessible nil.
func (r *Restaurants) markAccessibility(ctx context.Context, options []types.RestaurantOption) {
	for i := range options {
		if i >= maxAccessibilityLookups {
			return
		}
		if options[i].ID == "" {
			continue
		}
		details, err := r.api.PlaceDetails(ctx, &gmaps.PlaceDetailsRequest{
			PlaceID: options[i].ID,
			Fields: []gmaps.PlaceDetailsFieldMask{
				gmaps.PlaceDetailsFieldMaskPlaceID,
				gmaps.PlaceDetailsFieldMaskWheelchairAccessibleEntrance,
			},
		})
		if err != nil {
			r.logger.WarnContext(ctx, "Accessibility lookup failed",
				slog.String("place_id", options[i].ID),
				slog.Any("error", err))
			continue
		}
		accessible := details.WheelchairAccessibleEntrance
		options[i].Accessible = &accessible
	}
}
