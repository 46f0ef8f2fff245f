package maps

import (
	"context"
	"fmt"

	gmaps "googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/mosque"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Mosques implements the nearby search and walking distance lookups of the
// mosque enricher.
type Mosques struct {
	api API
}

var (
	_ mosque.NearbySearch   = (*Mosques)(nil)
	_ mosque.DistanceLookup = (*Mosques)(nil)
)

func NewMosques(api API) *Mosques {
	return &Mosques{api: api}
}

func (m *Mosques) SearchNearby(ctx context.Context, at types.Coordinates, radiusMeters int) ([]mosque.Place, error) {
	resp, err := m.api.NearbySearch(ctx, &gmaps.NearbySearchRequest{
		Location: latLng(at),
		Radius:   uint(radiusMeters),
		Type:     gmaps.PlaceTypeMosque,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search mosques: %w", err)
	}

	out := make([]mosque.Place, 0, len(resp.Results))
	for _, p := range resp.Results {
		place := mosque.Place{
			ID:          p.PlaceID,
			Name:        p.Name,
			Address:     p.Vicinity,
			Coordinates: types.Coordinates{Lat: p.Geometry.Location.Lat, Lng: p.Geometry.Location.Lng},
			Rating:      float64(p.Rating),
		}
		if len(p.Photos) > 0 {
			place.PhotoReference = p.Photos[0].PhotoReference
		}
		out = append(out, place)
	}
	return out, nil
}

func (m *Mosques) WalkingDistance(ctx context.Context, from, to types.Coordinates) (mosque.Distance, error) {
	el, err := element(ctx, m.api, from, to, gmaps.TravelModeWalking)
	if err != nil {
		return mosque.Distance{}, err
	}
	return mosque.Distance{
		Text:     el.Distance.HumanReadable,
		Duration: FormatDuration(el.Duration),
	}, nil
}
