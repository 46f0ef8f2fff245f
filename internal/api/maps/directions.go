package maps

import (
	"context"
	"fmt"
	"log/slog"

	gmaps "googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/costs"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Directions picks walking for short hops, then public transit, then a taxi.
type Directions struct {
	api           API
	walkMaxMeters int
	taxiBase      float64 // USD
	taxiPerKm     float64 // USD
	logger        *slog.Logger
}

func NewDirections(api API, walkMaxMeters int, logger *slog.Logger) *Directions {
	if walkMaxMeters <= 0 {
		walkMaxMeters = 1500
	}
	return &Directions{
		api:           api,
		walkMaxMeters: walkMaxMeters,
		taxiBase:      2,
		taxiPerKm:     0.8,
		logger:        logger,
	}
}

func (d *Directions) Lookup(ctx context.Context, origin, destination types.Coordinates, destinationContext string) (types.TransportLeg, error) {
	walk, err := element(ctx, d.api, origin, destination, gmaps.TravelModeWalking)
	if err == nil && walk.Distance.Meters <= d.walkMaxMeters {
		return types.TransportLeg{Mode: "walking", Duration: FormatDuration(walk.Duration), Cost: "Free"}, nil
	}

	transit, err := element(ctx, d.api, origin, destination, gmaps.TravelModeTransit)
	if err == nil {
		return types.TransportLeg{
			Mode:     "transit",
			Duration: FormatDuration(transit.Duration),
			Cost:     fmt.Sprintf("$%.0f", costs.EstimateTransportCost("transit")),
		}, nil
	}
	d.logger.DebugContext(ctx, "No transit route, falling back to driving",
		slog.String("destination", destinationContext),
		slog.Any("error", err))

	drive, err := element(ctx, d.api, origin, destination, gmaps.TravelModeDriving)
	if err != nil {
		return types.TransportLeg{}, fmt.Errorf("failed to resolve leg in %s: %w", destinationContext, err)
	}
	fare := d.taxiBase + d.taxiPerKm*float64(drive.Distance.Meters)/1000
	return types.TransportLeg{
		Mode:     "taxi",
		Duration: FormatDuration(drive.Duration),
		Cost:     fmt.Sprintf("$%.0f", fare),
	}, nil
}
