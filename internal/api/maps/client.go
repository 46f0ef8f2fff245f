// Package maps backs the enrichment stages with the Google Maps Platform:
// distance matrix for transport legs and walking distances, text search for
// restaurants and nearby search for mosques.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	gmaps "googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ErrNoRoute is returned when the distance matrix has no usable element.
var ErrNoRoute = errors.New("no route between points")

// API is the subset of *gmaps.Client used here.
type API interface {
	DistanceMatrix(ctx context.Context, r *gmaps.DistanceMatrixRequest) (*gmaps.DistanceMatrixResponse, error)
	TextSearch(ctx context.Context, r *gmaps.TextSearchRequest) (gmaps.PlacesSearchResponse, error)
	NearbySearch(ctx context.Context, r *gmaps.NearbySearchRequest) (gmaps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *gmaps.PlaceDetailsRequest) (gmaps.PlaceDetailsResult, error)
}

var _ API = (*gmaps.Client)(nil)

// NewClient returns a Google Maps client. An empty key yields (nil, nil) so
// callers can run without the maps stages.
func NewClient(apiKey string, requestsPerSecond int) (*gmaps.Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	opts := []gmaps.ClientOption{gmaps.WithAPIKey(apiKey)}
	if requestsPerSecond > 0 {
		opts = append(opts, gmaps.WithRateLimit(requestsPerSecond))
	}
	c, err := gmaps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return c, nil
}

func latLng(c types.Coordinates) *gmaps.LatLng {
	return &gmaps.LatLng{Lat: c.Lat, Lng: c.Lng}
}

func coords(l gmaps.LatLng) *types.Coordinates {
	return &types.Coordinates{Lat: l.Lat, Lng: l.Lng}
}

// element runs a one-to-one distance matrix request.
func element(ctx context.Context, api API, from, to types.Coordinates, mode gmaps.Mode) (*gmaps.DistanceMatrixElement, error) {
	resp, err := api.DistanceMatrix(ctx, &gmaps.DistanceMatrixRequest{
		Origins:      []string{from.String()},
		Destinations: []string{to.String()},
		Mode:         mode,
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix (%s): %w", mode, err)
	}
	if resp == nil || len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, ErrNoRoute
	}
	el := resp.Rows[0].Elements[0]
	if el == nil || el.Status != "OK" {
		return nil, ErrNoRoute
	}
	return el, nil
}

// FormatDuration renders a travel time the way Google displays it, e.g.
// "12 mins" or "1 hour 5 mins".
func FormatDuration(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	h, m := mins/60, mins%60
	unit := func(n int, s string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", s)
		}
		return fmt.Sprintf("%d %ss", n, s)
	}
	switch {
	case h == 0:
		return unit(m, "min")
	case m == 0:
		return unit(h, "hour")
	default:
		return unit(h, "hour") + " " + unit(m, "min")
	}
}
