package maps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gmaps "googlemaps.github.io/maps"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/meals"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) DistanceMatrix(ctx context.Context, r *gmaps.DistanceMatrixRequest) (*gmaps.DistanceMatrixResponse, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gmaps.DistanceMatrixResponse), args.Error(1)
}

func (m *MockAPI) TextSearch(ctx context.Context, r *gmaps.TextSearchRequest) (gmaps.PlacesSearchResponse, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(gmaps.PlacesSearchResponse), args.Error(1)
}

func (m *MockAPI) NearbySearch(ctx context.Context, r *gmaps.NearbySearchRequest) (gmaps.PlacesSearchResponse, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(gmaps.PlacesSearchResponse), args.Error(1)
}

func (m *MockAPI) PlaceDetails(ctx context.Context, r *gmaps.PlaceDetailsRequest) (gmaps.PlaceDetailsResult, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(gmaps.PlaceDetailsResult), args.Error(1)
}

func detailsFor(id string) interface{} {
	return mock.MatchedBy(func(r *gmaps.PlaceDetailsRequest) bool { return r.PlaceID == id })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func matrix(status string, meters int, d time.Duration, text string) *gmaps.DistanceMatrixResponse {
	return &gmaps.DistanceMatrixResponse{Rows: []gmaps.DistanceMatrixElementsRow{{
		Elements: []*gmaps.DistanceMatrixElement{{
			Status:   status,
			Duration: d,
			Distance: gmaps.Distance{HumanReadable: text, Meters: meters},
		}},
	}}}
}

func withMode(mode gmaps.Mode) interface{} {
	return mock.MatchedBy(func(r *gmaps.DistanceMatrixRequest) bool { return r.Mode == mode })
}

var (
	monas    = types.Coordinates{Lat: -6.1754, Lng: 106.8272}
	istiqlal = types.Coordinates{Lat: -6.1702, Lng: 106.8310}
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 min", FormatDuration(10*time.Second))
	assert.Equal(t, "12 mins", FormatDuration(12*time.Minute))
	assert.Equal(t, "1 hour", FormatDuration(time.Hour))
	assert.Equal(t, "1 hour 5 mins", FormatDuration(65*time.Minute))
	assert.Equal(t, "2 hours 1 min", FormatDuration(121*time.Minute))
}

func TestDirections_ShortHopWalks(t *testing.T) {
	api := new(MockAPI)
	d := NewDirections(api, 1500, testLogger())
	api.On("DistanceMatrix", mock.Anything, mock.MatchedBy(func(r *gmaps.DistanceMatrixRequest) bool {
		return r.Mode == gmaps.TravelModeWalking &&
			r.Origins[0] == monas.String() && r.Destinations[0] == istiqlal.String()
	})).Return(matrix("OK", 900, 11*time.Minute, "0.9 km"), nil)

	leg, err := d.Lookup(context.Background(), monas, istiqlal, "Jakarta")
	require.NoError(t, err)
	assert.Equal(t, types.TransportLeg{Mode: "walking", Duration: "11 mins", Cost: "Free"}, leg)
	api.AssertNotCalled(t, "DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeTransit))
}

func TestDirections_LongHopUsesTransit(t *testing.T) {
	api := new(MockAPI)
	d := NewDirections(api, 1500, testLogger())
	api.On("DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeWalking)).Return(matrix("OK", 8000, 95*time.Minute, "8 km"), nil)
	api.On("DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeTransit)).Return(matrix("OK", 8500, 35*time.Minute, "8.5 km"), nil)

	leg, err := d.Lookup(context.Background(), monas, istiqlal, "Jakarta")
	require.NoError(t, err)
	assert.Equal(t, "transit", leg.Mode)
	assert.Equal(t, "35 mins", leg.Duration)
	assert.Equal(t, "$3", leg.Cost)
}

func TestDirections_FallsBackToTaxi(t *testing.T) {
	api := new(MockAPI)
	d := NewDirections(api, 1500, testLogger())
	api.On("DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeWalking)).Return(nil, errors.New("timeout"))
	api.On("DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeTransit)).Return(matrix("ZERO_RESULTS", 0, 0, ""), nil)
	api.On("DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeDriving)).Return(matrix("OK", 10000, 25*time.Minute, "10 km"), nil)

	leg, err := d.Lookup(context.Background(), monas, istiqlal, "Jakarta")
	require.NoError(t, err)
	assert.Equal(t, types.TransportLeg{Mode: "taxi", Duration: "25 mins", Cost: "$10"}, leg)
}

func TestDirections_NoRouteAtAll(t *testing.T) {
	api := new(MockAPI)
	d := NewDirections(api, 1500, testLogger())
	api.On("DistanceMatrix", mock.Anything, mock.Anything).Return(&gmaps.DistanceMatrixResponse{}, nil)

	_, err := d.Lookup(context.Background(), monas, istiqlal, "Jakarta")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestRestaurants_Search(t *testing.T) {
	api := new(MockAPI)
	r := NewRestaurants(api, 0, testLogger())
	near := monas

	api.On("TextSearch", mock.Anything, mock.MatchedBy(func(req *gmaps.TextSearchRequest) bool {
		return req.Query == "halal wheelchair accessible lunch restaurant in Jakarta" &&
			req.Type == gmaps.PlaceTypeRestaurant &&
			req.MinPrice == gmaps.PriceLevelInexpensive &&
			req.MaxPrice == gmaps.PriceLevelExpensive &&
			req.Radius == 3000 &&
			req.Location != nil && req.Location.Lat == near.Lat
	})).Return(gmaps.PlacesSearchResponse{Results: []gmaps.PlacesSearchResult{
		{
			PlaceID:          "p1",
			Name:             "Sate Khas Senayan",
			Rating:           4.5,
			PriceLevel:       2,
			FormattedAddress: "Jl. Kebon Sirih 31A",
			Geometry:         gmaps.AddressGeometry{Location: gmaps.LatLng{Lat: -6.18, Lng: 106.83}},
			Photos:           []gmaps.Photo{{PhotoReference: "ref-1"}},
		},
		{PlaceID: "p2", Name: "Closed Diner", PermanentlyClosed: true},
	}}, nil)
	api.On("PlaceDetails", mock.Anything, detailsFor("p1")).
		Return(gmaps.PlaceDetailsResult{PlaceID: "p1", WheelchairAccessibleEntrance: true}, nil)

	got, err := r.Search(context.Background(), meals.RestaurantQuery{
		Destination: "Jakarta",
		Meal:        types.MealLunch,
		Budget:      "medium",
		Dietary:     types.DietaryPreferences{Halal: true, WheelchairAccessible: true},
		Near:        &near,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, 2, got[0].PriceLevel)
	assert.InDelta(t, 4.5, got[0].Rating, 1e-6)
	assert.Equal(t, "ref-1", got[0].PhotoReference)
	require.NotNil(t, got[0].Coordinates)
	assert.Equal(t, -6.18, got[0].Coordinates.Lat)
	require.NotNil(t, got[0].Accessible)
	assert.True(t, *got[0].Accessible)
	api.AssertExpectations(t)
}

func TestRestaurants_AccessibilityOnlyWhenRequested(t *testing.T) {
	api := new(MockAPI)
	r := NewRestaurants(api, 0, testLogger())
	api.On("TextSearch", mock.Anything, mock.Anything).Return(gmaps.PlacesSearchResponse{Results: []gmaps.PlacesSearchResult{
		{PlaceID: "p1", Name: "Warung Tekko"},
	}}, nil)

	got, err := r.Search(context.Background(), meals.RestaurantQuery{Destination: "Jakarta", Meal: types.MealDinner})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Accessible)
	api.AssertNotCalled(t, "PlaceDetails", mock.Anything, mock.Anything)
}

func TestRestaurants_AccessibilityLookupFailureLeavesUnknown(t *testing.T) {
	api := new(MockAPI)
	r := NewRestaurants(api, 0, testLogger())
	api.On("TextSearch", mock.Anything, mock.Anything).Return(gmaps.PlacesSearchResponse{Results: []gmaps.PlacesSearchResult{
		{PlaceID: "p1", Name: "Warung Tekko"},
		{PlaceID: "p2", Name: "Bakmi GM"},
	}}, nil)
	api.On("PlaceDetails", mock.Anything, detailsFor("p1")).Return(gmaps.PlaceDetailsResult{}, errors.New("OVER_QUERY_LIMIT"))
	api.On("PlaceDetails", mock.Anything, detailsFor("p2")).Return(gmaps.PlaceDetailsResult{PlaceID: "p2"}, nil)

	got, err := r.Search(context.Background(), meals.RestaurantQuery{
		Destination: "Jakarta",
		Meal:        types.MealDinner,
		Dietary:     types.DietaryPreferences{WheelchairAccessible: true},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Accessible)
	require.NotNil(t, got[1].Accessible)
	assert.False(t, *got[1].Accessible)
}

func TestRestaurants_SearchError(t *testing.T) {
	api := new(MockAPI)
	r := NewRestaurants(api, 0, testLogger())
	api.On("TextSearch", mock.Anything, mock.Anything).Return(gmaps.PlacesSearchResponse{}, errors.New("REQUEST_DENIED"))

	_, err := r.Search(context.Background(), meals.RestaurantQuery{Destination: "Jakarta", Meal: types.MealDinner})
	assert.Error(t, err)
}

func TestPriceRange(t *testing.T) {
	lo, hi := priceRange("luxury")
	assert.Equal(t, gmaps.PriceLevelExpensive, lo)
	assert.Equal(t, gmaps.PriceLevelVeryExpensive, hi)
	lo, hi = priceRange("LOW")
	assert.Equal(t, gmaps.PriceLevelFree, lo)
	assert.Equal(t, gmaps.PriceLevelModerate, hi)
}

func TestMosques(t *testing.T) {
	api := new(MockAPI)
	m := NewMosques(api)

	api.On("NearbySearch", mock.Anything, mock.MatchedBy(func(r *gmaps.NearbySearchRequest) bool {
		return r.Type == gmaps.PlaceTypeMosque && r.Radius == 4000
	})).Return(gmaps.PlacesSearchResponse{Results: []gmaps.PlacesSearchResult{{
		PlaceID:  "istiqlal",
		Name:     "Istiqlal Mosque",
		Vicinity: "Jl. Taman Wijaya Kusuma",
		Rating:   4.8,
		Geometry: gmaps.AddressGeometry{Location: gmaps.LatLng{Lat: istiqlal.Lat, Lng: istiqlal.Lng}},
	}}}, nil)
	api.On("DistanceMatrix", mock.Anything, withMode(gmaps.TravelModeWalking)).Return(matrix("OK", 650, 8*time.Minute, "0.7 km"), nil)

	places, err := m.SearchNearby(context.Background(), monas, 4000)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "istiqlal", places[0].ID)
	assert.Equal(t, istiqlal, places[0].Coordinates)

	dist, err := m.WalkingDistance(context.Background(), monas, places[0].Coordinates)
	require.NoError(t, err)
	assert.Equal(t, "0.7 km", dist.Text)
	assert.Equal(t, "8 mins", dist.Duration)
}

func TestNewClient_EmptyKeyDisablesMaps(t *testing.T) {
	c, err := NewClient("", 10)
	assert.NoError(t, err)
	assert.Nil(t, c)
}
