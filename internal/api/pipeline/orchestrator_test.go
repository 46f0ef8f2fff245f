package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/meals"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/mosque"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/transport"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prefs types.Preferences) (*types.SkeletonItinerary, error) {
	args := m.Called(ctx, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SkeletonItinerary), args.Error(1)
}

type fakeDirections struct {
	block   func(origin types.Coordinates) bool
	release chan struct{}
}

func (f *fakeDirections) Lookup(ctx context.Context, origin, destination types.Coordinates, _ string) (types.TransportLeg, error) {
	if f.block != nil && f.block(origin) {
		<-f.release
	}
	return types.TransportLeg{Mode: "walking", Duration: "10 mins", Cost: "Free"}, nil
}

type fakeRestaurants struct {
	calls   atomic.Int32
	blockOn int32 // 1-based call number that hangs, 0 for none
	release chan struct{}
}

func (f *fakeRestaurants) Search(ctx context.Context, q meals.RestaurantQuery) ([]types.RestaurantOption, error) {
	if n := f.calls.Add(1); n == f.blockOn {
		<-f.release
	}
	out := make([]types.RestaurantOption, 4)
	for i := range out {
		out[i] = types.RestaurantOption{
			ID:          fmt.Sprintf("%s-%d", q.Meal, i+1),
			Name:        fmt.Sprintf("Warung %s %d", q.Meal, i+1),
			PriceLevel:  2,
			Coordinates: &types.Coordinates{Lat: -6.19 + float64(i)/1000, Lng: 106.82},
		}
	}
	return out, nil
}

type fakeMosques struct{}

func (fakeMosques) SearchNearby(_ context.Context, at types.Coordinates, radius int) ([]mosque.Place, error) {
	return []mosque.Place{
		{ID: "istiqlal", Name: "Istiqlal Mosque", Coordinates: types.Coordinates{Lat: -6.1702, Lng: 106.8310}},
		{ID: "cut-meutia", Name: "Cut Meutia Mosque", Coordinates: types.Coordinates{Lat: -6.1870, Lng: 106.8330}},
		{ID: "sunda-kelapa", Name: "Sunda Kelapa Mosque", Coordinates: types.Coordinates{Lat: -6.2000, Lng: 106.8320}},
	}, nil
}

func (fakeMosques) WalkingDistance(context.Context, types.Coordinates, types.Coordinates) (mosque.Distance, error) {
	return mosque.Distance{Text: "600 m", Duration: "8 mins"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics(t *testing.T) *metrics.AppMetrics {
	t.Helper()
	m, err := metrics.New(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return m
}

func jakartaPrefs() types.Preferences {
	return types.Preferences{
		Destination:        "Jakarta, Indonesia",
		StartDate:          "2025-03-10",
		EndDate:            "2025-03-12",
		Budget:             "medium",
		Interests:          []string{"history", "food"},
		DietaryPreferences: types.DietaryPreferences{Halal: true},
		NumberOfTravelers:  2,
	}
}

func at(lat, lng float64) *types.Coordinates {
	return &types.Coordinates{Lat: lat, Lng: lng}
}

func jakartaSkeleton() *types.SkeletonItinerary {
	return &types.SkeletonItinerary{
		Prefs: jakartaPrefs(),
		Days: []types.Day{
			{Day: 1, Summary: "Arrival and Central Jakarta", Activities: []types.Activity{
				{Title: "National Monument (Monas)", Time: "9:00 AM", Location: "Gambir", Coordinates: at(-6.1754, 106.8272)},
				{Title: "National Museum", Time: "2:00 PM", Location: "Gambir", Coordinates: at(-6.1764, 106.8222)},
				{Title: "Check-in at Hotel Indonesia Kempinski", Time: "5:00 PM", Location: "Thamrin", Coordinates: at(-6.1950, 106.8230)},
			}},
			{Day: 2, Summary: "Old Batavia", Activities: []types.Activity{
				{Title: "Fatahillah Square", Time: "9:30 AM", Location: "Kota Tua", Coordinates: at(-6.1352, 106.8133)},
				{Title: "Sunda Kelapa Harbour", Time: "3:00 PM", Location: "Penjaringan", Coordinates: at(-6.1233, 106.8090)},
			}},
			{Day: 3, Summary: "Departure", Activities: []types.Activity{
				{Title: "Taman Mini Indonesia Indah", Time: "9:00 AM", Location: "East Jakarta", Coordinates: at(-6.3025, 106.8952)},
				{Title: "Hotel check-out", Time: "11:00 AM", Location: "Thamrin", Coordinates: at(-6.1950, 106.8230)},
				{Title: "Grand Indonesia shopping", Time: "1:30 PM", Location: "Thamrin", Coordinates: at(-6.1950, 106.8210)},
			}},
		},
	}
}

type harness struct {
	gen         *MockGenerator
	directions  *fakeDirections
	restaurants *fakeRestaurants
	cfg         Config
	transport   time.Duration
}

func newHarness() *harness {
	return &harness{
		gen:         new(MockGenerator),
		directions:  &fakeDirections{release: make(chan struct{})},
		restaurants: &fakeRestaurants{release: make(chan struct{})},
		cfg:         Config{MealTimeout: time.Second, MosqueTimeout: time.Second, MaxDays: 14},
		transport:   time.Second,
	}
}

func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()
	t.Cleanup(func() {
		close(h.directions.release)
		close(h.restaurants.release)
	})
	logger := testLogger()
	mosquePolicy := mosque.DefaultPolicy()
	mosquePolicy.Delay = 0
	return NewOrchestrator(
		h.gen,
		transport.NewEnricher(h.directions, h.transport, logger),
		meals.NewPlanner(h.restaurants, meals.DefaultMealPolicy(), logger),
		mosque.NewEnricher(fakeMosques{}, fakeMosques{}, mosquePolicy, logger),
		h.cfg,
		testMetrics(t),
		logger,
	)
}

func TestRun_JakartaHalalScenario(t *testing.T) {
	h := newHarness()
	o := h.build(t)
	prefs := jakartaPrefs()
	h.gen.On("Generate", mock.Anything, prefs).Return(jakartaSkeleton(), nil).Once()

	it, err := o.Run(context.Background(), prefs)
	require.NoError(t, err)
	require.NotNil(t, it)
	require.Len(t, it.Days, 3)
	assert.Equal(t, types.StatusDraft, it.Status)
	assert.Equal(t, "USD", it.Currency)
	assert.Equal(t, prefs, it.Prefs)

	usedPerMeal := map[types.MealType]map[string]int{}
	for di, day := range it.Days {
		assert.Equal(t, di+1, day.Day)
		acts := day.Activities

		index := map[types.MealType]int{}
		for i, a := range acts {
			if a.Type == types.KindMeal {
				index[a.MealType] = i
				if usedPerMeal[a.MealType] == nil {
					usedPerMeal[a.MealType] = map[string]int{}
				}
				usedPerMeal[a.MealType][a.PlaceID]++
			}
		}
		for _, mt := range types.MealTypes {
			assert.Contains(t, index, mt, "day %d lacks %s", day.Day, mt)
		}
		assert.Less(t, index[types.MealBreakfast], index[types.MealLunch])
		assert.Less(t, index[types.MealLunch], index[types.MealDinner])

		seen := map[string]bool{}
		for i, a := range acts {
			if a.Type == types.KindMeal && a.MealType != types.MealBreakfast && a.HasCoordinates() {
				require.Less(t, i+1, len(acts))
				assert.Equal(t, types.KindMosque, acts[i+1].Type, "day %d: no mosque after %q", day.Day, a.Title)
			}
			if a.Type == types.KindMosque {
				require.Greater(t, i, 0)
				assert.NotEqual(t, types.MealBreakfast, acts[i-1].MealType)
				assert.False(t, seen[a.PlaceID], "day %d reuses %s", day.Day, a.PlaceID)
				seen[a.PlaceID] = true
			}
		}

		require.NotEmpty(t, acts)
		assert.NotNil(t, acts[0].TransportToNext, "day %d first activity has a leg", day.Day)
	}

	for mt, ids := range usedPerMeal {
		for id, n := range ids {
			assert.Equal(t, 1, n, "%s reused for %s", id, mt)
		}
	}

	last := it.Days[2].Activities
	checkout := -1
	for i, a := range last {
		if a.Title == "Hotel check-out" {
			checkout = i
		}
	}
	assert.GreaterOrEqual(t, checkout, (len(last)-1)/2)

	first := it.Days[0].Activities
	assert.Equal(t, "Check-in at Hotel Indonesia Kempinski", first[0].Title)
	h.gen.AssertExpectations(t)
}

// pointDirections names the destination in the leg so tests can tell which
// neighbour a leg was computed for.
type pointDirections struct{}

func (pointDirections) Lookup(_ context.Context, _, destination types.Coordinates, _ string) (types.TransportLeg, error) {
	return types.TransportLeg{Mode: "walking", Duration: pointKey(destination), Cost: "Free"}, nil
}

func pointKey(c types.Coordinates) string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lng)
}

func TestRun_LegsFollowFinalOrder(t *testing.T) {
	h := newHarness()
	t.Cleanup(func() { close(h.restaurants.release) })
	logger := testLogger()
	mosquePolicy := mosque.DefaultPolicy()
	mosquePolicy.Delay = 0
	o := NewOrchestrator(
		h.gen,
		transport.NewEnricher(pointDirections{}, time.Second, logger),
		meals.NewPlanner(h.restaurants, meals.DefaultMealPolicy(), logger),
		mosque.NewEnricher(fakeMosques{}, fakeMosques{}, mosquePolicy, logger),
		h.cfg,
		testMetrics(t),
		logger,
	)
	prefs := jakartaPrefs()
	h.gen.On("Generate", mock.Anything, prefs).Return(jakartaSkeleton(), nil)

	it, err := o.Run(context.Background(), prefs)
	require.NoError(t, err)

	first := it.Days[0].Activities
	require.Equal(t, "Check-in at Hotel Indonesia Kempinski", first[0].Title, "check-in was moved to the front")
	for _, day := range it.Days {
		acts := day.Activities
		for i := 0; i+1 < len(acts); i++ {
			if !acts[i].HasCoordinates() || !acts[i+1].HasCoordinates() {
				continue
			}
			require.NotNil(t, acts[i].TransportToNext, "day %d: %q has no leg", day.Day, acts[i].Title)
			assert.Equal(t, pointKey(*acts[i+1].Coordinates), acts[i].TransportToNext.Duration,
				"day %d: leg after %q points at a stale neighbour", day.Day, acts[i].Title)
		}
		assert.Nil(t, acts[len(acts)-1].TransportToNext, "day %d: last activity has no leg", day.Day)
	}
}

func TestRun_NoMosquesWithoutHalal(t *testing.T) {
	h := newHarness()
	o := h.build(t)
	prefs := jakartaPrefs()
	prefs.DietaryPreferences.Halal = false
	h.gen.On("Generate", mock.Anything, prefs).Return(jakartaSkeleton(), nil)

	it, err := o.Run(context.Background(), prefs)
	require.NoError(t, err)
	for _, d := range it.Days {
		for _, a := range d.Activities {
			assert.NotEqual(t, types.KindMosque, a.Type)
		}
	}
}

func TestRun_InvalidPreferencesIsFatal(t *testing.T) {
	h := newHarness()
	o := h.build(t)
	prefs := jakartaPrefs()
	prefs.Destination = " "

	it, err := o.Run(context.Background(), prefs)
	assert.Nil(t, it)
	assert.ErrorIs(t, err, types.ErrInvalidPreferences)
	h.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRun_GeneratorFailureIsFatal(t *testing.T) {
	h := newHarness()
	o := h.build(t)
	cause := errors.New("model overloaded")
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(nil, cause)

	it, err := o.Run(context.Background(), jakartaPrefs())
	assert.Nil(t, it)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, cause)
}

func TestRun_EmptySkeletonIsFatal(t *testing.T) {
	h := newHarness()
	o := h.build(t)
	h.gen.On("Generate", mock.Anything, mock.Anything).Return(&types.SkeletonItinerary{}, nil)

	_, err := o.Run(context.Background(), jakartaPrefs())
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestRun_SlowTransportDayFallsBackAlone(t *testing.T) {
	h := newHarness()
	h.transport = 50 * time.Millisecond
	day2Start := *jakartaSkeleton().Days[1].Activities[0].Coordinates
	h.directions.block = func(origin types.Coordinates) bool { return origin == day2Start }
	o := h.build(t)

	prefs := jakartaPrefs()
	prefs.DietaryPreferences.Halal = false
	h.gen.On("Generate", mock.Anything, prefs).Return(jakartaSkeleton(), nil)

	start := time.Now()
	it, err := o.Run(context.Background(), prefs)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	for _, a := range it.Days[1].Activities {
		if a.Title == "Fatahillah Square" {
			assert.Nil(t, a.TransportToNext, "blocked day keeps its unannotated activity")
		}
	}
	assert.NotNil(t, it.Days[0].Activities[0].TransportToNext)
	assert.NotNil(t, it.Days[2].Activities[0].TransportToNext)
}

func TestRun_MealTimeoutDoesNotPolluteLedger(t *testing.T) {
	h := newHarness()
	h.cfg.MealTimeout = 50 * time.Millisecond
	h.restaurants.blockOn = 1 // day 1 breakfast hangs
	o := h.build(t)

	prefs := jakartaPrefs()
	prefs.DietaryPreferences.Halal = false
	h.gen.On("Generate", mock.Anything, prefs).Return(jakartaSkeleton(), nil)

	it, err := o.Run(context.Background(), prefs)
	require.NoError(t, err)

	for _, a := range it.Days[0].Activities {
		assert.NotEqual(t, types.KindMeal, a.Type, "day 1 kept its pre-stage activities")
	}

	var day2Breakfast, day3Breakfast string
	for _, a := range it.Days[1].Activities {
		if a.MealType == types.MealBreakfast {
			day2Breakfast = a.PlaceID
		}
	}
	for _, a := range it.Days[2].Activities {
		if a.MealType == types.MealBreakfast {
			day3Breakfast = a.PlaceID
		}
	}
	assert.Equal(t, "breakfast-1", day2Breakfast)
	assert.Equal(t, "breakfast-2", day3Breakfast)
}

func TestReorder(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, nil, Config{}, nil, testLogger())
	days := []types.Day{{Day: 4, Activities: []types.Activity{
		{Title: "Dinner at Bebek Kaleyo", Time: "7:00 PM"},
		{Title: "Lunch at Sate Senayan", Time: "12:30 PM"},
	}}}

	got := o.Reorder(context.Background(), days)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Day)
	assert.Equal(t, "Lunch at Sate Senayan", got[0].Activities[0].Title)
	assert.Equal(t, types.KindMeal, got[0].Activities[0].Type)
	assert.Equal(t, types.MealDinner, got[0].Activities[1].MealType)
}
