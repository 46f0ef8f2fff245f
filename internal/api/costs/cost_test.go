package costs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"dollars", "$20", 20},
		{"yen", "¥1000", 1000 / 149.5},
		{"euro range", "€15-25", (15.0 + 25.0) / 2 / 0.92},
		{"empty", "", 0},
		{"free", "free", 0},
		{"rupiah with separators", "Rp 50000", 50000 / 15600.0},
		{"ringgit", "RM 30", 30 / 4.7},
		{"baht", "฿358", 358 / 35.8},
		{"pound", "£7.90", 7.90 / 0.79},
		{"no symbol", "15", 15},
		{"commas stripped", "¥1,495", 1495 / 149.5},
		{"range with spaces", "$10 - $30 per person", 20},
		{"dangling hyphen", "$15-", 15},
		{"only hyphen", "-", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseCost(tt.in), 1e-9)
		})
	}
}

func TestParseCost_FirstSymbolWins(t *testing.T) {
	// ¥ has priority over $ regardless of position
	assert.InDelta(t, 1000/149.5, ParseCost("$ or ¥1000"), 1e-9)
}

func TestParseCostWithRates_UnknownCurrencyDefaultsToOne(t *testing.T) {
	rates := map[string]float64{"USD": 1}
	assert.InDelta(t, 1000.0, ParseCostWithRates("¥1000", rates), 1e-9)
}

func TestEstimators(t *testing.T) {
	assert.Equal(t, 10.0, EstimateMealCost(1))
	assert.Equal(t, 100.0, EstimateMealCost(4))
	assert.Equal(t, 25.0, EstimateMealCost(0))

	activities := []struct {
		title string
		want  float64
	}{
		{"National Museum of Indonesia", 15},
		{"Istiqlal Mosque visit", 0},
		{"Sunset harbour cruise", 40},
		{"Night market stroll", 30},
		{"Something unusual", 20},
	}
	for _, a := range activities {
		assert.Equal(t, a.want, EstimateActivityCost(types.Activity{Title: a.title}), a.title)
	}

	modes := map[string]float64{
		"walking":  0,
		"Grab car": 15,
		"MRT":      3,
		"ferry":    10,
		"hovercar": 15,
		"":         5,
	}
	for mode, want := range modes {
		assert.Equal(t, want, EstimateTransportCost(mode), mode)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"9:00 AM", 9 * 60, true},
		{"9:00 AM - 11:00 AM", 9 * 60, true},
		{"13:30", 13*60 + 30, true},
		{"7 pm", 19 * 60, true},
		{"12 PM", 12 * 60, true},
		{"12:15 a.m.", 15, true},
		{"Noon", 12 * 60, true},
		{"Evening", 18 * 60, true},
		{"Day 2, 3:45 PM", 15*60 + 45, true},
		{"2 amazing hours", 0, false},
		{"", 0, false},
		{"whenever", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseClock(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "8:00 AM", FormatClock(8*60))
	assert.Equal(t, "12:30 PM", FormatClock(12*60+30))
	assert.Equal(t, "7:05 PM", FormatClock(19*60+5))
	assert.Equal(t, "12:00 AM", FormatClock(0))
}

func TestEstimateTripCost(t *testing.T) {
	it := &types.Itinerary{
		Prefs: types.Preferences{NumberOfTravelers: 2},
		Days: []types.Day{{
			Day: 1,
			Activities: []types.Activity{
				{Title: "Museum", Type: types.KindActivity, TransportToNext: &types.TransportLeg{Mode: "walking"}},
				{Title: "Lunch", Type: types.KindMeal, RestaurantOptions: []types.RestaurantOption{{Name: "A", PriceLevel: 2}}, TransportToNext: &types.TransportLeg{Mode: "taxi", Cost: "$8"}},
				{Title: "Prayer", Type: types.KindMosque},
				{Title: "Tour", Type: types.KindActivity, Cost: "€46"},
			},
		}},
	}

	got := EstimateTripCost(it, DefaultRates)
	assert.Equal(t, "USD", got.Currency)
	assert.Len(t, got.Days, 1)
	assert.InDelta(t, 15+50, got.Days[0].Activities, 0.01)
	assert.InDelta(t, 25, got.Days[0].Meals, 0.01)
	assert.InDelta(t, 8, got.Days[0].Transport, 0.01)
	assert.InDelta(t, 98, got.PerTraveler, 0.01)
	assert.InDelta(t, 196, got.Total, 0.01)
}
