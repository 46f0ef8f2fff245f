package costs

import (
	"math"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// DayCost is the estimated spend of one day, per traveler, in USD.
type DayCost struct {
	Day        int     `json:"day"`
	Activities float64 `json:"activities"`
	Meals      float64 `json:"meals"`
	Transport  float64 `json:"transport"`
	Total      float64 `json:"total"`
}

// TripCost aggregates day estimates for the whole party.
type TripCost struct {
	Currency          string    `json:"currency"`
	NumberOfTravelers int       `json:"numberOfTravelers"`
	PerTraveler       float64   `json:"perTraveler"`
	Total             float64   `json:"total"`
	Days              []DayCost `json:"days"`
}

// EstimateTripCost walks every activity and transport leg of the itinerary.
// Explicit cost strings win over keyword estimates.
func EstimateTripCost(it *types.Itinerary, rates map[string]float64) TripCost {
	travelers := it.Prefs.NumberOfTravelers
	if travelers < 1 {
		travelers = 1
	}
	out := TripCost{Currency: ReferenceCurrency, NumberOfTravelers: travelers}

	for _, d := range it.Days {
		dc := DayCost{Day: d.Day}
		for _, a := range d.Activities {
			switch a.Type {
			case types.KindMeal:
				dc.Meals += mealCost(a, rates)
			case types.KindMosque, types.KindHotel:
				// prayer stops are free and lodging is priced outside the day plan
			default:
				if v := ParseCostWithRates(a.Cost, rates); v > 0 {
					dc.Activities += v
				} else {
					dc.Activities += EstimateActivityCost(a)
				}
			}
			if leg := a.TransportToNext; leg != nil {
				if v := ParseCostWithRates(leg.Cost, rates); v > 0 {
					dc.Transport += v
				} else {
					dc.Transport += EstimateTransportCost(leg.Mode)
				}
			}
		}
		dc.Activities = round2(dc.Activities)
		dc.Meals = round2(dc.Meals)
		dc.Transport = round2(dc.Transport)
		dc.Total = round2(dc.Activities + dc.Meals + dc.Transport)
		out.PerTraveler += dc.Total
		out.Days = append(out.Days, dc)
	}
	out.PerTraveler = round2(out.PerTraveler)
	out.Total = round2(out.PerTraveler * float64(travelers))
	return out
}

func mealCost(a types.Activity, rates map[string]float64) float64 {
	if len(a.RestaurantOptions) > 0 && a.RestaurantOptions[0].PriceLevel > 0 {
		return EstimateMealCost(a.RestaurantOptions[0].PriceLevel)
	}
	if v := ParseCostWithRates(a.Cost, rates); v > 0 {
		return v
	}
	return EstimateMealCost(0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
