// Package classifier maps free-text activities onto the closed activity
// vocabulary used by the enrichment stages and the order enforcer.
package classifier

import (
	"slices"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/costs"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// HotelPhase distinguishes check-in and check-out from other lodging entries.
type HotelPhase int

const (
	HotelNone HotelPhase = iota
	HotelCheckIn
	HotelCheckOut
)

var (
	mosqueKeywords    = []string{"mosque", "masjid", "prayer", "musholla", "mushola", "surau"}
	checkOutKeywords  = []string{"check-out", "check out", "checkout"}
	checkInKeywords   = []string{"check-in", "check in", "checkin"}
	hotelKeywords     = []string{"hotel", "hostel", "resort", "accommodation", "lodging", "guesthouse", "ryokan", "villa"}
	stayKeywords      = []string{"room", "luggage", "baggage", "bags", "key card", "reception", "front desk"}
	transportKeywords = []string{"airport", "transfer", "depart", "arrival", "arrive", "flight", "train to", "bus to", "ferry to"}
	mealKeywords      = []string{"breakfast", "brunch", "lunch", "dinner", "supper", "restaurant", "cafe", "café", "eatery", "food court", "hawker", "warung", "street food", "meal"}
)

var mealTypeKeywords = []struct {
	meal     types.MealType
	keywords []string
}{
	{types.MealBreakfast, []string{"breakfast", "brunch"}},
	{types.MealLunch, []string{"lunch"}},
	{types.MealDinner, []string{"dinner", "supper"}},
}

func mealTypeFromTitle(title string) types.MealType {
	for _, mk := range mealTypeKeywords {
		if containsAny(title, mk.keywords) {
			return mk.meal
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func text(a types.Activity) string {
	return strings.ToLower(a.Title + " " + a.Location)
}

// Kind classifies an activity. An explicit, known Type always wins.
func Kind(a types.Activity) types.ActivityKind {
	switch a.Type {
	case types.KindActivity, types.KindMeal, types.KindHotel, types.KindMosque, types.KindTransport:
		return a.Type
	}
	title := strings.ToLower(a.Title)
	switch {
	case a.MealType != "", mealTypeFromTitle(title) != "":
		return types.KindMeal
	case containsAny(title, mosqueKeywords):
		return types.KindMosque
	case hotelPhase(a) != HotelNone:
		return types.KindHotel
	case containsAny(title, mealKeywords):
		return types.KindMeal
	case containsAny(title, hotelKeywords):
		return types.KindHotel
	case containsAny(title, transportKeywords):
		return types.KindTransport
	}
	return types.KindActivity
}

// MealTypeOf returns the meal subtype of a meal activity, inferring it from
// the title first and the displayed time second. Non-meals return "".
func MealTypeOf(a types.Activity) types.MealType {
	if a.MealType != "" {
		return a.MealType
	}
	if Kind(a) != types.KindMeal {
		return ""
	}
	if mt := mealTypeFromTitle(strings.ToLower(a.Title)); mt != "" {
		return mt
	}
	if minutes, ok := costs.ParseClock(a.Time); ok {
		switch {
		case minutes < 11*60:
			return types.MealBreakfast
		case minutes < 16*60:
			return types.MealLunch
		default:
			return types.MealDinner
		}
	}
	return ""
}

// Hotel returns the lodging phase of an activity. "Check out" alone is
// ordinary English, so the phrase only counts for lodging entries.
func Hotel(a types.Activity) HotelPhase {
	if Kind(a) != types.KindHotel {
		return HotelNone
	}
	return hotelPhase(a)
}

func hotelPhase(a types.Activity) HotelPhase {
	t := text(a)
	var phase HotelPhase
	switch {
	case containsAny(t, checkOutKeywords):
		phase = HotelCheckOut
	case containsAny(t, checkInKeywords):
		phase = HotelCheckIn
	default:
		return HotelNone
	}
	if a.Type == types.KindHotel || lodging(t) || bare(a.Title) {
		return phase
	}
	return HotelNone
}

func lodging(t string) bool {
	return containsAny(t, hotelKeywords) || containsAny(t, stayKeywords)
}

// bare reports a title that is nothing but the check-in/out phrase.
func bare(title string) bool {
	t := strings.Trim(strings.ToLower(title), " .!")
	return slices.Contains(checkInKeywords, t) || slices.Contains(checkOutKeywords, t)
}

// Normalize fills Type and MealType on a generated activity.
func Normalize(a types.Activity) types.Activity {
	a.Type = Kind(a)
	if a.Type == types.KindMeal {
		a.MealType = MealTypeOf(a)
	}
	return a
}

// NormalizeDays applies Normalize to every activity and renumbers days 1..n.
func NormalizeDays(days []types.Day) []types.Day {
	out := types.CloneDays(days)
	for i := range out {
		out[i].Day = i + 1
		for j := range out[i].Activities {
			out[i].Activities[j] = Normalize(out[i].Activities[j])
		}
	}
	return out
}
