package meals

import (
	"sort"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/classifier"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/costs"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Window is a range of minutes after midnight, inclusive on both ends.
type Window struct {
	Start int `mapstructure:"start"`
	End   int `mapstructure:"end"`
}

func (w Window) contains(m int) bool {
	return m >= w.Start && m <= w.End
}

func (w Window) clamp(m int) int {
	if m < w.Start {
		return w.Start
	}
	if m > w.End {
		return w.End
	}
	return m
}

// MealPolicy holds the slot-selection heuristic. All times are minutes after midnight.
type MealPolicy struct {
	Breakfast        Window `mapstructure:"breakfast"`
	Lunch            Window `mapstructure:"lunch"`
	Dinner           Window `mapstructure:"dinner"`
	DefaultBreakfast int    `mapstructure:"default_breakfast"`
	DefaultLunch     int    `mapstructure:"default_lunch"`
	DefaultDinner    int    `mapstructure:"default_dinner"`
	LunchCutoff      int    `mapstructure:"lunch_cutoff"`      // lunch follows the last activity ending before this
	ActivityDuration int    `mapstructure:"activity_duration"` // assumed length of a generated activity
	BreakfastLead    int    `mapstructure:"breakfast_lead"`    // breakfast starts this long before an early first activity
	MaxOptions       int    `mapstructure:"max_options"`
}

// DefaultMealPolicy returns breakfast 08:00, lunch around 12:30 and dinner 19:00.
func DefaultMealPolicy() MealPolicy {
	return MealPolicy{
		Breakfast:        Window{Start: 6 * 60, End: 10*60 + 30},
		Lunch:            Window{Start: 11*60 + 30, End: 14*60 + 30},
		Dinner:           Window{Start: 18 * 60, End: 21*60 + 30},
		DefaultBreakfast: 8 * 60,
		DefaultLunch:     12*60 + 30,
		DefaultDinner:    19 * 60,
		LunchCutoff:      13 * 60,
		ActivityDuration: 90,
		BreakfastLead:    45,
		MaxOptions:       3,
	}
}

func (p MealPolicy) window(meal types.MealType) Window {
	switch meal {
	case types.MealBreakfast:
		return p.Breakfast
	case types.MealLunch:
		return p.Lunch
	default:
		return p.Dinner
	}
}

// MealSlot is a meal that still has to be inserted into a day.
type MealSlot struct {
	Meal    types.MealType `json:"meal"`
	Minutes int            `json:"minutes"`
	Time    string         `json:"time"`
}

// MealTimes holds the due slots of a day; nil means the meal is already covered.
type MealTimes struct {
	Breakfast *MealSlot `json:"breakfast,omitempty"`
	Lunch     *MealSlot `json:"lunch,omitempty"`
	Dinner    *MealSlot `json:"dinner,omitempty"`
}

// Slots returns the due slots in meal order.
func (m MealTimes) Slots() []MealSlot {
	var out []MealSlot
	for _, s := range []*MealSlot{m.Breakfast, m.Lunch, m.Dinner} {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func newSlot(meal types.MealType, minutes int) *MealSlot {
	return &MealSlot{Meal: meal, Minutes: minutes, Time: costs.FormatClock(minutes)}
}

// covered reports which meals an activity list already contains. A meal counts
// when the classifier recognises it, or when a food-keyword activity sits
// inside that meal's window.
func covered(activities []types.Activity, p MealPolicy) map[types.MealType]bool {
	out := make(map[types.MealType]bool, len(types.MealTypes))
	for _, a := range activities {
		if classifier.Kind(a) != types.KindMeal {
			continue
		}
		if mt := classifier.MealTypeOf(a); mt != "" {
			out[mt] = true
		}
		if m, ok := costs.ParseClock(a.Time); ok {
			for _, mt := range types.MealTypes {
				if p.window(mt).contains(m) {
					out[mt] = true
				}
			}
		}
	}
	return out
}

// DetermineMealTimes picks a slot for every meal the schedule does not cover yet.
func DetermineMealTimes(activities []types.Activity, p MealPolicy) MealTimes {
	have := covered(activities, p)

	var starts []int
	for _, a := range activities {
		if classifier.Kind(a) == types.KindMeal {
			continue
		}
		if m, ok := costs.ParseClock(a.Time); ok {
			starts = append(starts, m)
		}
	}
	sort.Ints(starts)

	var mt MealTimes
	if !have[types.MealBreakfast] {
		at := p.DefaultBreakfast
		if len(starts) > 0 && starts[0] <= at {
			at = p.Breakfast.clamp(starts[0] - p.BreakfastLead)
		}
		mt.Breakfast = newSlot(types.MealBreakfast, at)
	}
	if !have[types.MealLunch] {
		at := p.DefaultLunch
		for _, s := range starts {
			if end := s + p.ActivityDuration; end <= p.LunchCutoff && end >= p.Lunch.Start {
				at = p.Lunch.clamp(end)
			}
		}
		mt.Lunch = newSlot(types.MealLunch, at)
	}
	if !have[types.MealDinner] {
		at := p.DefaultDinner
		for _, s := range starts {
			if s >= p.Dinner.End {
				continue
			}
			if end := s + p.ActivityDuration; end > at {
				at = end
			}
		}
		mt.Dinner = newSlot(types.MealDinner, p.Dinner.clamp(at))
	}
	return mt
}
