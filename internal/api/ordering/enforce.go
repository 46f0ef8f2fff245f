// Package ordering repairs day-level ordering constraints on a generated
// itinerary without adding or removing activities.
package ordering

import (
	"sort"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/classifier"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

const (
	rankFirst = iota // check-in, arrival legs
	rankOrdinary
	rankLast // check-out, departure legs
)

// unit is an activity plus the mosque stops that follow it.
type unit struct {
	items []types.Activity
	pos   []int // input index of each item
	rank  int
	meal  types.MealType
}

func (u unit) head() types.Activity { return u.items[0] }

// Enforce returns days whose activities satisfy, per day:
// check-in before ordinary activities, breakfast < lunch < dinner,
// and check-out at the tail. The sort is stable.
func Enforce(days []types.Day) []types.Day {
	out := make([]types.Day, len(days))
	for i, d := range days {
		out[i] = types.Day{Day: d.Day, Summary: d.Summary, Activities: EnforceDay(d.Activities)}
	}
	return out
}

// EnforceDay applies Enforce to a single activity list.
func EnforceDay(activities []types.Activity) []types.Activity {
	if len(activities) < 2 {
		return types.CloneActivities(activities)
	}

	units := group(activities)
	assignRanks(units)

	sort.SliceStable(units, func(i, j int) bool {
		return units[i].rank < units[j].rank
	})
	orderMeals(units)

	out := make([]types.Activity, 0, len(activities))
	var pos []int
	for _, u := range units {
		out = append(out, u.items...)
		pos = append(pos, u.pos...)
	}
	dropMovedLegs(out, pos)
	return out
}

// dropMovedLegs clears TransportToNext on activities whose successor changed,
// since the leg was computed for the old neighbour.
func dropMovedLegs(out []types.Activity, pos []int) {
	for i := range out {
		if out[i].TransportToNext == nil {
			continue
		}
		if i == len(out)-1 || pos[i+1] != pos[i]+1 {
			out[i].TransportToNext = nil
		}
	}
}

func group(activities []types.Activity) []unit {
	var units []unit
	for i, a := range activities {
		kind := classifier.Kind(a)
		if kind == types.KindMosque && len(units) > 0 && classifier.Kind(units[len(units)-1].head()) == types.KindMeal {
			last := &units[len(units)-1]
			last.items = append(last.items, a)
			last.pos = append(last.pos, i)
			continue
		}
		u := unit{items: []types.Activity{a}, pos: []int{i}, rank: rankOrdinary}
		if kind == types.KindMeal {
			u.meal = classifier.MealTypeOf(a)
		}
		units = append(units, u)
	}
	return units
}

// assignRanks puts check-in first and check-out last. Transport legs that
// open or close the day keep their place next to the hotel entries.
func assignRanks(units []unit) {
	firstOrdinary, lastOrdinary := -1, -1
	for i, u := range units {
		if classifier.Kind(u.head()) == types.KindTransport {
			continue
		}
		if firstOrdinary < 0 {
			firstOrdinary = i
		}
		lastOrdinary = i
	}

	for i := range units {
		a := units[i].head()
		switch classifier.Hotel(a) {
		case classifier.HotelCheckIn:
			units[i].rank = rankFirst
			continue
		case classifier.HotelCheckOut:
			units[i].rank = rankLast
			continue
		}
		if classifier.Kind(a) != types.KindTransport {
			continue
		}
		switch {
		case firstOrdinary < 0 || i < firstOrdinary:
			units[i].rank = rankFirst
		case i > lastOrdinary:
			units[i].rank = rankLast
		}
	}
}

// orderMeals keeps the positions occupied by meals but refills them in
// breakfast, lunch, dinner order. Meals of unknown type stay where they are.
func orderMeals(units []unit) {
	var slots []int
	var meals []unit
	for i, u := range units {
		if u.meal.Rank() >= 0 && u.rank == rankOrdinary {
			slots = append(slots, i)
			meals = append(meals, u)
		}
	}
	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].meal.Rank() < meals[j].meal.Rank()
	})
	for k, idx := range slots {
		units[idx] = meals[k]
	}
}
