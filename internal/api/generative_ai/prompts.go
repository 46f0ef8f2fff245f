package generativeAI

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func getDietaryPrompt(d types.DietaryPreferences) string {
	var needs []string
	if d.Halal {
		needs = append(needs, "halal")
	}
	if d.Vegetarian {
		needs = append(needs, "vegetarian")
	}
	if d.Vegan {
		needs = append(needs, "vegan")
	}
	if d.NutFree {
		needs = append(needs, "nut-free")
	}
	if d.SeafoodFree {
		needs = append(needs, "seafood-free")
	}
	if d.WheelchairAccessible {
		needs = append(needs, "wheelchair accessible venues")
	}
	if len(needs) == 0 {
		return "none"
	}
	return strings.Join(needs, ", ")
}

func getItineraryPrompt(prefs types.Preferences) string {
	interests := "general sightseeing"
	if len(prefs.Interests) > 0 {
		interests = strings.Join(prefs.Interests, ", ")
	}
	return fmt.Sprintf(`
        Plan a %d day trip to %s from %s to %s for %d traveler(s).
        Budget level: %s. Interests: [%s]. Dietary and accessibility needs: %s.
        Only include sightseeing, hotel check-in/check-out and transport activities.
        Do NOT include breakfast, lunch, dinner or restaurant visits; meals are planned separately.
        Return the response STRICTLY as a JSON object with:
        {
            "days": [
                {
                "day": <int, 1-based>,
                "summary": "One sentence theme of the day",
                "activities": [
                    {
                    "title": "Name of the activity",
                    "time": "Start time, e.g. 9:00 AM",
                    "location": "Neighbourhood or venue name",
                    "description": "1-2 sentences",
                    "cost": "Entry cost in local currency, e.g. Rp 50,000 or Free",
                    "coordinates": {"lat": <float>, "lng": <float>}
                    }
                ]
                }
            ]
        }
        Return exactly %d days. Ensure latitude is between -90 and 90, and longitude is between -180 and 180.
    `, prefs.NumberOfDays(), prefs.Destination, prefs.StartDate, prefs.EndDate, prefs.NumberOfTravelers,
		prefs.Budget, interests, getDietaryPrompt(prefs.DietaryPreferences), prefs.NumberOfDays())
}
