package meals

import (
	"strings"
	"unicode"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var (
	nonHalalWords   = []string{"pork", "babi", "bacon", "ham", "lechon", "pub", "brewery", "beer", "wine", "winery", "izakaya", "tavern"}
	meatWords       = []string{"steak", "steakhouse", "bbq", "barbecue", "churrascaria", "butcher", "burger", "chicken", "pork", "babi", "beef", "lamb", "kebab", "yakiniku", "seafood", "fish", "sushi"}
	animalWords     = []string{"dairy", "cheese", "creamery", "gelato", "ice cream", "bakery", "patisserie", "egg"}
	seafoodWords    = []string{"seafood", "fish", "sushi", "sashimi", "oyster", "crab", "lobster", "prawn", "shrimp", "ikan", "udang"}
	nutWords        = []string{"satay", "sate", "peanut", "nut", "nuts", "pecel", "gado-gado", "gado gado"}
	plantBasedWords = []string{"vegan", "vegetarian", "plant-based", "plant based", "veggie"}
)

func words(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}) {
		out[w] = struct{}{}
	}
	return out
}

// mentions matches single words on word boundaries and phrases as substrings.
func mentions(text string, ws map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		if _, ok := ws[kw]; ok {
			return true
		}
	}
	return false
}

// allowed applies the dietary hard filters to one candidate. Keyword checks
// only catch what the source let through; the source receives the same flags.
// Accessibility must be confirmed by the source, unknown counts as no.
func allowed(r types.RestaurantOption, d types.DietaryPreferences) bool {
	if d.WheelchairAccessible && (r.Accessible == nil || !*r.Accessible) {
		return false
	}
	text := strings.ToLower(r.Name + " " + r.Cuisine)
	ws := words(text)
	plantBased := mentions(text, ws, plantBasedWords)

	if d.Halal && mentions(text, ws, nonHalalWords) {
		return false
	}
	if (d.Vegetarian || d.Vegan) && !plantBased && mentions(text, ws, meatWords) {
		return false
	}
	if d.Vegan && !plantBased && mentions(text, ws, animalWords) {
		return false
	}
	if d.SeafoodFree && mentions(text, ws, seafoodWords) {
		return false
	}
	if d.NutFree && mentions(text, ws, nutWords) {
		return false
	}
	return true
}

func filterDietary(in []types.RestaurantOption, d types.DietaryPreferences) []types.RestaurantOption {
	out := make([]types.RestaurantOption, 0, len(in))
	for _, r := range in {
		if allowed(r, d) {
			out = append(out, r)
		}
	}
	return out
}
