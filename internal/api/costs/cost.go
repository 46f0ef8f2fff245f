package costs

import (
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ReferenceCurrency is the currency every parsed amount is converted to.
const ReferenceCurrency = "USD"

// currencySymbols is scanned in order; the first symbol found wins.
var currencySymbols = []struct {
	symbol   string
	currency string
}{
	{"¥", "JPY"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
	{"Rp", "IDR"},
	{"RM", "MYR"},
	{"฿", "THB"},
	{"$", "USD"},
}

// DefaultRates are units of each currency per one USD.
var DefaultRates = map[string]float64{
	"USD": 1,
	"JPY": 149.5,
	"EUR": 0.92,
	"GBP": 0.79,
	"INR": 83.2,
	"IDR": 15600,
	"MYR": 4.7,
	"THB": 35.8,
}

// DetectCurrency returns the ISO code for the first known symbol in text, or
// an empty string.
func DetectCurrency(text string) string {
	for _, cs := range currencySymbols {
		if strings.Contains(text, cs.symbol) {
			return cs.currency
		}
	}
	return ""
}

// ParseCost parses a free-form cost string using the static rate table.
func ParseCost(text string) float64 {
	return ParseCostWithRates(text, DefaultRates)
}

// ParseCostWithRates parses text like "€15-25" or "Rp 50.000" into an amount
// in the reference currency. Unparseable input yields 0; it never fails.
func ParseCostWithRates(text string, rates map[string]float64) float64 {
	amount := parseAmount(text)
	if amount == 0 {
		return 0
	}
	rate, ok := rates[DetectCurrency(text)]
	if !ok || rate <= 0 {
		rate = 1.0
	}
	return amount / rate
}

func parseAmount(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return 0
	}

	if strings.Contains(cleaned, "-") {
		parts := strings.Split(cleaned, "-")
		var nums []float64
		for _, p := range parts {
			if p == "" {
				continue
			}
			if v, err := strconv.ParseFloat(p, 64); err == nil {
				nums = append(nums, v)
			}
		}
		switch len(nums) {
		case 0:
			return 0
		case 1:
			return nums[0]
		default:
			return (nums[0] + nums[1]) / 2
		}
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// EstimateMealCost returns the bracket midpoint for a 1-4 price level.
func EstimateMealCost(priceLevel int) float64 {
	switch priceLevel {
	case 1:
		return 10
	case 2:
		return 25
	case 3:
		return 50
	case 4:
		return 100
	default:
		return 25
	}
}

type keywordBracket struct {
	keywords []string
	amount   float64
}

var activityBrackets = []keywordBracket{
	{[]string{"mosque", "masjid", "temple", "church", "park", "garden", "beach", "walk", "square"}, 0},
	{[]string{"museum", "gallery", "exhibition"}, 15},
	{[]string{"show", "concert", "theatre", "theater", "performance"}, 60},
	{[]string{"tour", "cruise", "safari", "excursion"}, 40},
	{[]string{"shopping", "market", "mall"}, 30},
	{[]string{"spa", "massage"}, 45},
}

// EstimateActivityCost guesses a per-person cost from the activity title.
func EstimateActivityCost(a types.Activity) float64 {
	title := strings.ToLower(a.Title)
	for _, b := range activityBrackets {
		for _, kw := range b.keywords {
			if strings.Contains(title, kw) {
				return b.amount
			}
		}
	}
	return 20
}

var transportBrackets = []keywordBracket{
	{[]string{"walk", "foot"}, 0},
	{[]string{"flight", "plane", "fly"}, 150},
	{[]string{"ferry", "boat"}, 10},
	{[]string{"taxi", "grab", "uber", "car", "driv", "ride"}, 15},
	{[]string{"bus", "train", "metro", "subway", "transit", "mrt", "lrt", "tram"}, 3},
}

// EstimateTransportCost guesses a per-person cost from a transport mode.
func EstimateTransportCost(mode string) float64 {
	m := strings.ToLower(mode)
	for _, b := range transportBrackets {
		for _, kw := range b.keywords {
			if strings.Contains(m, kw) {
				return b.amount
			}
		}
	}
	return 5
}
