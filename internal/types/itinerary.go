package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPreferences is returned when trip preferences cannot drive a generation request.
var ErrInvalidPreferences = errors.New("invalid preferences")

const dateLayout = "2006-01-02"

// ItineraryStatus is the lifecycle state of a stored itinerary.
type ItineraryStatus string

const (
	StatusDraft ItineraryStatus = "draft" // unclaimed or unsaved, subject to expiry
	StatusSaved ItineraryStatus = "saved"
)

// ActivityKind is the closed set of activity tags.
type ActivityKind string

const (
	KindActivity  ActivityKind = "activity"
	KindMeal      ActivityKind = "meal"
	KindHotel     ActivityKind = "hotel"
	KindMosque    ActivityKind = "mosque"
	KindTransport ActivityKind = "transport"
)

// MealType is the meal subtype of a meal activity.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealTypes lists meal types in their daily order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// Rank returns the position of the meal within a day, -1 for unknown values.
func (m MealType) Rank() int {
	for i, mt := range MealTypes {
		if mt == m {
			return i
		}
	}
	return -1
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

// TransportLeg describes how to get from an activity to the next one.
type TransportLeg struct {
	Mode     string `json:"mode" bson:"mode"`         // walking, transit, taxi...
	Duration string `json:"duration" bson:"duration"` // human readable, e.g. "12 mins"
	Cost     string `json:"cost" bson:"cost"`         // free-form cost string, e.g. "$3"
}

// RestaurantOption is one restaurant offered for a meal activity.
type RestaurantOption struct {
	ID             string       `json:"id" bson:"id"`
	Name           string       `json:"name" bson:"name"`
	PriceLevel     int          `json:"priceLevel,omitempty" bson:"priceLevel,omitempty"` // 1-4
	Rating         float64      `json:"rating,omitempty" bson:"rating,omitempty"`
	Address        string       `json:"address,omitempty" bson:"address,omitempty"`
	Cuisine        string       `json:"cuisine,omitempty" bson:"cuisine,omitempty"`
	PhotoReference string       `json:"photoReference,omitempty" bson:"photoReference,omitempty"`
	Coordinates    *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Accessible     *bool        `json:"wheelchairAccessible,omitempty" bson:"wheelchairAccessible,omitempty"` // nil when unknown
}

// LedgerKey is the identity used for cross-day deduplication: the place id
// when present, the normalised name otherwise.
func (r RestaurantOption) LedgerKey() string {
	if r.ID != "" {
		return r.ID
	}
	return NormalizeName(r.Name)
}

// Activity is the atomic schedulable unit of a day.
type Activity struct {
	ID                string             `json:"id,omitempty" bson:"id,omitempty"`
	Title             string             `json:"title" bson:"title"`
	Time              string             `json:"time" bson:"time"`
	Location          string             `json:"location" bson:"location"`
	Description       string             `json:"description,omitempty" bson:"description,omitempty"`
	Cost              string             `json:"cost,omitempty" bson:"cost,omitempty"`
	Type              ActivityKind       `json:"type" bson:"type"`
	MealType          MealType           `json:"mealType,omitempty" bson:"mealType,omitempty"`
	Coordinates       *Coordinates       `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	TransportToNext   *TransportLeg      `json:"transportToNext,omitempty" bson:"transportToNext,omitempty"`
	RestaurantOptions []RestaurantOption `json:"restaurantOptions,omitempty" bson:"restaurantOptions,omitempty"`
	Repeated          bool               `json:"repeated,omitempty" bson:"repeated,omitempty"` // restaurant reused after candidates ran out
	Distance          string             `json:"distance,omitempty" bson:"distance,omitempty"`
	WalkingTime       string             `json:"walkingTime,omitempty" bson:"walkingTime,omitempty"`
	Rating            float64            `json:"rating,omitempty" bson:"rating,omitempty"`
	PhotoReference    string             `json:"photoReference,omitempty" bson:"photoReference,omitempty"`
	PlaceID           string             `json:"placeId,omitempty" bson:"placeId,omitempty"`
}

// HasCoordinates reports whether the activity can be used for distance lookups.
func (a Activity) HasCoordinates() bool {
	return a.Coordinates != nil && (a.Coordinates.Lat != 0 || a.Coordinates.Lng != 0)
}

// Day is one day of an itinerary.
type Day struct {
	Day        int        `json:"day" bson:"day"` // 1-based
	Summary    string     `json:"summary,omitempty" bson:"summary,omitempty"`
	Activities []Activity `json:"activities" bson:"activities"`
}

// DietaryPreferences are hard filters for restaurant selection.
type DietaryPreferences struct {
	Halal                bool `json:"halal" bson:"halal"`
	Vegetarian           bool `json:"vegetarian" bson:"vegetarian"`
	Vegan                bool `json:"vegan" bson:"vegan"`
	NutFree              bool `json:"nutFree" bson:"nutFree"`
	SeafoodFree          bool `json:"seafoodFree" bson:"seafoodFree"`
	WheelchairAccessible bool `json:"wheelchairAccessible" bson:"wheelchairAccessible"`
}

// Preferences is the traveler input snapshot stored with the itinerary.
type Preferences struct {
	Destination        string             `json:"destination" bson:"destination"`
	StartDate          string             `json:"startDate" bson:"startDate"` // YYYY-MM-DD
	EndDate            string             `json:"endDate" bson:"endDate"`
	Budget             string             `json:"budget" bson:"budget"` // low, medium, high, luxury
	Interests          []string           `json:"interests" bson:"interests"`
	DietaryPreferences DietaryPreferences `json:"dietaryPreferences" bson:"dietaryPreferences"`
	NumberOfTravelers  int                `json:"numberOfTravelers" bson:"numberOfTravelers"`
	Currency           string             `json:"currency,omitempty" bson:"currency,omitempty"`
}

// NumberOfDays returns the inclusive number of days between start and end dates.
func (p Preferences) NumberOfDays() int {
	start, err1 := time.Parse(dateLayout, p.StartDate)
	end, err2 := time.Parse(dateLayout, p.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Validate checks the preferences; maxDays <= 0 disables the length check.
func (p Preferences) Validate(maxDays int) error {
	if strings.TrimSpace(p.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidPreferences)
	}
	start, err := time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrInvalidPreferences)
	}
	end, err := time.Parse(dateLayout, p.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrInvalidPreferences)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidPreferences)
	}
	if p.NumberOfTravelers < 1 {
		return fmt.Errorf("%w: numberOfTravelers must be at least 1", ErrInvalidPreferences)
	}
	if maxDays > 0 && p.NumberOfDays() > maxDays {
		return fmt.Errorf("%w: trips are limited to %d days", ErrInvalidPreferences, maxDays)
	}
	return nil
}

// Itinerary is the root aggregate returned to callers and persisted.
type Itinerary struct {
	ID        uuid.UUID       `json:"_id"`
	UserID    *uuid.UUID      `json:"userId"` // nil while unclaimed
	Currency  string          `json:"currency"`
	IsPublic  bool            `json:"isPublic"`
	Status    ItineraryStatus `json:"status"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	Prefs     Preferences     `json:"prefs"`
	Days      []Day           `json:"days"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the itinerary.
func (it *Itinerary) OwnedBy(userID uuid.UUID) bool {
	return it.UserID != nil && *it.UserID == userID
}

// SkeletonItinerary is the generator output before enrichment.
type SkeletonItinerary struct {
	Prefs Preferences `json:"prefs"`
	Days  []Day       `json:"days"`
}

// NormalizeName lower-cases and trims a place name for identity comparisons.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CloneActivities returns a copy of the slice so stages never share backing arrays.
func CloneActivities(in []Activity) []Activity {
	if in == nil {
		return nil
	}
	out := make([]Activity, len(in))
	copy(out, in)
	return out
}

// CloneDays deep copies days down to the activity slices.
func CloneDays(in []Day) []Day {
	out := make([]Day, len(in))
	for i, d := range in {
		out[i] = Day{Day: d.Day, Summary: d.Summary, Activities: CloneActivities(d.Activities)}
	}
	return out
}
