package types

// UsedRestaurants holds the restaurant keys chosen by one meal-planning call.
type UsedRestaurants struct {
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Dinner    []string `json:"dinner"`
}

// Add appends keys for the given meal type.
func (u *UsedRestaurants) Add(meal MealType, keys ...string) {
	switch meal {
	case MealBreakfast:
		u.Breakfast = append(u.Breakfast, keys...)
	case MealLunch:
		u.Lunch = append(u.Lunch, keys...)
	case MealDinner:
		u.Dinner = append(u.Dinner, keys...)
	}
}

// For returns the keys recorded for a meal type.
func (u UsedRestaurants) For(meal MealType) []string {
	switch meal {
	case MealBreakfast:
		return u.Breakfast
	case MealLunch:
		return u.Lunch
	case MealDinner:
		return u.Dinner
	}
	return nil
}

// orderedSet keeps insertion order next to a membership index.
type orderedSet struct {
	order []string
	index map[string]struct{}
}

func (s *orderedSet) add(key string) {
	if key == "" {
		return
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = struct{}{}
	s.order = append(s.order, key)
}

func (s *orderedSet) has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// RestaurantLedger tracks restaurants already used per meal type across the
// days of one generation request. It is not safe for concurrent use; only the
// pipeline orchestrator mutates it, between sequential meal-planning calls.
type RestaurantLedger struct {
	sets map[MealType]*orderedSet
}

// NewRestaurantLedger returns an empty ledger.
func NewRestaurantLedger() *RestaurantLedger {
	l := &RestaurantLedger{sets: make(map[MealType]*orderedSet, len(MealTypes))}
	for _, mt := range MealTypes {
		l.sets[mt] = &orderedSet{}
	}
	return l
}

// Contains reports whether key was already used for the meal type.
func (l *RestaurantLedger) Contains(meal MealType, key string) bool {
	if l == nil {
		return false
	}
	s, ok := l.sets[meal]
	return ok && s.has(key)
}

// Add records keys for a meal type.
func (l *RestaurantLedger) Add(meal MealType, keys ...string) {
	s, ok := l.sets[meal]
	if !ok {
		return
	}
	for _, k := range keys {
		s.add(k)
	}
}

// Merge folds one day's result into the ledger.
func (l *RestaurantLedger) Merge(used UsedRestaurants) {
	for _, mt := range MealTypes {
		l.Add(mt, used.For(mt)...)
	}
}

// Keys returns the used keys for a meal type in insertion order.
func (l *RestaurantLedger) Keys(meal MealType) []string {
	if l == nil {
		return nil
	}
	s, ok := l.sets[meal]
	if !ok {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns an independent copy, handed to stage calls that may be
// abandoned while the orchestrator keeps merging into the original.
func (l *RestaurantLedger) Clone() *RestaurantLedger {
	out := NewRestaurantLedger()
	if l == nil {
		return out
	}
	for _, mt := range MealTypes {
		out.Add(mt, l.Keys(mt)...)
	}
	return out
}
