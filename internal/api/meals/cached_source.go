package meals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// CachedRestaurantSource memoizes candidate lists per query.
type CachedRestaurantSource struct {
	next   RestaurantSource
	cache  *cache.Cache
	logger *slog.Logger
}

func NewCachedRestaurantSource(next RestaurantSource, ttl time.Duration, logger *slog.Logger) *CachedRestaurantSource {
	return &CachedRestaurantSource{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func cacheKey(q RestaurantQuery) string {
	d := q.Dietary
	near := ""
	if q.Near != nil {
		// ~1km grid so nearby anchors share an entry
		near = fmt.Sprintf("%.2f,%.2f", q.Near.Lat, q.Near.Lng)
	}
	return fmt.Sprintf("%s|%s|%s|%t%t%t%t%t%t|%s",
		types.NormalizeName(q.Destination), q.Meal, strings.ToLower(q.Budget),
		d.Halal, d.Vegetarian, d.Vegan, d.NutFree, d.SeafoodFree, d.WheelchairAccessible, near)
}

// Search serves cached candidates or delegates to the wrapped source. Errors are not cached.
func (c *CachedRestaurantSource) Search(ctx context.Context, q RestaurantQuery) ([]types.RestaurantOption, error) {
	key := cacheKey(q)
	if v, found := c.cache.Get(key); found {
		c.logger.DebugContext(ctx, "Restaurant cache hit", slog.String("key", key))
		return clone(v.([]types.RestaurantOption)), nil
	}

	res, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, clone(res), cache.DefaultExpiration)
	return res, nil
}

func clone(in []types.RestaurantOption) []types.RestaurantOption {
	out := make([]types.RestaurantOption, len(in))
	copy(out, in)
	return out
}
