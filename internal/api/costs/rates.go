package costs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Clock returns the current instant; injected so staleness can be tested.
type Clock func() time.Time

// RateFetcher loads exchange rates expressed as units per one USD.
type RateFetcher interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

const ratesKey = "exchange_rates"

type rateEntry struct {
	rates     map[string]float64
	fetchedAt time.Time
}

// RateCache is the process-wide exchange rate cache. Stale entries are
// refreshed on read; when a refresh fails the previous value keeps being served.
type RateCache struct {
	fetcher RateFetcher
	ttl     time.Duration
	clock   Clock
	logger  *slog.Logger

	store     *cache.Cache
	refreshMu sync.Mutex
}

// NewRateCache builds the cache. A nil fetcher serves DefaultRates forever.
func NewRateCache(fetcher RateFetcher, ttl time.Duration, clock Clock, logger *slog.Logger) *RateCache {
	if clock == nil {
		clock = time.Now
	}
	return &RateCache{
		fetcher: fetcher,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		store:   cache.New(cache.NoExpiration, 0),
	}
}

func (c *RateCache) load() (rateEntry, bool) {
	v, ok := c.store.Get(ratesKey)
	if !ok {
		return rateEntry{}, false
	}
	e, ok := v.(rateEntry)
	return e, ok
}

func (c *RateCache) fresh(e rateEntry) bool {
	return c.clock().Sub(e.fetchedAt) < c.ttl
}

// Rates returns the current rate table.
func (c *RateCache) Rates(ctx context.Context) map[string]float64 {
	if c.fetcher == nil {
		return DefaultRates
	}

	cur, ok := c.load()
	if ok && c.fresh(cur) {
		return cur.rates
	}

	if ok {
		// someone else is refreshing; the stale table is good enough meanwhile
		if !c.refreshMu.TryLock() {
			return cur.rates
		}
	} else {
		c.refreshMu.Lock()
	}
	defer c.refreshMu.Unlock()

	if latest, found := c.load(); found && c.fresh(latest) {
		return latest.rates
	}

	fetched, err := c.fetcher.FetchRates(ctx)
	if err != nil || len(fetched) == 0 {
		c.logger.WarnContext(ctx, "Exchange rate refresh failed, serving previous rates", slog.Any("error", err))
		stale := DefaultRates
		if ok {
			stale = cur.rates
		}
		// retry after another ttl instead of on every call
		c.store.Set(ratesKey, rateEntry{rates: stale, fetchedAt: c.clock()}, cache.NoExpiration)
		return stale
	}

	merged := make(map[string]float64, len(DefaultRates)+len(fetched))
	for k, v := range DefaultRates {
		merged[k] = v
	}
	for k, v := range fetched {
		if v > 0 {
			merged[k] = v
		}
	}
	merged[ReferenceCurrency] = 1

	c.store.Set(ratesKey, rateEntry{rates: merged, fetchedAt: c.clock()}, cache.NoExpiration)
	c.logger.DebugContext(ctx, "Exchange rates refreshed", slog.Int("currencies", len(merged)))
	return merged
}

// ParseCost parses text with the cached rate table.
func (c *RateCache) ParseCost(ctx context.Context, text string) float64 {
	return ParseCostWithRates(text, c.Rates(ctx))
}

// HTTPRateFetcher reads {"rates": {"EUR": 0.92, ...}} from a USD-based endpoint.
type HTTPRateFetcher struct {
	URL    string
	Client *http.Client
}

func (f *HTTPRateFetcher) FetchRates(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates endpoint returned status %d", resp.StatusCode)
	}
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	return body.Rates, nil
}
