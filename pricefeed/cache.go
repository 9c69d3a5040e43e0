package pricefeed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PriceCache stores the latest quote per market and commodity in memory.
type PriceCache struct {
	mu     sync.RWMutex
	quotes map[Key]Quote
}

func NewPriceCache() *PriceCache {
	return &PriceCache{quotes: make(map[Key]Quote)}
}

func (c *PriceCache) Set(key Key, q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[key] = q
}

func (c *PriceCache) Get(key Key) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[key]
	return q, ok
}

// All returns a copy of every cached quote.
func (c *PriceCache) All() map[Key]Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Key]Quote, len(c.quotes))
	for k, q := range c.quotes {
		out[k] = q
	}
	return out
}

// StartPriceUpdater periodically refreshes quotes for the given keys until ctx is done.
func StartPriceUpdater(
	ctx context.Context,
	feed PriceFeed,
	cache *PriceCache,
	keys []Key,
	interval time.Duration,
	log zerolog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refreshOnce(ctx, feed, cache, keys, log)

	for {
		select {
		case <-ticker.C:
			refreshOnce(ctx, feed, cache, keys, log)
		case <-ctx.Done():
			return
		}
	}
}

func refreshOnce(ctx context.Context, feed PriceFeed, cache *PriceCache, keys []Key, log zerolog.Logger) {
	for _, k := range keys {
		q, err := feed.Quote(ctx, k)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).
				Str("location", k.Location.String()).
				Stringer("commodity", k.Commodity).
				Msg("quote update failed")
			continue
		}
		cache.Set(k, q)
		log.Trace().
			Str("location", k.Location.String()).
			Stringer("commodity", k.Commodity).
			Int64("bid", q.BestBid).
			Int64("ask", q.BestAsk).
			Msg("quote update")
	}
}
