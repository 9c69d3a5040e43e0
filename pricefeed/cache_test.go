package pricefeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hakimelghazi/orbital-market/internal/engine"
)

type stubFeed struct {
	quotes map[Key]Quote
}

func (s stubFeed) Quote(_ context.Context, key Key) (Quote, error) {
	q, ok := s.quotes[key]
	if !ok {
		return Quote{}, errors.New("no quote")
	}
	return q, nil
}

func TestRefreshOnceSkipsFailures(t *testing.T) {
	good := Key{Location: uuid.New(), Commodity: engine.Food}
	bad := Key{Location: uuid.New(), Commodity: engine.Food}
	feed := stubFeed{quotes: map[Key]Quote{good: {BestBid: 9, BestAsk: 11}}}
	cache := NewPriceCache()

	refreshOnce(context.Background(), feed, cache, []Key{bad, good}, zerolog.Nop())

	if q, ok := cache.Get(good); !ok || q.BestBid != 9 || q.BestAsk != 11 {
		t.Fatalf("unexpected quote %+v %v", q, ok)
	}
	if _, ok := cache.Get(bad); ok {
		t.Fatalf("failed key should not be cached")
	}
	if len(cache.All()) != 1 {
		t.Fatalf("expected one cached quote")
	}
}

func TestBookFeedAndUpdater(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ex := engine.NewExchange(8)
	loc := uuid.New()
	if _, err := ex.Open(engine.Market{Name: "Ceres", Location: loc}); err != nil {
		t.Fatalf("open: %v", err)
	}
	go ex.Run(ctx)

	trader := uuid.New()
	for _, o := range []engine.Order{
		engine.NewBuyOrder(engine.Water, trader, loc, engine.Position{}, 10, 8),
		engine.NewBuyOrder(engine.Water, trader, loc, engine.Position{}, 10, 9),
		engine.NewSellOrder(engine.Water, trader, loc, engine.Position{}, 10, 12),
	} {
		if _, err := ex.Place(ctx, o); err != nil {
			t.Fatalf("place: %v", err)
		}
	}

	cache := NewPriceCache()
	keys := Keys(ex)
	if len(keys) != len(engine.Commodities()) {
		t.Fatalf("expected one key per commodity, got %d", len(keys))
	}
	go StartPriceUpdater(ctx, NewBookFeed(ex), cache, keys, time.Hour, zerolog.Nop())

	water := Key{Location: loc, Commodity: engine.Water}
	deadline := time.After(2 * time.Second)
	for {
		if q, ok := cache.Get(water); ok {
			if q.BestBid != 9 || q.BestAsk != 12 {
				t.Fatalf("unexpected quote %+v", q)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("quote never refreshed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if q, _ := NewBookFeed(ex).Quote(ctx, Key{Location: loc, Commodity: engine.Fuel}); q != (Quote{}) {
		t.Fatalf("expected empty fuel quote, got %+v", q)
	}
	if _, err := NewBookFeed(ex).Quote(ctx, Key{Location: uuid.New()}); err == nil {
		t.Fatalf("expected error for unknown market")
	}
}
