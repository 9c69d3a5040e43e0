package pricefeed

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hakimelghazi/orbital-market/internal/engine"
)

// Key names one commodity at one market.
type Key struct {
	Location  uuid.UUID
	Commodity engine.Commodity
}

// Quote is top of book. A zero price means that side is empty.
type Quote struct {
	BestBid int64 `json:"best_bid"`
	BestAsk int64 `json:"best_ask"`
}

type PriceFeed interface {
	Quote(ctx context.Context, key Key) (Quote, error)
}

// BookFeed reads quotes straight from an exchange's books.
type BookFeed struct {
	ex *engine.Exchange
}

func NewBookFeed(ex *engine.Exchange) *BookFeed {
	return &BookFeed{ex: ex}
}

func (f *BookFeed) Quote(ctx context.Context, key Key) (Quote, error) {
	eng, ok := f.ex.Engine(key.Location)
	if !ok {
		return Quote{}, fmt.Errorf("no market at %s", key.Location)
	}
	orders, err := eng.Snapshot(ctx)
	if err != nil {
		return Quote{}, err
	}
	var q Quote
	if bid, ok := engine.Best(orders, engine.SideBuy, key.Commodity); ok {
		q.BestBid = bid.Price
	}
	if ask, ok := engine.Best(orders, engine.SideSell, key.Commodity); ok {
		q.BestAsk = ask.Price
	}
	return q, nil
}

// Keys lists every commodity at every market of ex.
func Keys(ex *engine.Exchange) []Key {
	var keys []Key
	for _, m := range ex.Markets() {
		for _, c := range engine.Commodities() {
			keys = append(keys, Key{Location: m.Location, Commodity: c})
		}
	}
	return keys
}
