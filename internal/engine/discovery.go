package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter returns the orders of the given side and commodity, keeping their relative order.
func Filter(orders []Order, side Side, commodity Commodity) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Side == side && o.Commodity == commodity {
			out = append(out, o)
		}
	}
	return out
}

// BestLocationToBuy picks the location of the cheapest sell order. Equal prices go to
// the location closest to pos. Buy orders in sells are ignored.
func BestLocationToBuy(pos Position, sells []Order) (uuid.UUID, bool) {
	var (
		best     *Order
		bestDist float64
	)
	for i := range sells {
		o := &sells[i]
		if o.Side != SideSell {
			continue
		}
		dist := pos.Distance(o.Position)
		switch {
		case best == nil,
			o.Price < best.Price,
			o.Price == best.Price && dist < bestDist:
			best, bestDist = o, dist
		}
	}
	if best == nil {
		return uuid.Nil, false
	}
	return best.Location, true
}

// BestLocationToSell picks the location of the buy order that pays the most for up to
// amount units. Orders that would pay nothing are skipped; equal proceeds go to the
// location closest to pos.
func BestLocationToSell(pos Position, amount int64, buys []Order) (uuid.UUID, bool) {
	var (
		best         *Order
		bestProceeds int64
		bestDist     float64
	)
	for i := range buys {
		o := &buys[i]
		if o.Side != SideBuy {
			continue
		}
		proceeds := min(o.Amount, amount) * o.Price
		if proceeds <= 0 {
			continue
		}
		dist := pos.Distance(o.Position)
		switch {
		case best == nil,
			proceeds > bestProceeds,
			proceeds == bestProceeds && dist < bestDist:
			best, bestProceeds, bestDist = o, proceeds, dist
		}
	}
	if best == nil {
		return uuid.Nil, false
	}
	return best.Location, true
}

// SynthesizePrice walks candidates from the best price outward until target units are
// covered and returns the price of the last order needed. Sell candidates are walked
// cheapest first, buy candidates dearest first. When the book cannot cover target the
// deepest price is returned.
func SynthesizePrice(candidates []Order, target int64) (int64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	ladder := make([]Order, len(candidates))
	copy(ladder, candidates)
	sort.SliceStable(ladder, func(i, j int) bool {
		return betterPrice(ladder[i].Side, ladder[i].Price, ladder[j].Price)
	})

	var covered int64
	price := ladder[0].Price
	for _, o := range ladder {
		price = o.Price
		covered += o.Amount
		if covered >= target {
			break
		}
	}
	return price, true
}

// QuoteBuyOrder builds a buy order for amount units priced at what filling it from the
// sell side of book would cost right now. It reports false when nobody sells commodity.
func QuoteBuyOrder(amount int64, commodity Commodity, buyer, location uuid.UUID, pos Position, book []Order) (Order, bool) {
	price, ok := SynthesizePrice(Filter(book, SideSell, commodity), amount)
	if !ok {
		return Order{}, false
	}
	return NewBuyOrder(commodity, buyer, location, pos, amount, price), true
}

// QuoteSellOrder is the sell-side twin of QuoteBuyOrder.
func QuoteSellOrder(amount int64, commodity Commodity, seller, location uuid.UUID, pos Position, book []Order) (Order, bool) {
	price, ok := SynthesizePrice(Filter(book, SideBuy, commodity), amount)
	if !ok {
		return Order{}, false
	}
	return NewSellOrder(commodity, seller, location, pos, amount, price), true
}

var (
	basePriceScale = decimal.NewFromInt(30)
	sellerMarkup   = decimal.NewFromInt(5)
)

// BasicBuyingPrice is what a market with stock of maxStock units offers to pay per unit.
// Empty markets pay the most; full ones nothing.
func BasicBuyingPrice(stock, maxStock int64) int64 {
	return scarcity(stock, maxStock).Round(0).IntPart()
}

// BasicSellingPrice is BasicBuyingPrice plus a fixed markup.
func BasicSellingPrice(stock, maxStock int64) int64 {
	return scarcity(stock, maxStock).Add(sellerMarkup).Round(0).IntPart()
}

func scarcity(stock, maxStock int64) decimal.Decimal {
	if maxStock <= 0 {
		return decimal.Zero
	}
	fill := decimal.NewFromInt(stock).Div(decimal.NewFromInt(maxStock))
	s := basePriceScale.Mul(decimal.NewFromInt(1).Sub(fill))
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}
