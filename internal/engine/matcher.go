package engine

import "fmt"

// Resolve matches incoming against the resting orders using price/time priority and
// returns the new resting collection together with the executed transactions.
//
// resting is not modified. Order within the returned book is the order of resting with
// exhausted entries dropped and, if incoming was not fully filled, its remainder appended.
// Every execution happens at the resting order's price.
func Resolve(resting []Order, incoming Order) ([]Order, []Transaction) {
	mustBeLive(incoming)
	book := make([]Order, len(resting), len(resting)+1)
	copy(book, resting)
	for _, o := range book {
		mustBeLive(o)
	}

	var trades []Transaction
	for {
		idx := bestCounterOrder(book, incoming)
		if idx < 0 {
			return append(book, incoming), trades
		}
		maker := &book[idx]

		buyer, seller := maker, &incoming
		if incoming.Side == SideBuy {
			buyer, seller = &incoming, maker
		}
		if buyer.Price < seller.Price {
			return append(book, incoming), trades
		}

		qty := min(maker.Amount, incoming.Amount)
		if qty <= 0 {
			panic(fmt.Sprintf("engine: zero amount transfer between %s and %s", maker.ID, incoming.ID))
		}

		trades = append(trades, Transaction{
			Seller:    seller.Trader,
			Buyer:     buyer.Trader,
			Commodity: incoming.Commodity,
			Amount:    qty,
			Price:     maker.Price,
		})

		maker.Amount -= qty
		incoming.Amount -= qty

		if maker.Amount == 0 {
			book = append(book[:idx], book[idx+1:]...)
		}
		if incoming.Amount == 0 {
			return book, trades
		}
	}
}

// bestCounterOrder returns the index of the best order incoming could trade with, or -1.
// Strict comparison keeps the earliest order on a price tie.
func bestCounterOrder(book []Order, incoming Order) int {
	want := incoming.Side.Opposite()
	best := -1
	for i := range book {
		o := &book[i]
		if o.Side != want || o.Commodity != incoming.Commodity {
			continue
		}
		if best < 0 || betterPrice(want, o.Price, book[best].Price) {
			best = i
		}
	}
	return best
}

// betterPrice reports whether price a beats b for a resting order on side.
func betterPrice(side Side, a, b int64) bool {
	switch side {
	case SideSell:
		return a < b
	case SideBuy:
		return a > b
	default:
		panic(fmt.Sprintf("engine: unknown side %q", string(side)))
	}
}
