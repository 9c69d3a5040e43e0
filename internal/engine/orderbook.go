package engine

import "github.com/google/uuid"

// OrderBook holds the resting orders of one market in arrival order.
// It is not safe for concurrent use; Engine serialises access to it.
type OrderBook struct {
	location uuid.UUID
	position Position
	orders   []Order
}

func NewOrderBook(location uuid.UUID, pos Position) *OrderBook {
	return &OrderBook{
		location: location,
		position: pos,
		orders:   make([]Order, 0),
	}
}

func (ob *OrderBook) Location() uuid.UUID { return ob.location }
func (ob *OrderBook) Position() Position  { return ob.position }
func (ob *OrderBook) Len() int            { return len(ob.orders) }

// Place matches o against the book and keeps whatever rests.
func (ob *OrderBook) Place(o Order) []Transaction {
	var trades []Transaction
	ob.orders, trades = Resolve(ob.orders, o)
	return trades
}

// CancelOrder drops a resting order. It reports false if id is not resting.
func (ob *OrderBook) CancelOrder(id uuid.UUID) bool {
	for i := range ob.orders {
		if ob.orders[i].ID == id {
			ob.orders = append(ob.orders[:i], ob.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Orders returns a copy of the resting orders.
func (ob *OrderBook) Orders() []Order {
	out := make([]Order, len(ob.orders))
	copy(out, ob.orders)
	return out
}

func (ob *OrderBook) Side(side Side, commodity Commodity) []Order {
	return Filter(ob.orders, side, commodity)
}

// Best returns the order of side that would trade first for commodity: the highest
// bid or the lowest ask, oldest first on a tie.
func Best(orders []Order, side Side, commodity Commodity) (Order, bool) {
	// a probe on the other side lets bestCounterOrder pick for us
	idx := bestCounterOrder(orders, Order{Side: side.Opposite(), Commodity: commodity})
	if idx < 0 {
		return Order{}, false
	}
	return orders[idx], true
}

func (ob *OrderBook) BestBid(commodity Commodity) (Order, bool) {
	return Best(ob.orders, SideBuy, commodity)
}

func (ob *OrderBook) BestAsk(commodity Commodity) (Order, bool) {
	return Best(ob.orders, SideSell, commodity)
}
