package engine

import (
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"
)

func drawOrder(t *rapid.T, label string) Order {
	side := rapid.SampledFrom([]Side{SideBuy, SideSell}).Draw(t, label+"Side")
	commodity := rapid.SampledFrom([]Commodity{Food, Water}).Draw(t, label+"Commodity")
	return Order{
		ID:        uuid.New(),
		Side:      side,
		Commodity: commodity,
		Trader:    id(rapid.ByteRange(0, 5).Draw(t, label+"Trader")),
		Location:  testLocation,
		Amount:    rapid.Int64Range(1, 50).Draw(t, label+"Amount"),
		Price:     rapid.Int64Range(1, 20).Draw(t, label+"Price"),
	}
}

// drawBook builds a book by replaying random orders, so it never crosses.
func drawBook(t *rapid.T) []Order {
	var book []Order
	n := rapid.IntRange(0, 20).Draw(t, "n")
	for i := 0; i < n; i++ {
		book, _ = Resolve(book, drawOrder(t, "rest"))
	}
	return book
}

func totalAmount(orders []Order, side Side, commodity Commodity) int64 {
	var sum int64
	for _, o := range orders {
		if o.Side == side && o.Commodity == commodity {
			sum += o.Amount
		}
	}
	return sum
}

func TestPropertyAmountIsConserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := drawBook(t)
		in := drawOrder(t, "in")

		after, trades := Resolve(book, in)

		var traded int64
		for _, tr := range trades {
			if tr.Amount <= 0 {
				t.Fatalf("non-positive transaction %+v", tr)
			}
			if tr.Commodity != in.Commodity {
				t.Fatalf("transaction for %v from %v order", tr.Commodity, in.Commodity)
			}
			traded += tr.Amount
		}

		for _, c := range []Commodity{Food, Water} {
			for _, s := range []Side{SideBuy, SideSell} {
				before := totalAmount(book, s, c)
				if in.Side == s && in.Commodity == c {
					before += in.Amount
				}
				want := before
				if in.Commodity == c {
					want -= traded
				}
				if got := totalAmount(after, s, c); got != want {
					t.Fatalf("%v %v: amount %d after resolve, want %d", s, c, got, want)
				}
			}
		}
	})
}

func TestPropertyBookNeverCrosses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := drawBook(t)
		for _, c := range []Commodity{Food, Water} {
			var maxBid, minAsk int64 = -1, -1
			for _, o := range book {
				if o.Commodity != c {
					continue
				}
				if o.Amount <= 0 {
					t.Fatalf("resting order with amount %d", o.Amount)
				}
				if o.Side == SideBuy && o.Price > maxBid {
					maxBid = o.Price
				}
				if o.Side == SideSell && (minAsk < 0 || o.Price < minAsk) {
					minAsk = o.Price
				}
			}
			if maxBid >= 0 && minAsk >= 0 && maxBid >= minAsk {
				t.Fatalf("%v book crossed: bid %d >= ask %d", c, maxBid, minAsk)
			}
		}
	})
}

func TestPropertyExecutionAtRestingPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := drawBook(t)
		in := drawOrder(t, "in")

		_, trades := Resolve(book, in)

		for _, tr := range trades {
			if in.Side == SideBuy && tr.Price > in.Price {
				t.Fatalf("buy limit %d paid %d", in.Price, tr.Price)
			}
			if in.Side == SideSell && tr.Price < in.Price {
				t.Fatalf("sell limit %d received %d", in.Price, tr.Price)
			}
			found := false
			for _, o := range book {
				if o.Side != in.Side && o.Commodity == in.Commodity && o.Price == tr.Price {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("transaction price %d is not a resting price", tr.Price)
			}
		}
	})
}
