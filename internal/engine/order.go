package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid side %q", s)
	}
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		panic(fmt.Sprintf("engine: unknown side %q", string(s)))
	}
}

// Commodity identifies a tradable good. Orders only ever match within one commodity.
type Commodity int

const (
	Food Commodity = iota
	Water
	Fuel
	HydrogenTanks
)

var commodityNames = [...]string{
	Food:          "Food",
	Water:         "Water",
	Fuel:          "Fuel",
	HydrogenTanks: "HydrogenTanks",
}

// Commodities lists every known commodity in declaration order.
func Commodities() []Commodity {
	return []Commodity{Food, Water, Fuel, HydrogenTanks}
}

func (c Commodity) String() string {
	if c < 0 || int(c) >= len(commodityNames) {
		return fmt.Sprintf("Commodity(%d)", int(c))
	}
	return commodityNames[c]
}

func ParseCommodity(s string) (Commodity, error) {
	s = strings.TrimSpace(s)
	for i, name := range commodityNames {
		if strings.EqualFold(name, s) {
			return Commodity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown commodity %q", s)
}

func (c Commodity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Commodity) UnmarshalText(b []byte) error {
	parsed, err := ParseCommodity(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Position is a point in the simulation plane.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Position) Distance(other Position) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

type Order struct {
	ID        uuid.UUID
	Side      Side
	Commodity Commodity
	Trader    uuid.UUID // buyer for BUY, seller for SELL
	Location  uuid.UUID // market the order rests at
	Position  Position  // of Location
	Amount    int64     // unfilled
	Price     int64     // limit price
}

func NewBuyOrder(commodity Commodity, buyer, location uuid.UUID, pos Position, amount, price int64) Order {
	return newOrder(SideBuy, commodity, buyer, location, pos, amount, price)
}

func NewSellOrder(commodity Commodity, seller, location uuid.UUID, pos Position, amount, price int64) Order {
	return newOrder(SideSell, commodity, seller, location, pos, amount, price)
}

func newOrder(side Side, commodity Commodity, trader, location uuid.UUID, pos Position, amount, price int64) Order {
	o := Order{
		ID:        uuid.New(),
		Side:      side,
		Commodity: commodity,
		Trader:    trader,
		Location:  location,
		Position:  pos,
		Amount:    amount,
		Price:     price,
	}
	mustBeLive(o)
	return o
}

// mustBeLive panics if o cannot legally sit in a book.
func mustBeLive(o Order) {
	if o.Amount <= 0 {
		panic(fmt.Sprintf("engine: order %s has non-positive amount %d", o.ID, o.Amount))
	}
	if o.Side != SideBuy && o.Side != SideSell {
		panic(fmt.Sprintf("engine: order %s has unknown side %q", o.ID, string(o.Side)))
	}
}

// Transaction records one execution between a resting and an incoming order.
type Transaction struct {
	Seller    uuid.UUID `json:"seller"`
	Buyer     uuid.UUID `json:"buyer"`
	Commodity Commodity `json:"commodity"`
	Amount    int64     `json:"amount"`
	Price     int64     `json:"price"`
}

// Value is the credit amount moving from buyer to seller.
func (t Transaction) Value() int64 {
	return t.Amount * t.Price
}
