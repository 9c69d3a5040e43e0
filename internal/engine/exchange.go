package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Market names one engine in an Exchange.
type Market struct {
	Name     string
	Location uuid.UUID
	Position Position
}

// Exchange is the set of markets in a simulation, one engine per location.
// Books never interact, so engines run independently.
type Exchange struct {
	mu      sync.RWMutex
	buffer  int
	opts    []Option
	markets map[uuid.UUID]Market
	engines map[uuid.UUID]*Engine
}

func NewExchange(buffer int, opts ...Option) *Exchange {
	return &Exchange{
		buffer:  buffer,
		opts:    opts,
		markets: make(map[uuid.UUID]Market),
		engines: make(map[uuid.UUID]*Engine),
	}
}

// Open registers a market. It must be called before Run.
func (x *Exchange) Open(m Market) (*Engine, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, dup := x.engines[m.Location]; dup {
		return nil, fmt.Errorf("market %s already open", m.Location)
	}
	eng := NewEngine(NewOrderBook(m.Location, m.Position), x.buffer, x.opts...)
	x.markets[m.Location] = m
	x.engines[m.Location] = eng
	return eng, nil
}

func (x *Exchange) Engine(location uuid.UUID) (*Engine, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	eng, ok := x.engines[location]
	return eng, ok
}

// Markets lists the open markets sorted by name.
func (x *Exchange) Markets() []Market {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Market, 0, len(x.markets))
	for _, m := range x.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Location.String() < out[j].Location.String()
	})
	return out
}

// Place routes o to the engine for o.Location.
func (x *Exchange) Place(ctx context.Context, o Order) (*PlaceResult, error) {
	eng, ok := x.Engine(o.Location)
	if !ok {
		return nil, fmt.Errorf("no market at %s", o.Location)
	}
	return eng.Place(ctx, o)
}

// Orders gathers the resting orders of every market, markets in Markets order.
func (x *Exchange) Orders(ctx context.Context) ([]Order, error) {
	var all []Order
	for _, m := range x.Markets() {
		eng, _ := x.Engine(m.Location)
		orders, err := eng.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", m.Name, err)
		}
		all = append(all, orders...)
	}
	return all, nil
}

// Run drives every engine until ctx is done.
func (x *Exchange) Run(ctx context.Context) error {
	x.mu.RLock()
	engines := make([]*Engine, 0, len(x.engines))
	for _, eng := range x.engines {
		engines = append(engines, eng)
	}
	x.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, eng := range engines {
		eng := eng
		g.Go(func() error {
			eng.Run(gctx)
			return nil
		})
	}
	return g.Wait()
}
