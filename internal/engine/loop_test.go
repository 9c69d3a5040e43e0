package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingStore struct {
	mu    sync.Mutex
	saved map[uuid.UUID][]Transaction
	err   error
}

func (s *recordingStore) SaveTransactions(_ context.Context, _ uuid.UUID, orderID uuid.UUID, txs []Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[uuid.UUID][]Transaction)
	}
	s.saved[orderID] = append(s.saved[orderID], txs...)
	return s.err
}

func startEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	eng := NewEngine(NewOrderBook(testLocation, Position{}), 16, opts...)
	go eng.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-eng.Done()
	})
	return eng
}

func TestEnginePlaceAndFill(t *testing.T) {
	store := &recordingStore{}
	eng := startEngine(t, WithTradeStore(store))
	ctx := context.Background()

	maker := sell(1, 10, 100)
	res, err := eng.Place(ctx, maker)
	if err != nil {
		t.Fatalf("place maker: %v", err)
	}
	if res.Filled || res.Remainder == nil || res.Remainder.ID != maker.ID {
		t.Fatalf("expected maker to rest, got %+v", res)
	}

	taker := buy(2, 4, 101)
	res, err = eng.Place(ctx, taker)
	if err != nil {
		t.Fatalf("place taker: %v", err)
	}
	if !res.Filled || res.Remainder != nil {
		t.Fatalf("expected taker filled, got %+v", res)
	}
	if len(res.Transactions) != 1 || res.Transactions[0].Price != 100 || res.Transactions[0].Amount != 4 {
		t.Fatalf("unexpected transactions %+v", res.Transactions)
	}

	store.mu.Lock()
	saved := store.saved[taker.ID]
	store.mu.Unlock()
	if len(saved) != 1 {
		t.Fatalf("expected transaction to be stored, got %+v", saved)
	}

	orders, err := eng.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(orders) != 1 || orders[0].Amount != 6 {
		t.Fatalf("expected 6 left on maker, got %+v", orders)
	}
}

func TestEngineStoreFailureKeepsMatch(t *testing.T) {
	eng := startEngine(t, WithTradeStore(&recordingStore{err: errors.New("db down")}))
	ctx := context.Background()

	if _, err := eng.Place(ctx, sell(1, 10, 100)); err != nil {
		t.Fatalf("place: %v", err)
	}
	res, err := eng.Place(ctx, buy(2, 10, 100))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !res.Filled {
		t.Fatalf("expected match despite store failure")
	}
}

func TestEngineCancel(t *testing.T) {
	eng := startEngine(t)
	ctx := context.Background()

	o := buy(1, 10, 100)
	if _, err := eng.Place(ctx, o); err != nil {
		t.Fatalf("place: %v", err)
	}
	ok, err := eng.Cancel(ctx, o.ID)
	if err != nil || !ok {
		t.Fatalf("expected cancel to succeed, got %v %v", ok, err)
	}
	ok, err = eng.Cancel(ctx, o.ID)
	if err != nil || ok {
		t.Fatalf("expected second cancel to miss, got %v %v", ok, err)
	}
}

func TestEngineRejectsForeignLocation(t *testing.T) {
	eng := startEngine(t)
	o := buy(1, 10, 100)
	o.Location = id(99)

	if _, err := eng.Place(context.Background(), o); err == nil {
		t.Fatalf("expected error for order at another location")
	}
}

func TestEngineStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := NewEngine(NewOrderBook(testLocation, Position{}), 0)
	go eng.Run(ctx)
	cancel()
	<-eng.Done()

	if _, err := eng.Snapshot(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestEngineHonoursContext(t *testing.T) {
	// never started, so nothing drains the unbuffered command channel
	eng := NewEngine(NewOrderBook(testLocation, Position{}), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := eng.Snapshot(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExchangeRoutesByLocation(t *testing.T) {
	x := NewExchange(8)
	a, b := id(101), id(102)
	if _, err := x.Open(Market{Name: "Alpha", Location: a}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := x.Open(Market{Name: "Beta", Location: b}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := x.Open(Market{Name: "Again", Location: a}); err == nil {
		t.Fatalf("expected duplicate market to fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- x.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	o1 := atLocation(sell(1, 10, 10), 101, Position{})
	o2 := atLocation(buy(2, 10, 10), 102, Position{})
	if _, err := x.Place(ctx, o1); err != nil {
		t.Fatalf("place: %v", err)
	}
	res, err := x.Place(ctx, o2)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(res.Transactions) != 0 {
		t.Fatalf("orders at different markets must not match")
	}

	orders, err := x.Orders(ctx)
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != o1.ID || orders[1].ID != o2.ID {
		t.Fatalf("unexpected orders %+v", orders)
	}

	if _, err := x.Place(ctx, atLocation(buy(3, 1, 1), 103, Position{})); err == nil {
		t.Fatalf("expected unknown market error")
	}
	if names := x.Markets(); len(names) != 2 || names[0].Name != "Alpha" {
		t.Fatalf("unexpected markets %+v", names)
	}
}
