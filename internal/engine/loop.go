package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrStopped = errors.New("engine stopped")

// TradeStore records executed transactions. Implementations must not retain txs.
type TradeStore interface {
	SaveTransactions(ctx context.Context, location, orderID uuid.UUID, txs []Transaction) error
}

// Engine owns one market's book and applies commands to it from a single goroutine.
type Engine struct {
	book  *OrderBook
	cmds  chan Command
	done  chan struct{}
	store TradeStore
	log   zerolog.Logger
}

type Option func(*Engine)

func WithTradeStore(s TradeStore) Option {
	return func(e *Engine) { e.store = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(book *OrderBook, buffer int, opts ...Option) *Engine {
	e := &Engine{
		book: book,
		cmds: make(chan Command, buffer),
		done: make(chan struct{}),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("location", book.Location().String()).Logger()
	return e
}

func (e *Engine) Location() uuid.UUID { return e.book.Location() }
func (e *Engine) Position() Position  { return e.book.Position() }

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	for {
		select {
		case cmd := <-e.cmds:
			switch cmd.Type {
			case CmdPlace:
				cmd.Resp <- e.place(ctx, cmd.Order)
			case CmdCancel:
				ok := e.book.CancelOrder(cmd.ID)
				e.log.Debug().Str("order", cmd.ID.String()).Bool("found", ok).Msg("cancel")
				cmd.Resp <- cancelResult{ok: ok}
			case CmdSnapshot:
				cmd.Resp <- e.book.Orders()
			}

		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) place(ctx context.Context, o Order) *PlaceResult {
	trades := e.book.Place(o)
	res := &PlaceResult{Transactions: trades, Filled: true}
	for _, rest := range e.book.orders {
		if rest.ID == o.ID {
			res.Filled = false
			res.Remainder = &rest
			break
		}
	}

	e.log.Debug().
		Str("order", o.ID.String()).
		Str("side", string(o.Side)).
		Stringer("commodity", o.Commodity).
		Int64("amount", o.Amount).
		Int64("price", o.Price).
		Int("trades", len(trades)).
		Bool("filled", res.Filled).
		Msg("place")

	if len(trades) > 0 && e.store != nil {
		// a failed write never undoes the match; the caller still gets its result
		if err := e.store.SaveTransactions(ctx, e.book.Location(), o.ID, trades); err != nil {
			e.log.Error().Err(err).Str("order", o.ID.String()).Msg("persist transactions failed")
		}
	}
	return res
}

// Place submits o and waits for the match result. A non-positive amount panics
// in the caller's goroutine.
func (e *Engine) Place(ctx context.Context, o Order) (*PlaceResult, error) {
	mustBeLive(o)
	if o.Location != e.book.Location() {
		return nil, fmt.Errorf("order %s is for location %s, not %s", o.ID, o.Location, e.book.Location())
	}
	resp, err := e.send(ctx, Command{Type: CmdPlace, Order: o})
	if err != nil {
		return nil, err
	}
	return resp.(*PlaceResult), nil
}

// Cancel removes a resting order, reporting whether it was found.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	resp, err := e.send(ctx, Command{Type: CmdCancel, ID: id})
	if err != nil {
		return false, err
	}
	return resp.(cancelResult).ok, nil
}

// Snapshot returns a copy of the resting orders in arrival order.
func (e *Engine) Snapshot(ctx context.Context) ([]Order, error) {
	resp, err := e.send(ctx, Command{Type: CmdSnapshot})
	if err != nil {
		return nil, err
	}
	return resp.([]Order), nil
}

func (e *Engine) send(ctx context.Context, cmd Command) (any, error) {
	cmd.Resp = make(chan any, 1)
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-cmd.Resp:
		return resp, nil
	case <-e.done:
		select {
		case resp := <-cmd.Resp:
			return resp, nil
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
