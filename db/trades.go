package db

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hakimelghazi/orbital-market/internal/engine"
)

const insertTradeSQL = `
INSERT INTO trades (id, location_id, order_id, seq, seller_id, buyer_id, commodity, amount, price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const listTradesByOrderSQL = `
SELECT seller_id, buyer_id, commodity, amount, price
FROM trades
WHERE order_id = $1
ORDER BY seq`

// Pool is the part of *pgxpool.Pool the trade store uses.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TradeStore appends executed transactions to the trades table.
type TradeStore struct {
	pool Pool
}

func NewTradeStore(pool Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// SaveTransactions writes every transaction produced by one placement in a single tx.
func (s *TradeStore) SaveTransactions(ctx context.Context, location, orderID uuid.UUID, txs []engine.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := insertTrades(ctx, tx, location, orderID, txs); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTrades(ctx context.Context, q execer, location, orderID uuid.UUID, txs []engine.Transaction) error {
	for i, tr := range txs {
		tradeID, err := newUUID()
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, insertTradeSQL,
			tradeID,
			pgUUID(location),
			pgUUID(orderID),
			int32(i),
			pgUUID(tr.Seller),
			pgUUID(tr.Buyer),
			tr.Commodity.String(),
			numericFromInt64(tr.Amount),
			numericFromInt64(tr.Price),
		)
		if err != nil {
			return fmt.Errorf("insert trade %d of order %s: %w", i, orderID, err)
		}
	}
	return nil
}

type tradeRow struct {
	Seller    pgtype.UUID
	Buyer     pgtype.UUID
	Commodity string
	Amount    pgtype.Numeric
	Price     pgtype.Numeric
}

// ListTradesByOrder returns the transactions an incoming order produced, in execution order.
func (s *TradeStore) ListTradesByOrder(ctx context.Context, orderID uuid.UUID) ([]engine.Transaction, error) {
	rows, err := s.pool.Query(ctx, listTradesByOrderSQL, pgUUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[tradeRow])
	if err != nil {
		return nil, fmt.Errorf("scan trades: %w", err)
	}
	out := make([]engine.Transaction, 0, len(recs))
	for _, r := range recs {
		tr, err := r.transaction()
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

func (r tradeRow) transaction() (engine.Transaction, error) {
	commodity, err := engine.ParseCommodity(r.Commodity)
	if err != nil {
		return engine.Transaction{}, err
	}
	amount, err := int64FromNumeric(r.Amount)
	if err != nil {
		return engine.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	price, err := int64FromNumeric(r.Price)
	if err != nil {
		return engine.Transaction{}, fmt.Errorf("price: %w", err)
	}
	return engine.Transaction{
		Seller:    uuid.UUID(r.Seller.Bytes),
		Buyer:     uuid.UUID(r.Buyer.Bytes),
		Commodity: commodity,
		Amount:    amount,
		Price:     price,
	}, nil
}

func newUUID() (pgtype.UUID, error) {
	uid, err := uuid.NewRandom()
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgUUID(uid), nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func numericFromInt64(v int64) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   big.NewInt(v),
		Valid: true,
	}
}

func int64FromNumeric(n pgtype.Numeric) (int64, error) {
	v, err := n.Int64Value()
	if err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, fmt.Errorf("null numeric")
	}
	return v.Int64, nil
}
