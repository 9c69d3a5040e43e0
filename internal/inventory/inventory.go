// Package inventory settles executed transactions against trader holdings.
package inventory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hakimelghazi/orbital-market/internal/engine"
)

var ErrUnknownTrader = errors.New("unknown trader")

// Inventory is a capacity-bounded store of goods.
type Inventory struct {
	capacity int64
	items    map[engine.Commodity]int64
}

func New(capacity int64) *Inventory {
	return &Inventory{capacity: capacity, items: make(map[engine.Commodity]int64)}
}

func (inv *Inventory) Capacity() int64 { return inv.capacity }

func (inv *Inventory) Get(c engine.Commodity) int64 { return inv.items[c] }

func (inv *Inventory) SpaceLeft() int64 {
	var used int64
	for _, n := range inv.items {
		used += n
	}
	return max(inv.capacity-used, 0)
}

// Add stores up to amount units and returns how many fit.
func (inv *Inventory) Add(c engine.Commodity, amount int64) int64 {
	amount = min(amount, inv.SpaceLeft())
	if amount <= 0 {
		return 0
	}
	inv.items[c] += amount
	return amount
}

// Remove takes up to amount units and returns the shortfall.
func (inv *Inventory) Remove(c engine.Commodity, amount int64) int64 {
	have := inv.items[c]
	if amount <= have {
		inv.items[c] = have - amount
		return 0
	}
	inv.items[c] = 0
	return amount - have
}

type Account struct {
	Goods   *Inventory
	Credits int64
}

// Ledger holds the accounts transactions settle against.
type Ledger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[uuid.UUID]*Account)}
}

func (l *Ledger) Open(trader uuid.UUID, capacity, credits int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[trader] = &Account{Goods: New(capacity), Credits: credits}
}

// Deposit adds goods to trader's holdings outside any trade and returns how many fit.
func (l *Ledger) Deposit(trader uuid.UUID, c engine.Commodity, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[trader]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTrader, trader)
	}
	return acc.Goods.Add(c, amount), nil
}

// Balance returns the credits and holdings of c for trader.
func (l *Ledger) Balance(trader uuid.UUID, c engine.Commodity) (credits, goods int64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[trader]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownTrader, trader)
	}
	return acc.Credits, acc.Goods.Get(c), nil
}

// Settlement reports anything Apply could not move in full.
type Settlement struct {
	Shortfall int64 // seller lacked these units
	Overflow  int64 // buyer had no room for these units
}

// Apply moves tx's goods from seller to buyer and its value from buyer to seller.
// Neither side is touched if either trader is unknown.
func (l *Ledger) Apply(tx engine.Transaction) (Settlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seller, ok := l.accounts[tx.Seller]
	if !ok {
		return Settlement{}, fmt.Errorf("%w: seller %s", ErrUnknownTrader, tx.Seller)
	}
	buyer, ok := l.accounts[tx.Buyer]
	if !ok {
		return Settlement{}, fmt.Errorf("%w: buyer %s", ErrUnknownTrader, tx.Buyer)
	}

	var s Settlement
	s.Shortfall = seller.Goods.Remove(tx.Commodity, tx.Amount)
	s.Overflow = tx.Amount - buyer.Goods.Add(tx.Commodity, tx.Amount)

	seller.Credits += tx.Value()
	buyer.Credits -= tx.Value()
	return s, nil
}

// ApplyAll settles txs in order, stopping at the first error.
func (l *Ledger) ApplyAll(txs []engine.Transaction) error {
	for i, tx := range txs {
		if _, err := l.Apply(tx); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}
