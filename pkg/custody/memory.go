package custody

import (
	"context"
	"math"
	"sync"

	"github.com/whiskylabs/whisky-protocol-core/errors"
)

// MemoryBank is an in-process custody service keyed by (account, asset).
// It backs local development and the engine test suites.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]map[string]uint64
}

// NewMemoryBank creates an empty in-memory bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[string]map[string]uint64)}
}

func (b *MemoryBank) get(account, asset string) uint64 {
	if accts, ok := b.balances[account]; ok {
		return accts[asset]
	}
	return 0
}

func (b *MemoryBank) set(account, asset string, amount uint64) {
	accts, ok := b.balances[account]
	if !ok {
		accts = make(map[string]uint64)
		b.balances[account] = accts
	}
	accts[asset] = amount
}

// Balance returns the balance of account in asset.
func (b *MemoryBank) Balance(ctx context.Context, account, asset string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.get(account, asset), nil
}

// Transfer moves amount between accounts, failing without effect when the
// source balance is insufficient.
func (b *MemoryBank) Transfer(ctx context.Context, from, to, asset string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.get(from, asset)
	if src < amount {
		return errors.NewWithDebug(errors.ErrInsufficientFunds, "insufficient funds",
			"account "+from)
	}
	dst := b.get(to, asset)
	if dst > math.MaxUint64-amount {
		return errors.New(errors.ErrMathOverflow, "destination balance overflow")
	}
	b.set(from, asset, src-amount)
	b.set(to, asset, dst+amount)
	return nil
}

// Mint credits amount of asset to the account.
func (b *MemoryBank) Mint(ctx context.Context, to, asset string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dst := b.get(to, asset)
	if dst > math.MaxUint64-amount {
		return errors.New(errors.ErrMathOverflow, "destination balance overflow")
	}
	b.set(to, asset, dst+amount)
	return nil
}

// Burn debits amount of asset from the account.
func (b *MemoryBank) Burn(ctx context.Context, from, asset string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.get(from, asset)
	if src < amount {
		return errors.NewWithDebug(errors.ErrInsufficientFunds, "insufficient funds",
			"account "+from)
	}
	b.set(from, asset, src-amount)
	return nil
}

var _ Service = (*MemoryBank)(nil)
