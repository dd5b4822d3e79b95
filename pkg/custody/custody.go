// Package custody defines the token custody boundary consumed by the
// settlement engine. Every operation is all-or-nothing: a failed transfer
// leaves both accounts untouched.
package custody

import "context"

// Service moves token balances between derived accounts. Amounts are
// unsigned 64-bit counts of smallest asset units.
type Service interface {
	// Balance returns the current balance of account in the given asset.
	Balance(ctx context.Context, account, asset string) (uint64, error)

	// Transfer moves amount from one account to another atomically.
	Transfer(ctx context.Context, from, to, asset string, amount uint64) error

	// Mint creates amount of asset in the target account. Used for LP
	// share issuance.
	Mint(ctx context.Context, to, asset string, amount uint64) error

	// Burn destroys amount of asset held by the account.
	Burn(ctx context.Context, from, asset string, amount uint64) error
}
