package engine

import (
	"context"

	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
	"github.com/whiskylabs/whisky-protocol-core/pkg/derive"
)

// CreatePool creates a liquidity pool for (asset, authority). Pool identity
// is derived from the pair, so the same authority cannot create the same
// pool twice.
func (e *Engine) CreatePool(ctx context.Context, authority, asset string) (*game.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.PoolCreationAllowed {
		return nil, errors.New(errors.ErrPoolCreationNotAllowed, "pool creation is disabled")
	}
	if asset == "" || authority == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "asset and authority are required")
	}

	id := derive.Pool(asset, authority)
	existing, err := e.store.GetPool(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load pool")
	}
	if existing != nil {
		return nil, errors.New(errors.ErrPoolExists, "pool already exists")
	}

	pool := &game.Pool{
		ID:        id,
		Authority: authority,
		Asset:     asset,
		MinWager:  game.DefaultPoolMinWager,
		CreatedAt: e.now().UTC(),
	}
	if err := e.store.SavePool(ctx, pool); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save pool")
	}

	e.log.Info().Str("pool", id).Str("asset", asset).Str("authority", authority).Msg("pool created")
	return pool, nil
}

// PoolParams are the owner-adjustable pool settings.
type PoolParams struct {
	MinWager uint64 `json:"min_wager"`

	CustomPoolFee       bool   `json:"custom_pool_fee"`
	CustomPoolFeeBps    uint64 `json:"custom_pool_fee_bps"`
	CustomMaxPayout     bool   `json:"custom_max_payout"`
	CustomMaxPayoutBps  uint64 `json:"custom_max_payout_bps"`
	CustomMaxCreatorFee bool   `json:"custom_max_creator_fee"`
	CustomMaxCreatorBps uint64 `json:"custom_max_creator_fee_bps"`

	WhitelistRequired bool     `json:"deposit_whitelist_required"`
	DepositWhitelist  []string `json:"deposit_whitelist,omitempty"`
}

// SetPoolParams replaces the owner-adjustable settings of a pool. Only the
// pool authority may call it.
func (e *Engine) SetPoolParams(ctx context.Context, caller, poolID string, params PoolParams) (*game.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if caller != pool.Authority {
		return nil, errors.New(errors.ErrOwnerUnauthorized, "caller is not the pool authority")
	}
	if params.CustomPoolFeeBps > bps.PerWhole ||
		params.CustomMaxPayoutBps > bps.PerWhole ||
		params.CustomMaxCreatorBps > bps.PerWhole {
		return nil, errors.New(errors.ErrConfigOutOfBounds, "fee rate exceeds 100%")
	}
	if params.MinWager < game.MinWager {
		return nil, errors.New(errors.ErrConfigOutOfBounds, "pool minimum wager below protocol floor")
	}

	pool.MinWager = params.MinWager
	pool.CustomPoolFee = params.CustomPoolFee
	pool.CustomPoolFeeBps = params.CustomPoolFeeBps
	pool.CustomMaxPayout = params.CustomMaxPayout
	pool.CustomMaxPayoutBps = params.CustomMaxPayoutBps
	pool.CustomMaxCreatorFee = params.CustomMaxCreatorFee
	pool.CustomMaxCreatorBps = params.CustomMaxCreatorBps
	pool.WhitelistRequired = params.WhitelistRequired
	pool.DepositWhitelist = params.DepositWhitelist

	if err := e.store.SavePool(ctx, pool); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save pool")
	}

	e.log.Info().Str("pool", poolID).Msg("pool params updated")
	return pool, nil
}

// Deposit adds liquidity to a pool and mints LP shares at the current
// liquidity/supply ratio. The first deposit bootstraps at one share per unit.
func (e *Engine) Deposit(ctx context.Context, user, poolID string, amount uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return 0, err
	}
	if !cfg.DepositAllowed {
		return 0, errors.New(errors.ErrDepositNotAllowed, "pool deposits are disabled")
	}
	pool, err := e.loadPool(ctx, poolID)
	if err != nil {
		return 0, err
	}
	if !pool.Whitelisted(user) {
		return 0, errors.New(errors.ErrNotWhitelisted, "user is not on the deposit whitelist")
	}
	if amount == 0 {
		return 0, errors.New(errors.ErrInvalidRequest, "deposit amount must be positive")
	}

	vault := derive.PoolVault(poolID)
	liquidity, err := e.bank.Balance(ctx, vault, pool.Asset)
	if err != nil {
		return 0, err
	}
	shares, err := game.SharesForDeposit(amount, liquidity, pool.ShareSupply)
	if err != nil {
		return 0, err
	}

	if err := e.bank.Transfer(ctx, user, vault, pool.Asset, amount); err != nil {
		return 0, err
	}
	if err := e.bank.Mint(ctx, user, derive.ShareAsset(poolID), shares); err != nil {
		return 0, err
	}

	pool.ShareSupply += shares
	if err := e.store.SavePool(ctx, pool); err != nil {
		return 0, errors.Wrap(err, errors.ErrStoreError, "failed to save pool")
	}

	e.sink.PoolChanged(ctx, &game.PoolChange{
		User:          user,
		Pool:          poolID,
		Asset:         pool.Asset,
		Action:        game.PoolActionDeposit,
		Amount:        amount,
		PostLiquidity: liquidity + amount,
		ShareSupply:   pool.ShareSupply,
		Timestamp:     e.now().UTC(),
	})
	e.log.Info().Str("pool", poolID).Str("user", user).
		Uint64("amount", amount).Uint64("shares", shares).Msg("pool deposit")
	return shares, nil
}

// Withdraw burns LP shares and pays out the proportional slice of pool
// liquidity, minus the withdraw fee which stays in the pool for the
// remaining providers.
func (e *Engine) Withdraw(ctx context.Context, user, poolID string, shares uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return 0, err
	}
	if !cfg.WithdrawAllowed {
		return 0, errors.New(errors.ErrWithdrawNotAllowed, "pool withdrawals are disabled")
	}
	pool, err := e.loadPool(ctx, poolID)
	if err != nil {
		return 0, err
	}
	if shares == 0 {
		return 0, errors.New(errors.ErrInvalidRequest, "share amount must be positive")
	}
	if shares > pool.ShareSupply {
		return 0, errors.New(errors.ErrInvalidRequest, "share amount exceeds supply")
	}

	vault := derive.PoolVault(poolID)
	liquidity, err := e.bank.Balance(ctx, vault, pool.Asset)
	if err != nil {
		return 0, err
	}
	gross, err := game.AmountForWithdraw(shares, liquidity, pool.ShareSupply)
	if err != nil {
		return 0, err
	}
	fee, err := bps.Fee(gross, cfg.PoolWithdrawFeeBps)
	if err != nil {
		return 0, err
	}
	out := gross - fee

	if err := e.bank.Burn(ctx, user, derive.ShareAsset(poolID), shares); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(ctx, vault, user, pool.Asset, out); err != nil {
		return 0, err
	}

	pool.ShareSupply -= shares
	if err := e.store.SavePool(ctx, pool); err != nil {
		return 0, errors.Wrap(err, errors.ErrStoreError, "failed to save pool")
	}

	e.sink.PoolChanged(ctx, &game.PoolChange{
		User:          user,
		Pool:          poolID,
		Asset:         pool.Asset,
		Action:        game.PoolActionWithdraw,
		Amount:        out,
		PostLiquidity: liquidity - out,
		ShareSupply:   pool.ShareSupply,
		Timestamp:     e.now().UTC(),
	})
	e.log.Info().Str("pool", poolID).Str("user", user).
		Uint64("shares", shares).Uint64("amount", out).Msg("pool withdraw")
	return out, nil
}
