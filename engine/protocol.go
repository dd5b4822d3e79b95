package engine

import (
	"context"

	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
	"github.com/whiskylabs/whisky-protocol-core/pkg/derive"
)

// InitProtocol creates the protocol policy singleton with default values and
// the given authority. It fails if the protocol is already initialized.
func (e *Engine) InitProtocol(ctx context.Context, authority string) (*game.ProtocolConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.store.GetProtocolConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load protocol config")
	}
	if existing != nil {
		return nil, errors.New(errors.ErrConflict, "protocol already initialized")
	}

	cfg := game.DefaultProtocolConfig(authority)
	if err := e.store.SaveProtocolConfig(ctx, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save protocol config")
	}

	e.log.Info().Str("authority", authority).Msg("protocol initialized")
	return cfg, nil
}

// SetProtocolConfig replaces the protocol policy. Only the current authority
// may call it, and every field must pass the bounds checks before anything
// is written.
func (e *Engine) SetProtocolConfig(ctx context.Context, caller string, cfg *game.ProtocolConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.loadConfig(ctx)
	if err != nil {
		return err
	}
	if caller != current.Authority {
		return errors.New(errors.ErrOwnerUnauthorized, "caller is not the protocol authority")
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := e.store.SaveProtocolConfig(ctx, cfg); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to save protocol config")
	}

	e.log.Info().Str("authority", cfg.Authority).Msg("protocol config updated")
	return nil
}

// DistributeFees sweeps the protocol fee vault to the configured
// distribution recipient and returns the amount moved.
func (e *Engine) DistributeFees(ctx context.Context, caller, asset string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return 0, err
	}
	if caller != cfg.Authority {
		return 0, errors.New(errors.ErrOwnerUnauthorized, "caller is not the protocol authority")
	}

	vault := derive.FeeVault()
	balance, err := e.bank.Balance(ctx, vault, asset)
	if err != nil {
		return 0, err
	}
	if balance == 0 {
		return 0, nil
	}
	if err := e.bank.Transfer(ctx, vault, cfg.DistributionRecipient, asset, balance); err != nil {
		return 0, err
	}

	e.log.Info().
		Str("asset", asset).
		Uint64("amount", balance).
		Str("recipient", cfg.DistributionRecipient).
		Msg("protocol fees distributed")
	return balance, nil
}

func validateConfig(cfg *game.ProtocolConfig) error {
	if cfg.Authority == "" {
		return errors.New(errors.ErrConfigOutOfBounds, "authority must be set")
	}
	bounded := map[string]uint64{
		"protocol_fee_bps":      cfg.ProtocolFeeBps,
		"pool_fee_bps":          cfg.PoolFeeBps,
		"max_house_edge_bps":    cfg.MaxHouseEdgeBps,
		"max_creator_fee_bps":   cfg.MaxCreatorFeeBps,
		"max_payout_bps":        cfg.MaxPayoutBps,
		"pool_withdraw_fee_bps": cfg.PoolWithdrawFeeBps,
	}
	for name, v := range bounded {
		if v > bps.PerWhole {
			return errors.NewWithDebug(errors.ErrConfigOutOfBounds,
				"fee rate exceeds 100%", name)
		}
	}
	split := cfg.JackpotToUserBps + cfg.JackpotToCreatorBps + cfg.JackpotToPoolBps + cfg.JackpotToProtoBps
	if split > bps.PerWhole {
		return errors.New(errors.ErrConfigOutOfBounds, "jackpot payout split exceeds 100%")
	}
	if cfg.JackpotBaseUbps > game.MaxJackpotProbabilityUbps {
		return errors.New(errors.ErrConfigOutOfBounds, "jackpot base probability exceeds maximum")
	}
	return nil
}

func (e *Engine) loadConfig(ctx context.Context) (*game.ProtocolConfig, error) {
	cfg, err := e.store.GetProtocolConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load protocol config")
	}
	if cfg == nil {
		return nil, errors.New(errors.ErrNotFound, "protocol not initialized")
	}
	return cfg, nil
}

func (e *Engine) loadPool(ctx context.Context, poolID string) (*game.Pool, error) {
	pool, err := e.store.GetPool(ctx, poolID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load pool")
	}
	if pool == nil {
		return nil, errors.New(errors.ErrPoolNotFound, "pool not found")
	}
	return pool, nil
}
