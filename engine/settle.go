package engine

import (
	"context"

	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
	"github.com/whiskylabs/whisky-protocol-core/pkg/derive"
)

// SettleRequest is the oracle's seed reveal for one round.
type SettleRequest struct {
	User         string `json:"user"`
	Nonce        uint64 `json:"nonce"`
	RngSeed      string `json:"rng_seed"`
	NextSeedHash string `json:"next_seed_hash"`
}

// Settle resolves a round from the oracle's revealed seed: verifies the seed
// against the committed hash, derives the outcome, distributes fees, and
// funds the escrow with the payout. All failure checks run before the first
// transfer.
func (e *Engine) Settle(ctx context.Context, caller string, req SettleRequest) (*game.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if caller == "" || caller != cfg.OracleAddress {
		return nil, errors.New(errors.ErrOracleUnauthorized, "caller is not the oracle")
	}

	g, err := e.store.GetGame(ctx, derive.Game(req.User, req.Nonce))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load game")
	}
	if g == nil {
		return nil, errors.New(errors.ErrGameNotFound, "game not found")
	}
	if g.Status != game.StatusAwaitingResult {
		return nil, errors.New(errors.ErrResultNotRequested, "game is not awaiting a result")
	}
	if len(req.RngSeed) == 0 || len(req.RngSeed) > game.MaxSeedLength {
		return nil, errors.New(errors.ErrSeedTooLong, "rng seed length out of range")
	}
	if req.NextSeedHash == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "next seed hash is required")
	}
	if e.opts.VerifySeedChain && g.CommittedSeedHash != "" {
		if game.HashSeed(req.RngSeed) != g.CommittedSeedHash {
			return nil, errors.New(errors.ErrSeedHashMismatch, "revealed seed does not match commitment")
		}
	}

	pool, err := e.loadPool(ctx, g.Pool)
	if err != nil {
		return nil, err
	}

	hash := game.Hash(req.RngSeed, g.ClientSeed, g.Nonce)
	result := game.ResultIndex(hash, g.Bet)
	multiplier := game.MultiplierBps(g.Bet, int(result))
	payout, err := bps.Proportion(g.Wager, multiplier, bps.PerWhole)
	if err != nil {
		return nil, err
	}
	jackpotWon := g.JackpotProbabilityUbps > 0 && game.JackpotWon(hash, g.JackpotProbabilityUbps)

	escrow := derive.Escrow(g.User)
	vault := derive.PoolVault(g.Pool)
	jackpotVault := derive.JackpotVault(g.Pool)
	feeVault := derive.FeeVault()

	escrowBal, err := e.bank.Balance(ctx, escrow, g.Asset)
	if err != nil {
		return nil, err
	}
	if escrowBal < g.Wager {
		return nil, errors.New(errors.ErrInsufficientFunds, "escrow does not hold the wager")
	}
	residual := g.Wager - g.CreatorFee - g.ProtocolFee - g.JackpotFee
	liquidity, err := e.bank.Balance(ctx, vault, g.Asset)
	if err != nil {
		return nil, err
	}
	if liquidity+residual < payout {
		return nil, errors.New(errors.ErrInsufficientFunds, "pool cannot cover the payout")
	}

	// Wager split. The pool fee share stays inside the residual that lands
	// in the pool vault; it is tracked on the record for reporting only.
	if err := e.bank.Transfer(ctx, escrow, g.Creator, g.Asset, g.CreatorFee); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(ctx, escrow, feeVault, g.Asset, g.ProtocolFee); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(ctx, escrow, jackpotVault, g.Asset, g.JackpotFee); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(ctx, escrow, vault, g.Asset, residual); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(ctx, vault, escrow, g.Asset, payout); err != nil {
		return nil, err
	}

	var jackpotPayout uint64
	if jackpotWon {
		jackpotPayout, err = e.payJackpot(ctx, cfg, g, escrow, vault, feeVault, jackpotVault)
		if err != nil {
			return nil, err
		}
	}

	now := e.now().UTC()
	g.Status = game.StatusReady
	g.RngSeed = req.RngSeed
	g.NextSeedHash = req.NextSeedHash
	g.Result = result
	g.MultiplierBps = multiplier
	g.Payout = payout
	g.JackpotWon = jackpotWon
	g.JackpotPayout = jackpotPayout
	g.SettledAt = now
	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save game")
	}

	player, err := e.store.GetPlayer(ctx, g.User)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load player")
	}
	if player != nil {
		player.NextSeedHash = req.NextSeedHash
		if err := e.store.SavePlayer(ctx, player); err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save player")
		}
	}

	pool.Plays++
	if err := e.store.SavePool(ctx, pool); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save pool")
	}

	postLiquidity, err := e.bank.Balance(ctx, vault, g.Asset)
	if err != nil {
		return nil, err
	}
	e.sink.GameSettled(ctx, &game.GameSettled{
		User:                   g.User,
		Pool:                   g.Pool,
		Asset:                  g.Asset,
		Creator:                g.Creator,
		CreatorFee:             g.CreatorFee,
		ProtocolFee:            g.ProtocolFee,
		PoolFee:                g.PoolFee,
		JackpotFee:             g.JackpotFee,
		Wager:                  g.Wager,
		Payout:                 payout,
		MultiplierBps:          multiplier,
		JackpotProbabilityUbps: g.JackpotProbabilityUbps,
		JackpotWon:             jackpotWon,
		JackpotPayout:          jackpotPayout,
		Nonce:                  g.Nonce,
		ClientSeed:             g.ClientSeed,
		RngSeed:                g.RngSeed,
		NextSeedHash:           g.NextSeedHash,
		ResultIndex:            result,
		Bet:                    g.Bet,
		PoolLiquidity:          postLiquidity,
		Metadata:               g.Metadata,
	})
	e.log.Info().
		Str("user", g.User).
		Uint64("nonce", g.Nonce).
		Uint32("result", result).
		Uint64("payout", payout).
		Bool("jackpot", jackpotWon).
		Msg("game settled")
	return g, nil
}

// payJackpot splits the jackpot vault between the player, the bet creator,
// the pool and the protocol per the configured shares. Returns the player's
// cut, which lands in the escrow alongside the base payout.
func (e *Engine) payJackpot(ctx context.Context, cfg *game.ProtocolConfig, g *game.Game,
	escrow, vault, feeVault, jackpotVault string) (uint64, error) {

	balance, err := e.bank.Balance(ctx, jackpotVault, g.Asset)
	if err != nil {
		return 0, err
	}
	if balance == 0 {
		return 0, nil
	}

	userCut := bps.MustFee(balance, cfg.JackpotToUserBps)
	creatorCut := bps.MustFee(balance, cfg.JackpotToCreatorBps)
	poolCut := bps.MustFee(balance, cfg.JackpotToPoolBps)
	protoCut := bps.MustFee(balance, cfg.JackpotToProtoBps)

	if err := e.bank.Transfer(ctx, jackpotVault, escrow, g.Asset, userCut); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(ctx, jackpotVault, g.Creator, g.Asset, creatorCut); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(ctx, jackpotVault, vault, g.Asset, poolCut); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(ctx, jackpotVault, feeVault, g.Asset, protoCut); err != nil {
		return 0, err
	}
	return userCut, nil
}

// Claim pays the full escrow balance out to the player. Claiming a settled
// round with nothing to pay is a no-op, not an error.
func (e *Engine) Claim(ctx context.Context, user string, nonce uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGame(ctx, derive.Game(user, nonce))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrStoreError, "failed to load game")
	}
	if g == nil {
		return 0, errors.New(errors.ErrGameNotFound, "game not found")
	}
	if g.Status != game.StatusReady {
		return 0, errors.New(errors.ErrNotReadyToClaim, "game is not settled")
	}

	escrow := derive.Escrow(user)
	balance, err := e.bank.Balance(ctx, escrow, g.Asset)
	if err != nil {
		return 0, err
	}
	if balance == 0 {
		return 0, nil
	}
	if err := e.bank.Transfer(ctx, escrow, user, g.Asset, balance); err != nil {
		return 0, err
	}

	e.log.Info().Str("user", user).Uint64("nonce", nonce).Uint64("amount", balance).Msg("payout claimed")
	return balance, nil
}

// Expire voids a round the oracle never settled. Anyone may call it once the
// pending timeout has elapsed; the round resolves with zero payout and the
// escrowed wager becomes claimable by the player.
func (e *Engine) Expire(ctx context.Context, user string, nonce uint64) (*game.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGame(ctx, derive.Game(user, nonce))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load game")
	}
	if g == nil {
		return nil, errors.New(errors.ErrGameNotFound, "game not found")
	}
	if g.Status != game.StatusAwaitingResult {
		return nil, errors.New(errors.ErrResultNotRequested, "game is not awaiting a result")
	}
	now := e.now().UTC()
	if now.Before(g.StartedAt.Add(e.opts.PendingTimeout)) {
		return nil, errors.New(errors.ErrGameNotExpired, "pending timeout has not elapsed")
	}

	g.Status = game.StatusReady
	g.Expired = true
	g.Payout = 0
	g.SettledAt = now
	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save game")
	}

	e.log.Warn().Str("user", user).Uint64("nonce", nonce).Msg("game expired unsettled")
	return g, nil
}

// Close removes a finished game record. The round must be settled and its
// escrow emptied first.
func (e *Engine) Close(ctx context.Context, user string, nonce uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.store.GetGame(ctx, derive.Game(user, nonce))
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to load game")
	}
	if g == nil {
		return errors.New(errors.ErrGameNotFound, "game not found")
	}
	if g.Status == game.StatusAwaitingResult {
		return errors.New(errors.ErrGameInProgress, "game is awaiting a result")
	}
	balance, err := e.bank.Balance(ctx, derive.Escrow(user), g.Asset)
	if err != nil {
		return err
	}
	if balance > 0 {
		return errors.New(errors.ErrNotReadyToClaim, "escrow must be claimed before closing")
	}
	if err := e.store.DeleteGame(ctx, g.ID); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to delete game")
	}

	e.log.Info().Str("user", user).Uint64("nonce", nonce).Msg("game closed")
	return nil
}
