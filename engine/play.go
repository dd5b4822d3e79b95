package engine

import (
	"context"

	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
	"github.com/whiskylabs/whisky-protocol-core/pkg/derive"
)

// PlayRequest carries everything a player submits to start a round.
type PlayRequest struct {
	User          string   `json:"user"`
	Pool          string   `json:"pool"`
	Creator       string   `json:"creator"`
	Bet           []uint32 `json:"bet"`
	Wager         uint64   `json:"wager"`
	ClientSeed    string   `json:"client_seed"`
	CreatorFeeBps uint64   `json:"creator_fee_bps"`
	JackpotFeeBps uint64   `json:"jackpot_fee_bps"`
	Metadata      string   `json:"metadata,omitempty"`
}

// PlayGame validates a wager, escrows it, and opens a round awaiting the
// oracle. Every check runs before the wager moves. Leftover winnings from
// the player's previous round are claimed to the player first.
func (e *Engine) PlayGame(ctx context.Context, req PlayRequest) (*game.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.PlayingAllowed {
		return nil, errors.New(errors.ErrPlaysNotAllowed, "playing is disabled")
	}
	pool, err := e.loadPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}

	if err := game.ValidateBet(req.Bet); err != nil {
		return nil, err
	}
	if len(req.ClientSeed) > game.MaxSeedLength {
		return nil, errors.New(errors.ErrSeedTooLong, "client seed too long")
	}
	if len(req.Metadata) > game.MaxMetadataLength {
		return nil, errors.New(errors.ErrMetadataTooLong, "metadata too long")
	}
	if err := game.ValidateWager(req.Wager, pool.MinWager); err != nil {
		return nil, err
	}
	if req.CreatorFeeBps > pool.EffectiveMaxCreatorFeeBps(cfg) {
		return nil, errors.New(errors.ErrCreatorFeeTooHigh, "creator fee exceeds maximum")
	}
	if err := game.ValidateHouseEdge(req.Bet, cfg.MaxHouseEdgeBps); err != nil {
		return nil, err
	}

	poolFeeBps := pool.EffectivePoolFeeBps(cfg)
	if req.CreatorFeeBps+cfg.ProtocolFeeBps+req.JackpotFeeBps+poolFeeBps > bps.PerWhole {
		return nil, errors.New(errors.ErrInvalidRequest, "combined fees exceed wager")
	}

	vault := derive.PoolVault(req.Pool)
	liquidity, err := e.bank.Balance(ctx, vault, pool.Asset)
	if err != nil {
		return nil, err
	}
	if err := game.ValidateMaxPayout(req.Bet, req.Wager, liquidity, pool.EffectiveMaxPayoutBps(cfg)); err != nil {
		return nil, err
	}

	player, err := e.store.GetPlayer(ctx, req.User)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load player")
	}
	escrow := derive.Escrow(req.User)
	nonce := uint64(0)
	if player == nil {
		player = &game.Player{User: req.User}
	} else {
		active, err := e.store.GetGame(ctx, derive.Game(req.User, player.Nonce))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreError, "failed to load game")
		}
		if active == nil {
			// The record exists but its slot is empty: the player was seeded
			// by an oracle commitment or closed the previous round. The new
			// game takes the current slot, so nonces stay gapless.
			nonce = player.Nonce
		} else {
			if active.Status != game.StatusReady {
				return nil, errors.New(errors.ErrGameInProgress, "previous game still awaiting result")
			}
			// Sweep unclaimed winnings to the player before escrowing a
			// fresh wager, so the escrow only ever holds one round.
			leftover, err := e.bank.Balance(ctx, escrow, active.Asset)
			if err != nil {
				return nil, err
			}
			if leftover > 0 {
				if err := e.bank.Transfer(ctx, escrow, req.User, active.Asset, leftover); err != nil {
					return nil, err
				}
				e.log.Info().Str("user", req.User).Uint64("amount", leftover).
					Msg("swept unclaimed payout before play")
			}
			nonce = player.Nonce + 1
		}
	}

	creatorFee := bps.MustFee(req.Wager, req.CreatorFeeBps)
	protocolFee := bps.MustFee(req.Wager, cfg.ProtocolFeeBps)
	poolFee := bps.MustFee(req.Wager, poolFeeBps)
	jackpotFee := bps.MustFee(req.Wager, req.JackpotFeeBps)

	// A round only enters the jackpot draw when it funds the jackpot vault.
	var probabilityUbps uint64
	if jackpotFee > 0 {
		probabilityUbps = game.JackpotProbabilityUbps(cfg.JackpotBaseUbps, req.Wager, liquidity)
	}

	if err := e.bank.Transfer(ctx, req.User, escrow, pool.Asset, req.Wager); err != nil {
		return nil, err
	}

	g := &game.Game{
		ID:                     derive.Game(req.User, nonce),
		Nonce:                  nonce,
		User:                   req.User,
		Asset:                  pool.Asset,
		Pool:                   req.Pool,
		Status:                 game.StatusAwaitingResult,
		CommittedSeedHash:      player.NextSeedHash,
		ClientSeed:             req.ClientSeed,
		Creator:                req.Creator,
		Bet:                    append([]uint32(nil), req.Bet...),
		Wager:                  req.Wager,
		Metadata:               req.Metadata,
		CreatorFee:             creatorFee,
		ProtocolFee:            protocolFee,
		PoolFee:                poolFee,
		JackpotFee:             jackpotFee,
		JackpotProbabilityUbps: probabilityUbps,
		StartedAt:              e.now().UTC(),
	}
	if err := e.store.SaveGame(ctx, g); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save game")
	}

	player.Nonce = nonce
	if err := e.store.SavePlayer(ctx, player); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreError, "failed to save player")
	}

	e.log.Info().
		Str("user", req.User).
		Str("pool", req.Pool).
		Uint64("nonce", nonce).
		Uint64("wager", req.Wager).
		Msg("game started")
	return g, nil
}

// ProvideNextSeedHash records the oracle's seed commitment for a player's
// next round. Needed once before a player's first round; afterwards the
// commitment rolls forward automatically at each settlement.
func (e *Engine) ProvideNextSeedHash(ctx context.Context, caller, user, seedHash string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return err
	}
	if caller == "" || caller != cfg.OracleAddress {
		return errors.New(errors.ErrOracleUnauthorized, "caller is not the oracle")
	}
	if seedHash == "" {
		return errors.New(errors.ErrInvalidRequest, "seed hash is required")
	}

	player, err := e.store.GetPlayer(ctx, user)
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to load player")
	}
	if player == nil {
		player = &game.Player{User: user}
	}
	player.NextSeedHash = seedHash
	if err := e.store.SavePlayer(ctx, player); err != nil {
		return errors.Wrap(err, errors.ErrStoreError, "failed to save player")
	}

	e.log.Info().Str("user", user).Msg("seed commitment recorded")
	return nil
}
