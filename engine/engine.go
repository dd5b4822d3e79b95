// Package engine orchestrates the settlement state machine over the record
// store and the custody service. All balance movement and record mutation
// flows through here; HTTP handlers and event consumers stay thin.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/whiskylabs/whisky-protocol-core/game"
	"github.com/whiskylabs/whisky-protocol-core/pkg/custody"
	"github.com/whiskylabs/whisky-protocol-core/pkg/derive"
	"github.com/whiskylabs/whisky-protocol-core/store"
)

// EventSink receives settlement notifications after the owning operation has
// committed its record changes. Implementations must not block settlement.
type EventSink interface {
	PoolChanged(ctx context.Context, change *game.PoolChange)
	GameSettled(ctx context.Context, settled *game.GameSettled)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) PoolChanged(context.Context, *game.PoolChange) {}
func (NopSink) GameSettled(context.Context, *game.GameSettled) {}

// Options tunes engine behavior that is policy rather than protocol.
type Options struct {
	// PendingTimeout is how long a game may sit awaiting the oracle before
	// anyone may expire it.
	PendingTimeout time.Duration
	// VerifySeedChain enforces that each revealed seed hashes to the
	// commitment published at the previous settlement.
	VerifySeedChain bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		PendingTimeout:  5 * time.Minute,
		VerifySeedChain: true,
	}
}

// Engine is the settlement core. One instance serializes all mutating
// operations; reads go straight to the store.
type Engine struct {
	store store.Store
	bank  custody.Service
	sink  EventSink
	log   zerolog.Logger
	opts  Options

	// now is swapped out in tests to control expiry.
	now func() time.Time

	mu sync.Mutex
}

// New creates an engine over the given store and custody service.
func New(st store.Store, bank custody.Service, sink EventSink, log zerolog.Logger, opts Options) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	if opts.PendingTimeout <= 0 {
		opts.PendingTimeout = DefaultOptions().PendingTimeout
	}
	return &Engine{
		store: st,
		bank:  bank,
		sink:  sink,
		log:   log.With().Str("component", "engine").Logger(),
		opts:  opts,
		now:   time.Now,
	}
}

// PoolSnapshot is a pool record joined with its live vault balances.
type PoolSnapshot struct {
	Pool           *game.Pool `json:"pool"`
	Liquidity      uint64     `json:"liquidity"`
	JackpotBalance uint64     `json:"jackpot_balance"`
}

// GetProtocolConfig returns the protocol policy record.
func (e *Engine) GetProtocolConfig(ctx context.Context) (*game.ProtocolConfig, error) {
	return e.loadConfig(ctx)
}

// GetPool returns a pool joined with its vault balances.
func (e *Engine) GetPool(ctx context.Context, poolID string) (*PoolSnapshot, error) {
	pool, err := e.loadPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	liquidity, err := e.bank.Balance(ctx, derive.PoolVault(poolID), pool.Asset)
	if err != nil {
		return nil, err
	}
	jackpot, err := e.bank.Balance(ctx, derive.JackpotVault(poolID), pool.Asset)
	if err != nil {
		return nil, err
	}
	return &PoolSnapshot{Pool: pool, Liquidity: liquidity, JackpotBalance: jackpot}, nil
}

// GetGame returns the game record for a (user, nonce) pair, or nil when the
// record does not exist.
func (e *Engine) GetGame(ctx context.Context, user string, nonce uint64) (*game.Game, error) {
	return e.store.GetGame(ctx, derive.Game(user, nonce))
}

// GetActiveGame returns the game occupying the player's current slot, or nil
// when the player has never played or the slot was closed.
func (e *Engine) GetActiveGame(ctx context.Context, user string) (*game.Game, error) {
	player, err := e.store.GetPlayer(ctx, user)
	if err != nil || player == nil {
		return nil, err
	}
	return e.store.GetGame(ctx, derive.Game(user, player.Nonce))
}

// GetPlayer returns the player sequencing record, or nil when absent.
func (e *Engine) GetPlayer(ctx context.Context, user string) (*game.Player, error) {
	return e.store.GetPlayer(ctx, user)
}
