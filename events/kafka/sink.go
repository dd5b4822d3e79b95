package kafka

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/whiskylabs/whisky-protocol-core/game"
)

// Topic names used when the config does not override them.
const (
	DefaultSettledTopic = "settlement.games.settled"
	DefaultPoolTopic    = "settlement.pools.changes"
	DefaultJackpotTopic = "settlement.jackpots.updates"
)

// JackpotUpdateEvent announces a jackpot vault balance change in display
// units, consumed by the jackpot streaming layer.
type JackpotUpdateEvent struct {
	PoolID    string          `json:"pool_id"`
	Asset     string          `json:"asset"`
	Delta     decimal.Decimal `json:"delta"`
	NewAmount decimal.Decimal `json:"new_amount"`
	UpdatedAt time.Time       `json:"timestamp"`
}

// Sink publishes settlement events to Kafka. It implements the engine's
// event boundary; publish failures are logged, never surfaced into the
// settlement path.
type Sink struct {
	producer *Producer
	logger   zerolog.Logger

	settledTopic string
	poolTopic    string
	jackpotTopic string

	// assetDecimals converts base-unit amounts to display units for the
	// jackpot stream. Unknown assets pass through with zero decimals.
	assetDecimals map[string]int32

	// jackpotBalances tracks the running vault balance per pool so each
	// update can carry the post-change amount.
	jackpotBalances map[string]uint64
}

// SinkConfig holds event sink configuration.
type SinkConfig struct {
	SettledTopic  string
	PoolTopic     string
	JackpotTopic  string
	AssetDecimals map[string]int32
}

// NewSink creates an event sink over a producer. A nil producer yields a
// sink that only logs, which keeps local development broker-free.
func NewSink(producer *Producer, logger zerolog.Logger, cfg SinkConfig) *Sink {
	if cfg.SettledTopic == "" {
		cfg.SettledTopic = DefaultSettledTopic
	}
	if cfg.PoolTopic == "" {
		cfg.PoolTopic = DefaultPoolTopic
	}
	if cfg.JackpotTopic == "" {
		cfg.JackpotTopic = DefaultJackpotTopic
	}
	return &Sink{
		producer:        producer,
		logger:          logger.With().Str("component", "event-sink").Logger(),
		settledTopic:    cfg.SettledTopic,
		poolTopic:       cfg.PoolTopic,
		jackpotTopic:    cfg.JackpotTopic,
		assetDecimals:   cfg.AssetDecimals,
		jackpotBalances: make(map[string]uint64),
	}
}

// PoolChanged publishes a liquidity change keyed by pool.
func (s *Sink) PoolChanged(_ context.Context, change *game.PoolChange) {
	if s.producer == nil {
		s.logger.Debug().Str("pool", change.Pool).Str("action", string(change.Action)).Msg("event dropped, no broker")
		return
	}
	if err := s.producer.SendMessage(s.poolTopic, change.Pool, change); err != nil {
		s.logger.Error().Err(err).Str("pool", change.Pool).Msg("failed to publish pool change")
	}
}

// GameSettled publishes the settlement record keyed by user, then derives a
// jackpot update from the round's jackpot flows.
func (s *Sink) GameSettled(_ context.Context, settled *game.GameSettled) {
	if s.producer == nil {
		s.logger.Debug().Str("user", settled.User).Uint64("nonce", settled.Nonce).Msg("event dropped, no broker")
		return
	}
	if err := s.producer.SendMessage(s.settledTopic, gameKey(settled.User, settled.Nonce), settled); err != nil {
		s.logger.Error().Err(err).Str("user", settled.User).Msg("failed to publish settlement")
	}
	s.publishJackpotUpdate(settled)
}

func (s *Sink) publishJackpotUpdate(settled *game.GameSettled) {
	if settled.JackpotFee == 0 && !settled.JackpotWon {
		return
	}
	prev := s.jackpotBalances[settled.Pool]
	// The vault receives the round's fee, then empties entirely on a win.
	newBalance := prev + settled.JackpotFee
	if settled.JackpotWon {
		newBalance = 0
	}
	var delta int64
	if newBalance >= prev {
		delta = int64(newBalance - prev)
	} else {
		delta = -int64(prev - newBalance)
	}
	s.jackpotBalances[settled.Pool] = newBalance

	event := JackpotUpdateEvent{
		PoolID:    settled.Pool,
		Asset:     settled.Asset,
		Delta:     s.toDisplay(settled.Asset, delta),
		NewAmount: s.toDisplayU64(settled.Asset, newBalance),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.producer.SendMessage(s.jackpotTopic, settled.Pool, event); err != nil {
		s.logger.Error().Err(err).Str("pool", settled.Pool).Msg("failed to publish jackpot update")
	}
}

func (s *Sink) decimals(asset string) int32 {
	if d, ok := s.assetDecimals[asset]; ok {
		return d
	}
	return 0
}

func (s *Sink) toDisplay(asset string, v int64) decimal.Decimal {
	return decimal.New(v, -s.decimals(asset))
}

func (s *Sink) toDisplayU64(asset string, v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -s.decimals(asset))
}

func gameKey(user string, nonce uint64) string {
	return user + ":" + strconv.FormatUint(nonce, 10)
}
