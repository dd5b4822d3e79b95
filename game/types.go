package game

import (
	"time"
)

// Protocol-wide limits. Wire encoding for amounts is always an unsigned
// 64-bit count of smallest asset units; bet weights are unsigned 32-bit.
const (
	// MinBetOutcomes is the minimum number of outcomes in a bet vector.
	MinBetOutcomes = 2
	// MaxBetOutcomes is the maximum number of outcomes in a bet vector.
	MaxBetOutcomes = 256

	// MinWager is the absolute protocol-wide wager floor.
	MinWager uint64 = 1_000

	// MaxSeedLength bounds client and oracle seed strings.
	MaxSeedLength = 256
	// MaxMetadataLength bounds the free-text game metadata.
	MaxMetadataLength = 512

	// DefaultPoolMinWager is the per-pool wager floor applied at creation.
	DefaultPoolMinWager uint64 = 1_000_000
)

// Default protocol configuration values, in basis points unless noted.
const (
	DefaultProtocolFeeBps       uint64 = 200 // 2%
	DefaultPoolFeeBps           uint64 = 100 // 1%
	DefaultMaxHouseEdgeBps      uint64 = 300 // 3%
	DefaultMaxCreatorFeeBps     uint64 = 500 // 5%
	DefaultMaxPayoutBps         uint64 = 10_000
	DefaultPoolWithdrawFeeBps   uint64 = 100 // 1%
	DefaultJackpotToUserBps     uint64 = 7_000
	DefaultJackpotToCreatorBps  uint64 = 1_000
	DefaultJackpotToPoolBps     uint64 = 1_000
	DefaultJackpotToProtocolBps uint64 = 1_000
	DefaultJackpotBaseUbps      uint64 = 100 // 0.0001% in micro basis points
	MaxJackpotProbabilityUbps   uint64 = 1_000_000
)

// ProtocolConfig is the singleton protocol policy record. It is mutated only
// by the protocol authority and read by the settlement path.
type ProtocolConfig struct {
	Authority             string `json:"authority"`
	OracleAddress         string `json:"oracle_address"`
	DistributionRecipient string `json:"distribution_recipient"`

	ProtocolFeeBps      uint64 `json:"protocol_fee_bps"`
	PoolFeeBps          uint64 `json:"pool_fee_bps"`
	MaxHouseEdgeBps     uint64 `json:"max_house_edge_bps"`
	MaxCreatorFeeBps    uint64 `json:"max_creator_fee_bps"`
	MaxPayoutBps        uint64 `json:"max_payout_bps"`
	PoolWithdrawFeeBps  uint64 `json:"pool_withdraw_fee_bps"`
	JackpotToUserBps    uint64 `json:"jackpot_payout_to_user_bps"`
	JackpotToCreatorBps uint64 `json:"jackpot_payout_to_creator_bps"`
	JackpotToPoolBps    uint64 `json:"jackpot_payout_to_pool_bps"`
	JackpotToProtoBps   uint64 `json:"jackpot_payout_to_protocol_bps"`
	JackpotBaseUbps     uint64 `json:"jackpot_base_probability_ubps"`

	PoolCreationAllowed bool `json:"pool_creation_allowed"`
	DepositAllowed      bool `json:"pool_deposit_allowed"`
	WithdrawAllowed     bool `json:"pool_withdraw_allowed"`
	PlayingAllowed      bool `json:"playing_allowed"`
}

// DefaultProtocolConfig builds the initial protocol policy owned by authority.
func DefaultProtocolConfig(authority string) *ProtocolConfig {
	return &ProtocolConfig{
		Authority:             authority,
		DistributionRecipient: authority,
		ProtocolFeeBps:        DefaultProtocolFeeBps,
		PoolFeeBps:            DefaultPoolFeeBps,
		MaxHouseEdgeBps:       DefaultMaxHouseEdgeBps,
		MaxCreatorFeeBps:      DefaultMaxCreatorFeeBps,
		MaxPayoutBps:          DefaultMaxPayoutBps,
		PoolWithdrawFeeBps:    DefaultPoolWithdrawFeeBps,
		JackpotToUserBps:      DefaultJackpotToUserBps,
		JackpotToCreatorBps:   DefaultJackpotToCreatorBps,
		JackpotToPoolBps:      DefaultJackpotToPoolBps,
		JackpotToProtoBps:     DefaultJackpotToProtocolBps,
		JackpotBaseUbps:       DefaultJackpotBaseUbps,
		PoolCreationAllowed:   true,
		DepositAllowed:        true,
		WithdrawAllowed:       true,
		PlayingAllowed:        true,
	}
}

// Pool owns one liquidity vault for one underlying asset.
type Pool struct {
	ID        string `json:"id"`
	Authority string `json:"authority"`
	Asset     string `json:"asset"`

	MinWager    uint64 `json:"min_wager"`
	Plays       uint64 `json:"plays"`
	ShareSupply uint64 `json:"share_supply"`

	CustomPoolFee       bool     `json:"custom_pool_fee"`
	CustomPoolFeeBps    uint64   `json:"custom_pool_fee_bps"`
	CustomMaxPayout     bool     `json:"custom_max_payout"`
	CustomMaxPayoutBps  uint64   `json:"custom_max_payout_bps"`
	CustomMaxCreatorFee bool     `json:"custom_max_creator_fee"`
	CustomMaxCreatorBps uint64   `json:"custom_max_creator_fee_bps"`
	WhitelistRequired   bool     `json:"deposit_whitelist_required"`
	DepositWhitelist    []string `json:"deposit_whitelist,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EffectivePoolFeeBps returns the pool fee, honoring the per-pool override.
func (p *Pool) EffectivePoolFeeBps(cfg *ProtocolConfig) uint64 {
	if p.CustomPoolFee {
		return p.CustomPoolFeeBps
	}
	return cfg.PoolFeeBps
}

// EffectiveMaxPayoutBps returns the payout cap, honoring the override.
func (p *Pool) EffectiveMaxPayoutBps(cfg *ProtocolConfig) uint64 {
	if p.CustomMaxPayout {
		return p.CustomMaxPayoutBps
	}
	return cfg.MaxPayoutBps
}

// EffectiveMaxCreatorFeeBps returns the creator fee cap, honoring the override.
func (p *Pool) EffectiveMaxCreatorFeeBps(cfg *ProtocolConfig) uint64 {
	if p.CustomMaxCreatorFee {
		return p.CustomMaxCreatorBps
	}
	return cfg.MaxCreatorFeeBps
}

// Whitelisted reports whether user may deposit into this pool.
func (p *Pool) Whitelisted(user string) bool {
	if !p.WhitelistRequired {
		return true
	}
	for _, w := range p.DepositWhitelist {
		if w == user {
			return true
		}
	}
	return false
}

// Player holds per-user game sequencing state. The nonce increases by
// exactly one per started game and never decreases; it doubles as the
// fencing token for settlement ordering.
type Player struct {
	User  string `json:"user"`
	Nonce uint64 `json:"nonce"`

	// NextSeedHash is the oracle commitment the player's next round must be
	// settled against. Seeded by the oracle before the first round, then
	// rolled forward at every settlement.
	NextSeedHash string `json:"next_seed_hash,omitempty"`
}

// GameStatus is the settlement state machine position.
type GameStatus string

const (
	// StatusNone means no active game occupies the slot.
	StatusNone GameStatus = "none"
	// StatusAwaitingResult means the bet is escrowed and the oracle has not
	// yet revealed the seed.
	StatusAwaitingResult GameStatus = "awaiting_result"
	// StatusReady means the game is resolved and claimable.
	StatusReady GameStatus = "ready"
)

// Game is one wagering round for one user. Created by play, mutated only by
// settle (or expire), read by claim.
type Game struct {
	ID     string     `json:"id"`
	Nonce  uint64     `json:"nonce"`
	User   string     `json:"user"`
	Asset  string     `json:"asset"`
	Pool   string     `json:"pool"`
	Status GameStatus `json:"status"`

	// CommittedSeedHash is the oracle commitment this round's reveal must
	// hash to. Copied from the previous round's NextSeedHash.
	CommittedSeedHash string `json:"committed_seed_hash,omitempty"`
	// NextSeedHash is the oracle's commitment for the following round,
	// recorded at settlement.
	NextSeedHash string `json:"next_seed_hash,omitempty"`
	RngSeed      string `json:"rng_seed,omitempty"`
	ClientSeed   string `json:"client_seed"`

	Creator  string   `json:"creator"`
	Bet      []uint32 `json:"bet"`
	Wager    uint64   `json:"wager"`
	Metadata string   `json:"metadata,omitempty"`

	CreatorFee  uint64 `json:"creator_fee"`
	ProtocolFee uint64 `json:"protocol_fee"`
	PoolFee     uint64 `json:"pool_fee"`
	JackpotFee  uint64 `json:"jackpot_fee"`

	JackpotProbabilityUbps uint64 `json:"jackpot_probability_ubps"`
	JackpotWon             bool   `json:"jackpot_won"`
	JackpotPayout          uint64 `json:"jackpot_payout"`

	Result        uint32 `json:"result"`
	MultiplierBps uint64 `json:"multiplier_bps"`
	Payout        uint64 `json:"payout"`
	Expired       bool   `json:"expired,omitempty"`

	StartedAt time.Time `json:"started_at"`
	SettledAt time.Time `json:"settled_at,omitempty"`
}

// PoolAction labels liquidity-change events.
type PoolAction string

const (
	PoolActionDeposit  PoolAction = "deposit"
	PoolActionWithdraw PoolAction = "withdraw"
)

// PoolChange is the liquidity-change notification payload.
type PoolChange struct {
	User          string     `json:"user"`
	Pool          string     `json:"pool"`
	Asset         string     `json:"asset"`
	Action        PoolAction `json:"action"`
	Amount        uint64     `json:"amount"`
	PostLiquidity uint64     `json:"post_liquidity"`
	ShareSupply   uint64     `json:"share_supply"`
	Timestamp     time.Time  `json:"timestamp"`
}

// GameSettled is the settlement notification payload.
type GameSettled struct {
	User                   string   `json:"user"`
	Pool                   string   `json:"pool"`
	Asset                  string   `json:"asset"`
	Creator                string   `json:"creator"`
	CreatorFee             uint64   `json:"creator_fee"`
	ProtocolFee            uint64   `json:"protocol_fee"`
	PoolFee                uint64   `json:"pool_fee"`
	JackpotFee             uint64   `json:"jackpot_fee"`
	Wager                  uint64   `json:"wager"`
	Payout                 uint64   `json:"payout"`
	MultiplierBps          uint64   `json:"multiplier_bps"`
	JackpotProbabilityUbps uint64   `json:"jackpot_probability_ubps"`
	JackpotWon             bool     `json:"jackpot_won"`
	JackpotPayout          uint64   `json:"jackpot_payout"`
	Nonce                  uint64   `json:"nonce"`
	ClientSeed             string   `json:"client_seed"`
	RngSeed                string   `json:"rng_seed"`
	NextSeedHash           string   `json:"next_seed_hash"`
	ResultIndex            uint32   `json:"result_index"`
	Bet                    []uint32 `json:"bet"`
	PoolLiquidity          uint64   `json:"pool_liquidity"`
	Metadata               string   `json:"metadata,omitempty"`
}
