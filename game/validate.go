package game

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
)

// TotalWeight sums the bet weights in 64 bits. With at most 256 outcomes of
// u32 weights the sum fits comfortably.
func TotalWeight(bet []uint32) uint64 {
	return lo.SumBy(bet, func(w uint32) uint64 { return uint64(w) })
}

// ValidateBet checks the bet vector shape and weights.
func ValidateBet(bet []uint32) error {
	if len(bet) < MinBetOutcomes || len(bet) > MaxBetOutcomes {
		return errors.NewWithDebug(errors.ErrInvalidBetShape,
			"bet must have between 2 and 256 outcomes",
			"got "+strconv.Itoa(len(bet))+" outcomes")
	}
	if TotalWeight(bet) == 0 {
		return errors.New(errors.ErrInvalidBetWeights, "bet weights must sum to a positive value")
	}
	return nil
}

// ValidateWager checks the wager against the pool floor and the protocol
// absolute floor.
func ValidateWager(wager, poolMinWager uint64) error {
	if wager < poolMinWager || wager < MinWager {
		return errors.New(errors.ErrWagerTooLow, "wager below minimum")
	}
	return nil
}

// MaxMultiplierBps returns the highest payout multiplier over all outcomes
// with positive weight, in basis points. Zero when no outcome is reachable.
func MaxMultiplierBps(bet []uint32) uint64 {
	total := TotalWeight(bet)
	var max uint64
	for _, w := range bet {
		if w == 0 {
			continue
		}
		m := total * bps.PerWhole / uint64(w)
		if m > max {
			max = m
		}
	}
	return max
}

// MultiplierBps returns the payout multiplier for one outcome in basis
// points, or 0 for an out-of-range index or zero-weight outcome.
func MultiplierBps(bet []uint32, index int) uint64 {
	if index < 0 || index >= len(bet) || bet[index] == 0 {
		return 0
	}
	return TotalWeight(bet) * bps.PerWhole / uint64(bet[index])
}

// HouseEdgeBps derives the worst-case house edge from the maximum
// multiplier. A bet with no reachable outcome has a 100% edge.
func HouseEdgeBps(bet []uint32) uint64 {
	maxMult := MaxMultiplierBps(bet)
	if maxMult == 0 {
		return bps.PerWhole
	}
	return bps.PerWhole - (bps.PerWhole*bps.PerWhole)/maxMult
}

// ValidateHouseEdge checks the bet's worst-case edge against the policy cap.
func ValidateHouseEdge(bet []uint32, maxHouseEdgeBps uint64) error {
	if HouseEdgeBps(bet) > maxHouseEdgeBps {
		return errors.New(errors.ErrHouseEdgeTooHigh, "house edge exceeds maximum")
	}
	return nil
}

// ValidateMaxPayout checks that the best-case payout stays within the
// pool's payout cap, expressed as a share of current liquidity.
func ValidateMaxPayout(bet []uint32, wager, poolLiquidity, maxPayoutBps uint64) error {
	maxPayout, err := bps.Proportion(wager, MaxMultiplierBps(bet), bps.PerWhole)
	if err != nil {
		return err
	}
	limit, err := bps.Fee(poolLiquidity, maxPayoutBps)
	if err != nil {
		return err
	}
	if maxPayout > limit {
		return errors.New(errors.ErrMaxPayoutExceeded, "maximum payout exceeds pool limit")
	}
	return nil
}
