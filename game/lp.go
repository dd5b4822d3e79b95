package game

import (
	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
)

// SharesForDeposit converts a deposit amount into LP shares at the current
// liquidity/supply ratio. The first deposit (or a drained pool) bootstraps
// at 1:1. Rounding is floor, so any dust stays with the pool.
func SharesForDeposit(amount, poolLiquidity, shareSupply uint64) (uint64, error) {
	if shareSupply == 0 || poolLiquidity == 0 {
		return amount, nil
	}
	return bps.Proportion(amount, shareSupply, poolLiquidity)
}

// AmountForWithdraw converts burned LP shares back into underlying tokens.
// Burning against an empty supply yields nothing.
func AmountForWithdraw(shares, poolLiquidity, shareSupply uint64) (uint64, error) {
	if shareSupply == 0 {
		return 0, nil
	}
	return bps.Proportion(shares, poolLiquidity, shareSupply)
}
