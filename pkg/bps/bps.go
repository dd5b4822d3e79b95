// Package bps implements basis-point arithmetic on unsigned 64-bit token
// amounts. All products are computed in 128 bits so amount*rate can never
// wrap before the division; results that do not fit back into 64 bits are
// reported as overflow instead of truncated.
package bps

import (
	"math/bits"

	"github.com/whiskylabs/whisky-protocol-core/errors"
)

// PerWhole is the number of basis points in 100%.
const PerWhole uint64 = 10_000

// UbpsPerWhole is the number of micro basis points in 100%.
const UbpsPerWhole uint64 = 1_000_000

// Proportion returns floor(a*b/c) using a 128-bit intermediate product.
// Callers must rule out c == 0; it is reported as an arithmetic error
// rather than left to trap.
func Proportion(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, errors.New(errors.ErrMathOverflow, "division by zero in proportion")
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		// quotient would not fit in 64 bits
		return 0, errors.New(errors.ErrMathOverflow, "proportion result exceeds 64 bits")
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

// Fee returns floor(amount * rateBps / 10_000).
func Fee(amount, rateBps uint64) (uint64, error) {
	return Proportion(amount, rateBps, PerWhole)
}

// MustFee is Fee for call sites where rateBps is already bounded by
// PerWhole, making overflow impossible.
func MustFee(amount, rateBps uint64) uint64 {
	v, err := Fee(amount, rateBps)
	if err != nil {
		panic(err)
	}
	return v
}
