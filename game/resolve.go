package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/bits"

	"github.com/whiskylabs/whisky-protocol-core/pkg/bps"
)

// Hash computes the round hash binding the oracle seed, the client seed and
// the player nonce. Every settlement quantity derives from this digest, so
// a third party can re-run the resolution from public inputs.
func Hash(rngSeed, clientSeed string, nonce uint64) [32]byte {
	h := sha256.New()
	h.Write([]byte(rngSeed))
	h.Write([]byte(clientSeed))
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	h.Write(n[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashSeed returns the hex commitment for an oracle seed, as published one
// round ahead of the reveal.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// ResultIndex picks the winning outcome from the round hash: the first four
// bytes, little endian, reduced modulo the total weight, then walked against
// the cumulative weights.
func ResultIndex(hash [32]byte, bet []uint32) uint32 {
	total := TotalWeight(bet)
	if total == 0 {
		return 0
	}
	r := uint64(binary.LittleEndian.Uint32(hash[0:4]))
	target := r % total

	var cumulative uint64
	for i, w := range bet {
		cumulative += uint64(w)
		if target < cumulative {
			return uint32(i)
		}
	}
	// unreachable when total > 0
	return uint32(len(bet) - 1)
}

// JackpotWon evaluates the jackpot trigger from an independent window of the
// same hash (bytes 4..7), reduced to a one-in-a-million range.
func JackpotWon(hash [32]byte, probabilityUbps uint64) bool {
	r := uint64(binary.LittleEndian.Uint32(hash[4:8]))
	return r%bps.UbpsPerWhole < probabilityUbps
}

// JackpotProbabilityUbps computes the round's jackpot probability in micro
// basis points. The base rate scales with the wager's share of pool
// liquidity and is clamped to [base, 1%]. An empty pool floors to the base.
func JackpotProbabilityUbps(baseUbps, wager, poolLiquidity uint64) uint64 {
	var ratioBps uint64
	if poolLiquidity > 0 {
		hi, lo := bits.Mul64(wager, bps.PerWhole)
		if hi >= poolLiquidity {
			ratioBps = ^uint64(0) // saturate; clamp below caps the result anyway
		} else {
			ratioBps, _ = bits.Div64(hi, lo, poolLiquidity)
		}
	}

	scaled := baseUbps
	if ratioBps > 0 {
		hi, lo := bits.Mul64(baseUbps, ratioBps)
		if hi > 0 {
			scaled = MaxJackpotProbabilityUbps
		} else {
			scaled = lo
		}
	}
	if scaled < baseUbps {
		scaled = baseUbps
	}
	if scaled > MaxJackpotProbabilityUbps {
		scaled = MaxJackpotProbabilityUbps
	}
	return scaled
}

// Resolve computes the full deterministic outcome for a round.
func Resolve(rngSeed, clientSeed string, nonce uint64, bet []uint32, jackpotProbabilityUbps uint64) (index uint32, jackpot bool) {
	h := Hash(rngSeed, clientSeed, nonce)
	return ResultIndex(h, bet), JackpotWon(h, jackpotProbabilityUbps)
}
