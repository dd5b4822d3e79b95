// Package derive produces the stable sub-account identifiers the settlement
// engine uses to address vaults, escrows and game records. Identifiers are
// deterministic over their seed components, so any party can recompute them.
package derive

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Seed tags. One per account class to keep the derivation domains disjoint.
const (
	poolSeed       = "POOL"
	poolVaultSeed  = "POOL_VAULT"
	jackpotSeed    = "POOL_JACKPOT"
	shareAssetSeed = "POOL_SHARE_MINT"
	escrowSeed     = "ESCROW"
	gameSeed       = "GAME"
	feeVaultSeed   = "FEE_VAULT"
)

func derive(tag string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write([]byte{0}) // separator so adjacent parts cannot collide
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Pool derives the pool record identifier for an (asset, authority) pair.
func Pool(asset, authority string) string {
	return derive(poolSeed, []byte(asset), []byte(authority))
}

// PoolVault derives the liquidity vault account for a pool.
func PoolVault(poolID string) string {
	return derive(poolVaultSeed, []byte(poolID))
}

// JackpotVault derives the jackpot vault account for a pool.
func JackpotVault(poolID string) string {
	return derive(jackpotSeed, []byte(poolID))
}

// ShareAsset derives the LP share asset identifier for a pool.
func ShareAsset(poolID string) string {
	return derive(shareAssetSeed, []byte(poolID))
}

// Escrow derives the per-user wager escrow account.
func Escrow(user string) string {
	return derive(escrowSeed, []byte(user))
}

// Game derives the game record identifier for a (user, nonce) pair.
func Game(user string, nonce uint64) string {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], nonce)
	return derive(gameSeed, []byte(user), n[:])
}

// FeeVault derives the protocol fee collection account.
func FeeVault() string {
	return derive(feeVaultSeed)
}
