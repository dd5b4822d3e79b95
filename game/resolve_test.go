package game

import (
	"strconv"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("rng-seed", "client-seed", 7)
	b := Hash("rng-seed", "client-seed", 7)
	if a != b {
		t.Fatal("hash is not deterministic")
	}
	if Hash("rng-seed", "client-seed", 8) == a {
		t.Fatal("nonce does not bind the hash")
	}
	if Hash("rng-seed", "other-seed", 7) == a {
		t.Fatal("client seed does not bind the hash")
	}
}

func TestHashSeedCommitment(t *testing.T) {
	// SHA-256 of the empty string, a fixed reference value.
	if got := HashSeed(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("HashSeed(\"\") = %s", got)
	}
	if HashSeed("a") == HashSeed("b") {
		t.Fatal("distinct seeds share a commitment")
	}
}

func TestResultIndexInRange(t *testing.T) {
	bet := []uint32{90, 10}
	for i := 0; i < 1000; i++ {
		h := Hash("rng-"+strconv.Itoa(i), "client", uint64(i))
		idx := ResultIndex(h, bet)
		if int(idx) >= len(bet) {
			t.Fatalf("result %d out of range", idx)
		}
	}
}

func TestResultIndexSkipsZeroWeights(t *testing.T) {
	bet := []uint32{0, 1, 0}
	for i := 0; i < 200; i++ {
		h := Hash("rng-"+strconv.Itoa(i), "client", uint64(i))
		if idx := ResultIndex(h, bet); idx != 1 {
			t.Fatalf("zero-weight outcome selected: %d", idx)
		}
	}
}

func TestResultIndexRoughlyWeighted(t *testing.T) {
	bet := []uint32{90, 10}
	var hits [2]int
	const rounds = 5000
	for i := 0; i < rounds; i++ {
		h := Hash("rng-"+strconv.Itoa(i), "client", uint64(i))
		hits[ResultIndex(h, bet)]++
	}
	// The long shot should land near 10% of the time. Wide tolerance; this
	// guards the weighted walk, not the hash quality.
	if hits[1] < rounds/20 || hits[1] > rounds/5 {
		t.Fatalf("long shot hit %d of %d rounds", hits[1], rounds)
	}
}

func TestJackpotWonBoundaries(t *testing.T) {
	h := Hash("rng", "client", 0)
	if JackpotWon(h, 0) {
		t.Fatal("zero probability won")
	}
	if !JackpotWon(h, MaxJackpotProbabilityUbps) {
		t.Fatal("certain probability lost")
	}
}

func TestJackpotProbabilityUbps(t *testing.T) {
	tests := []struct {
		name      string
		base      uint64
		wager     uint64
		liquidity uint64
		want      uint64
	}{
		{"empty pool floors to base", 100, 10_000, 0, 100},
		{"tiny wager floors to base", 100, 1_000, 100_000_000, 100},
		{"scales with wager share", 100, 100_000, 1_000_000, 100_000},
		{"clamped to one in a hundred", 100, 1_000_000, 1_000, 1_000_000},
		{"base at maximum stays clamped", MaxJackpotProbabilityUbps, 10_000, 1_000_000, MaxJackpotProbabilityUbps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JackpotProbabilityUbps(tt.base, tt.wager, tt.liquidity)
			if got != tt.want {
				t.Fatalf("JackpotProbabilityUbps(%d, %d, %d) = %d, want %d",
					tt.base, tt.wager, tt.liquidity, got, tt.want)
			}
		})
	}
}

func TestResolveMatchesParts(t *testing.T) {
	bet := []uint32{25, 25, 25, 25}
	h := Hash("rng-seed", "client-seed", 3)
	idx, jackpot := Resolve("rng-seed", "client-seed", 3, bet, 500)
	if idx != ResultIndex(h, bet) {
		t.Fatal("resolve index diverges from ResultIndex")
	}
	if jackpot != JackpotWon(h, 500) {
		t.Fatal("resolve jackpot diverges from JackpotWon")
	}
}
