package game

import (
	"testing"

	"github.com/whiskylabs/whisky-protocol-core/errors"
)

func TestValidateBet(t *testing.T) {
	tests := []struct {
		name string
		bet  []uint32
		code int
	}{
		{"even four-way", []uint32{25, 25, 25, 25}, 0},
		{"skewed pair", []uint32{90, 10}, 0},
		{"single outcome", []uint32{50}, errors.ErrInvalidBetShape},
		{"empty", nil, errors.ErrInvalidBetShape},
		{"too many outcomes", make([]uint32, 257), errors.ErrInvalidBetShape},
		{"all zero weights", []uint32{0, 0}, errors.ErrInvalidBetWeights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBet(tt.bet)
			if tt.code == 0 {
				if err != nil {
					t.Fatalf("ValidateBet(%v) = %v, want nil", tt.bet, err)
				}
				return
			}
			if err == nil || errors.GetCode(err) != tt.code {
				t.Fatalf("ValidateBet(%v) = %v, want code %d", tt.bet, err, tt.code)
			}
		})
	}
}

func TestMultiplierBps(t *testing.T) {
	tests := []struct {
		name  string
		bet   []uint32
		index int
		want  uint64
	}{
		{"even four-way", []uint32{25, 25, 25, 25}, 0, 40_000},
		{"skewed long shot", []uint32{90, 10}, 1, 100_000},
		{"skewed favorite", []uint32{90, 10}, 0, 11_111},
		{"zero weight outcome", []uint32{1, 0}, 1, 0},
		{"out of range", []uint32{1, 1}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MultiplierBps(tt.bet, tt.index); got != tt.want {
				t.Fatalf("MultiplierBps(%v, %d) = %d, want %d", tt.bet, tt.index, got, tt.want)
			}
		})
	}
}

func TestHouseEdgeBps(t *testing.T) {
	tests := []struct {
		name string
		bet  []uint32
		want uint64
	}{
		{"fifty fifty double", []uint32{1, 1}, 5_000},
		{"long shot", []uint32{99, 1}, 9_900},
		{"no reachable outcome", []uint32{0, 0}, 10_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HouseEdgeBps(tt.bet); got != tt.want {
				t.Fatalf("HouseEdgeBps(%v) = %d, want %d", tt.bet, got, tt.want)
			}
		})
	}
}

func TestValidateWager(t *testing.T) {
	if err := ValidateWager(1_000_000, 1_000_000); err != nil {
		t.Fatalf("wager at pool floor: %v", err)
	}
	if err := ValidateWager(999_999, 1_000_000); !errors.Is(err, errors.ErrWagerTooLow) {
		t.Fatalf("wager below pool floor = %v, want ErrWagerTooLow", err)
	}
	if err := ValidateWager(999, 0); !errors.Is(err, errors.ErrWagerTooLow) {
		t.Fatalf("wager below protocol floor = %v, want ErrWagerTooLow", err)
	}
}

func TestValidateMaxPayout(t *testing.T) {
	// 10x best case on a 10000 wager needs 100000 of headroom.
	bet := []uint32{90, 10}
	if err := ValidateMaxPayout(bet, 10_000, 1_000_000, 10_000); err != nil {
		t.Fatalf("payout within liquidity: %v", err)
	}
	if err := ValidateMaxPayout(bet, 10_000, 50_000, 10_000); !errors.Is(err, errors.ErrMaxPayoutExceeded) {
		t.Fatalf("payout above liquidity = %v, want ErrMaxPayoutExceeded", err)
	}
	// A tighter payout cap shrinks the headroom.
	if err := ValidateMaxPayout(bet, 10_000, 1_000_000, 500); !errors.Is(err, errors.ErrMaxPayoutExceeded) {
		t.Fatalf("payout above cap = %v, want ErrMaxPayoutExceeded", err)
	}
}
