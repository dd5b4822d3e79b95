package bps

import (
	"math"
	"testing"

	"github.com/whiskylabs/whisky-protocol-core/errors"
)

func TestFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  uint64
		rate    uint64
		want    uint64
		wantErr bool
	}{
		{name: "two percent", amount: 1000, rate: 200, want: 20},
		{name: "zero rate", amount: 1000, rate: 0, want: 0},
		{name: "full rate", amount: 1000, rate: 10_000, want: 1000},
		{name: "floor rounding", amount: 999, rate: 1, want: 0},
		{name: "max amount full rate", amount: math.MaxUint64, rate: 10_000, want: math.MaxUint64},
		{name: "overflow guarded", amount: math.MaxUint64, rate: 20_000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fee(tt.amount, tt.rate)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				if !errors.Is(err, errors.ErrMathOverflow) {
					t.Errorf("expected math overflow code, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Fee(%d, %d) = %d, want %d", tt.amount, tt.rate, got, tt.want)
			}
		})
	}
}

func TestFeeNeverExceedsAmount(t *testing.T) {
	amounts := []uint64{0, 1, 999, 10_000, 123_456_789, math.MaxUint64}
	rates := []uint64{0, 1, 100, 5000, 9999, 10_000}

	for _, amount := range amounts {
		for _, rate := range rates {
			fee, err := Fee(amount, rate)
			if err != nil {
				t.Fatalf("Fee(%d, %d): %v", amount, rate, err)
			}
			if fee > amount {
				t.Errorf("Fee(%d, %d) = %d exceeds amount", amount, rate, fee)
			}
		}
	}
}

func TestProportion(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c uint64
		want    uint64
		wantErr bool
	}{
		{name: "exact", a: 500, b: 10_000, c: 5000, want: 1000},
		{name: "floor", a: 10, b: 3, c: 4, want: 7},
		{name: "wide intermediate", a: math.MaxUint64, b: math.MaxUint64, c: math.MaxUint64, want: math.MaxUint64},
		{name: "zero denominator", a: 1, b: 1, c: 0, wantErr: true},
		{name: "result overflow", a: math.MaxUint64, b: 2, c: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Proportion(tt.a, tt.b, tt.c)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Proportion(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
			}
		})
	}
}
