package game

import "testing"

func TestSharesForDeposit(t *testing.T) {
	tests := []struct {
		name      string
		amount    uint64
		liquidity uint64
		supply    uint64
		want      uint64
	}{
		{"bootstrap empty pool", 1000, 0, 0, 1000},
		{"bootstrap zero supply", 1000, 500, 0, 1000},
		{"bootstrap drained pool", 1000, 0, 500, 1000},
		{"proportional at par", 1000, 10_000, 10_000, 1000},
		{"pool gained value", 1000, 20_000, 10_000, 500},
		{"pool lost value", 1000, 5_000, 10_000, 2000},
		{"rounds down", 3, 10, 7, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SharesForDeposit(tt.amount, tt.liquidity, tt.supply)
			if err != nil {
				t.Fatalf("SharesForDeposit: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SharesForDeposit(%d, %d, %d) = %d, want %d",
					tt.amount, tt.liquidity, tt.supply, got, tt.want)
			}
		})
	}
}

func TestAmountForWithdraw(t *testing.T) {
	tests := []struct {
		name      string
		shares    uint64
		liquidity uint64
		supply    uint64
		want      uint64
	}{
		{"empty supply pays nothing", 1000, 10_000, 0, 0},
		{"full exit", 10_000, 10_000, 10_000, 10_000},
		{"half exit after gain", 5_000, 30_000, 10_000, 15_000},
		{"rounds down", 1, 10, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountForWithdraw(tt.shares, tt.liquidity, tt.supply)
			if err != nil {
				t.Fatalf("AmountForWithdraw: %v", err)
			}
			if got != tt.want {
				t.Fatalf("AmountForWithdraw(%d, %d, %d) = %d, want %d",
					tt.shares, tt.liquidity, tt.supply, got, tt.want)
			}
		})
	}
}

// A deposit immediately withdrawn never returns more than went in.
func TestDepositWithdrawRoundTrip(t *testing.T) {
	cases := []struct{ amount, liquidity, supply uint64 }{
		{1000, 0, 0},
		{1000, 10_000, 10_000},
		{999, 7_777, 3_333},
		{1, 1_000_000, 999_999},
	}
	for _, c := range cases {
		shares, err := SharesForDeposit(c.amount, c.liquidity, c.supply)
		if err != nil {
			t.Fatalf("SharesForDeposit: %v", err)
		}
		back, err := AmountForWithdraw(shares, c.liquidity+c.amount, c.supply+shares)
		if err != nil {
			t.Fatalf("AmountForWithdraw: %v", err)
		}
		if back > c.amount {
			t.Fatalf("round trip returned %d for deposit of %d", back, c.amount)
		}
	}
}
