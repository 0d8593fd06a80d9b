package exchange

import (
	"math/big"
	"testing"
)

func TestUSDToGMX(t *testing.T) {
	want, _ := new(big.Int).SetString("500000000000000000000000000000000", 10)
	if got := USDToGMX(500); got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := USDToGMX(-1); got.Sign() != 0 {
		t.Fatalf("expected zero for negative input, got %s", got)
	}
}

func TestScaleAmountTruncates(t *testing.T) {
	if got := ScaleAmount(20.1234567, 6); got.Int64() != 20_123_456 {
		t.Fatalf("expected 20123456, got %s", got)
	}
}

func TestAcceptablePriceDirections(t *testing.T) {
	price := big.NewInt(1_000_000)
	cases := []struct {
		isLong, increase bool
		want             int64
	}{
		{true, true, 1_010_000},
		{false, true, 990_000},
		{true, false, 990_000},
		{false, false, 1_010_000},
	}
	for _, tc := range cases {
		if got := AcceptablePrice(price, 0.01, tc.isLong, tc.increase); got.Int64() != tc.want {
			t.Fatalf("long=%v increase=%v: expected %d, got %s", tc.isLong, tc.increase, tc.want, got)
		}
	}
}

func TestExecutionFee(t *testing.T) {
	if got := ExecutionFee(big.NewInt(10), 100, 1.3); got.Int64() != 1300 {
		t.Fatalf("expected 1300, got %s", got)
	}
	if got := ExecutionFee(big.NewInt(10), 100, 0); got.Int64() != 1000 {
		t.Fatalf("expected buffer floor of 1, got %s", got)
	}
}
