package valuation

import (
	"errors"
	"math/big"
	"testing"

	"liquidityVault/internal/fixedpoint"
)

func sqrtAt(t *testing.T, tick int32) *big.Int {
	t.Helper()
	sqrtPrice, err := fixedpoint.TickToSqrtPrice(tick)
	if err != nil {
		t.Fatalf("tick %d: %v", tick, err)
	}
	return sqrtPrice
}

func TestAmountsInRange(t *testing.T) {
	sqrtLower := sqrtAt(t, -600)
	sqrtPrice := sqrtAt(t, 0)
	sqrtUpper := sqrtAt(t, 600)
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)

	amount0, amount1, err := Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want0, _ := new(big.Int).SetString("29553010879137169", 10)
	want1, _ := new(big.Int).SetString("29553010879137169", 10)
	if amount0.Cmp(want0) != 0 {
		t.Fatalf("amount0 got %s want %s", amount0, want0)
	}
	if amount1.Cmp(want1) != 0 {
		t.Fatalf("amount1 got %s want %s", amount1, want1)
	}
}

func TestAmountsBelowRange(t *testing.T) {
	sqrtLower := sqrtAt(t, -600)
	sqrtUpper := sqrtAt(t, 600)
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)

	amount0, amount1, err := Amounts(sqrtAt(t, -700), sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want0, _ := new(big.Int).SetString("60005999255049926", 10)
	if amount0.Cmp(want0) != 0 {
		t.Fatalf("amount0 got %s want %s", amount0, want0)
	}
	if amount1.Sign() != 0 {
		t.Fatalf("amount1 should be zero below range, got %s", amount1)
	}
}

func TestAmountsAboveRange(t *testing.T) {
	sqrtLower := sqrtAt(t, -600)
	sqrtUpper := sqrtAt(t, 600)
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)

	amount0, amount1, err := Amounts(sqrtAt(t, 700), sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want1, _ := new(big.Int).SetString("60005999255049926", 10)
	if amount0.Sign() != 0 {
		t.Fatalf("amount0 should be zero above range, got %s", amount0)
	}
	if amount1.Cmp(want1) != 0 {
		t.Fatalf("amount1 got %s want %s", amount1, want1)
	}
}

func TestAmountsZeroLiquidity(t *testing.T) {
	amount0, amount1, err := Amounts(sqrtAt(t, 0), sqrtAt(t, -60), sqrtAt(t, 60), new(big.Int))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount0.Sign() != 0 || amount1.Sign() != 0 {
		t.Fatalf("expected zero amounts, got %s / %s", amount0, amount1)
	}
}

func TestAmountsWithOwed(t *testing.T) {
	amount0, amount1, err := AmountsWithOwed(
		sqrtAt(t, 0), sqrtAt(t, -60), sqrtAt(t, 60), new(big.Int),
		big.NewInt(123), big.NewInt(456),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount0.Cmp(big.NewInt(123)) != 0 || amount1.Cmp(big.NewInt(456)) != 0 {
		t.Fatalf("owed amounts not added: %s / %s", amount0, amount1)
	}
}

func TestAmountsInvalidRange(t *testing.T) {
	liquidity := big.NewInt(1000)
	if _, _, err := Amounts(sqrtAt(t, 0), sqrtAt(t, 60), sqrtAt(t, -60), liquidity); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, _, err := Amounts(sqrtAt(t, 0), sqrtAt(t, 60), sqrtAt(t, 60), liquidity); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty range, got %v", err)
	}
}

func TestLiquidityRoundTrip(t *testing.T) {
	sqrtLower := sqrtAt(t, -600)
	sqrtPrice := sqrtAt(t, 0)
	sqrtUpper := sqrtAt(t, 600)
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)

	amount0, amount1, err := Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}

	back, err := LiquidityForAmounts(sqrtPrice, sqrtLower, sqrtUpper, amount0, amount1)
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}

	// Floor rounding loses at most a few units and never credits more
	// depth than the amounts funded.
	if back.Cmp(liquidity) > 0 {
		t.Fatalf("round trip credited extra liquidity: %s > %s", back, liquidity)
	}
	loss := new(big.Int).Sub(liquidity, back)
	if loss.Cmp(big.NewInt(100)) > 0 {
		t.Fatalf("round trip lost too much liquidity: %s", loss)
	}

	// The recovered liquidity must not be able to withdraw more than
	// was deposited.
	recovered0, recovered1, err := Amounts(sqrtPrice, sqrtLower, sqrtUpper, back)
	if err != nil {
		t.Fatalf("amounts from recovered: %v", err)
	}
	if recovered0.Cmp(amount0) > 0 || recovered1.Cmp(amount1) > 0 {
		t.Fatalf("recovered amounts exceed deposit: %s/%s vs %s/%s", recovered0, recovered1, amount0, amount1)
	}
}

func TestLiquidityForAmountsOneSided(t *testing.T) {
	sqrtLower := sqrtAt(t, -600)
	sqrtUpper := sqrtAt(t, 600)
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)

	amount0, _, err := Amounts(sqrtAt(t, -700), sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}

	back, err := LiquidityForAmounts(sqrtAt(t, -700), sqrtLower, sqrtUpper, amount0, new(big.Int))
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if back.Cmp(liquidity) > 0 {
		t.Fatalf("one-sided round trip credited extra liquidity: %s", back)
	}
}
