package valuation

import (
	"errors"
	"math/big"

	"liquidityVault/internal/fixedpoint"
)

var (
	ErrInvalidRange = errors.New("invalid sqrt price range")
	ErrNilInput     = errors.New("nil input")
)

var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// Amounts derives the reserve amounts represented by liquidity held across
// [sqrtLower, sqrtUpper) at the current sqrt price. Below the range all
// value sits in asset0, above it in asset1, in range it splits at the
// current price. All results round down.
func Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity *big.Int) (*big.Int, *big.Int, error) {
	if sqrtPrice == nil || sqrtLower == nil || sqrtUpper == nil || liquidity == nil {
		return nil, nil, ErrNilInput
	}
	if sqrtLower.Sign() <= 0 || sqrtLower.Cmp(sqrtUpper) >= 0 {
		return nil, nil, ErrInvalidRange
	}
	if liquidity.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}

	switch {
	case sqrtPrice.Cmp(sqrtLower) <= 0:
		amount0, err := amount0Delta(sqrtLower, sqrtUpper, liquidity)
		if err != nil {
			return nil, nil, err
		}
		return amount0, new(big.Int), nil

	case sqrtPrice.Cmp(sqrtUpper) >= 0:
		amount1, err := amount1Delta(sqrtLower, sqrtUpper, liquidity)
		if err != nil {
			return nil, nil, err
		}
		return new(big.Int), amount1, nil

	default:
		amount0, err := amount0Delta(sqrtPrice, sqrtUpper, liquidity)
		if err != nil {
			return nil, nil, err
		}
		amount1, err := amount1Delta(sqrtLower, sqrtPrice, liquidity)
		if err != nil {
			return nil, nil, err
		}
		return amount0, amount1, nil
	}
}

// AmountsWithOwed adds uncollected amounts to the active reserve amounts.
func AmountsWithOwed(sqrtPrice, sqrtLower, sqrtUpper, liquidity, owed0, owed1 *big.Int) (*big.Int, *big.Int, error) {
	amount0, amount1, err := Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		return nil, nil, err
	}
	if owed0 != nil {
		amount0.Add(amount0, owed0)
	}
	if owed1 != nil {
		amount1.Add(amount1, owed1)
	}
	return amount0, amount1, nil
}

// LiquidityForAmounts is the inverse of Amounts: the maximum liquidity the
// given amounts can fund across [sqrtLower, sqrtUpper) at the current
// price. Rounds down, so Amounts(LiquidityForAmounts(a0, a1)) never
// exceeds the funded amounts.
func LiquidityForAmounts(sqrtPrice, sqrtLower, sqrtUpper, amount0, amount1 *big.Int) (*big.Int, error) {
	if sqrtPrice == nil || sqrtLower == nil || sqrtUpper == nil || amount0 == nil || amount1 == nil {
		return nil, ErrNilInput
	}
	if sqrtLower.Sign() <= 0 || sqrtLower.Cmp(sqrtUpper) >= 0 {
		return nil, ErrInvalidRange
	}

	switch {
	case sqrtPrice.Cmp(sqrtLower) <= 0:
		return liquidityForAmount0(sqrtLower, sqrtUpper, amount0)

	case sqrtPrice.Cmp(sqrtUpper) >= 0:
		return liquidityForAmount1(sqrtLower, sqrtUpper, amount1)

	default:
		liquidity0, err := liquidityForAmount0(sqrtPrice, sqrtUpper, amount0)
		if err != nil {
			return nil, err
		}
		liquidity1, err := liquidityForAmount1(sqrtLower, sqrtPrice, amount1)
		if err != nil {
			return nil, err
		}
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0, nil
		}
		return liquidity1, nil
	}
}

// amount0Delta computes liquidity * 2^96 * (sb - sa) / (sb * sa), floored.
func amount0Delta(sqrtA, sqrtB, liquidity *big.Int) (*big.Int, error) {
	numerator := new(big.Int).Lsh(liquidity, 96)
	diff := new(big.Int).Sub(sqrtB, sqrtA)

	interim, err := fixedpoint.MulDiv(numerator, diff, sqrtB)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(interim, big.NewInt(1), sqrtA)
}

// amount1Delta computes liquidity * (sb - sa) / 2^96, floored.
func amount1Delta(sqrtA, sqrtB, liquidity *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	return fixedpoint.MulDiv(liquidity, diff, q96)
}

func liquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) (*big.Int, error) {
	intermediate, err := fixedpoint.MulDiv(sqrtA, sqrtB, q96)
	if err != nil {
		return nil, err
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	return fixedpoint.MulDiv(amount0, intermediate, diff)
}

func liquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	return fixedpoint.MulDiv(amount1, q96, diff)
}
