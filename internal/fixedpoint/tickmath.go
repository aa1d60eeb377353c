package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Tick bounds of the reference market encoding.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

var (
	ErrTickOutOfRange      = errors.New("tick out of range")
	ErrSqrtPriceOutOfRange = errors.New("sqrt price out of range")

	// MinSqrtPrice is the Q64.96 sqrt price at MinTick.
	MinSqrtPrice = big.NewInt(4295128739)

	// MaxSqrtPrice is the Q64.96 sqrt price at MaxTick.
	MaxSqrtPrice, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	maxUint256 = new(uint256.Int).Not(new(uint256.Int))
	oneShift32 = new(uint256.Int).Lsh(uint256.NewInt(1), 32)

	// Per-bit ratio constants: sqrt(1.0001^-(2^i)) in Q128, for bit i of
	// the tick magnitude. Index 0 applies when bit 0 is set, index 1 is
	// the identity used when it is not; the rest follow bits 1..19.
	sqrtRatioConsts = [21]*uint256.Int{
		uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		uint256.MustFromHex("0x100000000000000000000000000000000"),
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}

	// log2(sqrt(1.0001))^-1 in Q32.64, and the bracketing error margins
	// of the 14-step log refinement, in Q128.
	logSqrt10001, _   = new(big.Int).SetString("255738958999603826347141", 10)
	tickLowMargin, _  = new(big.Int).SetString("3402992956809132418596140100660247210", 10)
	tickHighMargin, _ = new(big.Int).SetString("291339464771989622907027621153398088495", 10)
)

// TickToSqrtPrice converts a tick into the Q64.96 sqrt price of the
// reference market, bit-for-bit. The tick magnitude is decomposed into
// binary digits; each set bit multiplies the accumulator by a precomputed
// ratio constant, the result is inverted for positive ticks and rescaled
// from Q128 to Q96 rounding up.
func TickToSqrtPrice(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, ErrTickOutOfRange
	}

	absTick := uint64(tick)
	if tick < 0 {
		absTick = uint64(-int64(tick))
	}

	ratio := new(uint256.Int)
	if absTick&1 != 0 {
		ratio.Set(sqrtRatioConsts[0])
	} else {
		ratio.Set(sqrtRatioConsts[1])
	}
	for i := 0; i < 19; i++ {
		if absTick&(1<<(i+1)) != 0 {
			ratio.Mul(ratio, sqrtRatioConsts[i+2])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up so the inverse conversion round-trips.
	remainder := new(uint256.Int).Mod(ratio, oneShift32)
	ratio.Rsh(ratio, 32)
	if !remainder.IsZero() {
		ratio.AddUint64(ratio, 1)
	}

	return ratio.ToBig(), nil
}

// SqrtPriceToTick returns the largest tick whose sqrt price is at most the
// input. It estimates log2 of the input from its bit length, refines the
// fractional part with fourteen squaring-and-shift steps, rescales to a
// log base sqrt(1.0001), and resolves the two candidate ticks bracketing
// the estimate against a re-derived sqrt price.
func SqrtPriceToTick(sqrtPrice *big.Int) (int32, error) {
	if sqrtPrice == nil || sqrtPrice.Cmp(MinSqrtPrice) < 0 || sqrtPrice.Cmp(MaxSqrtPrice) >= 0 {
		return 0, ErrSqrtPriceOutOfRange
	}

	ratio := new(big.Int).Lsh(sqrtPrice, 32)
	msb := ratio.BitLen() - 1

	r := new(big.Int)
	if msb >= 128 {
		r.Rsh(ratio, uint(msb-127))
	} else {
		r.Lsh(ratio, uint(127-msb))
	}

	// Signed Q64.64 integer part of log2.
	log2 := big.NewInt(int64(msb) - 128)
	log2.Lsh(log2, 64)

	for shift := 63; shift >= 50; shift-- {
		r.Mul(r, r)
		r.Rsh(r, 127)
		if r.BitLen() >= 129 { // r >= 2^128: integer bit of the square

			log2.Or(log2, new(big.Int).Lsh(big.NewInt(1), uint(shift)))
			r.Rsh(r, 1)
		}
	}

	logSqrt := new(big.Int).Mul(log2, logSqrt10001)

	tickLow := new(big.Int).Sub(logSqrt, tickLowMargin)
	tickLow.Rsh(tickLow, 128)
	tickHigh := new(big.Int).Add(logSqrt, tickHighMargin)
	tickHigh.Rsh(tickHigh, 128)

	low := int32(tickLow.Int64())
	high := int32(tickHigh.Int64())
	if low == high {
		return low, nil
	}

	highSqrtPrice, err := TickToSqrtPrice(high)
	if err != nil {
		return 0, err
	}
	if highSqrtPrice.Cmp(sqrtPrice) <= 0 {
		return high, nil
	}
	return low, nil
}
