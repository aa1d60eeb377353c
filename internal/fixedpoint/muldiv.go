package fixedpoint

import (
	"errors"
	"math/big"
)

var (
	ErrOverflow        = errors.New("result exceeds 256 bits")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrNegativeOperand = errors.New("negative operand")
)

// maxResultBits is the width of the reference market's native word.
const maxResultBits = 256

// MulDiv computes floor(a*b/denom) with full intermediate precision.
// Operands must be non-negative: truncating division only floors on that
// domain. The 512-bit intermediate product never overflows; the call fails
// only when the quotient itself does not fit in 256 bits.
func MulDiv(a, b, denom *big.Int) (*big.Int, error) {
	if denom == nil || denom.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if a.Sign() < 0 || b.Sign() < 0 || denom.Sign() < 0 {
		return nil, ErrNegativeOperand
	}
	product := new(big.Int).Mul(a, b)
	quotient := product.Quo(product, denom)
	if quotient.BitLen() > maxResultBits {
		return nil, ErrOverflow
	}
	return quotient, nil
}
