package vault

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Market identifies the one pool a vault's positions are restricted to.
type Market struct {
	Pool      common.Address
	Token0    common.Address
	Token1    common.Address
	Decimals0 uint8
	Decimals1 uint8
}

// Position is a custody object accepted into the vault, together with the
// shares minted against it. Liquidity and owed amounts mirror the custody
// manager's view at the last operation.
type Position struct {
	ID           uint64
	Token0       common.Address
	Token1       common.Address
	TickLower    int32
	TickUpper    int32
	Liquidity    *big.Int
	Owed0        *big.Int
	Owed1        *big.Int
	Depositor    common.Address
	MintedShares *big.Int
}

// Params are the basis-point knobs set by the configuration authority.
// All values are validated against the bps denominator at set time.
type Params struct {
	LiquidationFeeBps uint32
	MaxLiquidationBps uint32
	MaxSlippageBps    uint32
}

const bpsDenominator = 10000

// PositionInfo is the custody manager's view of a position.
type PositionInfo struct {
	Token0    common.Address
	Token1    common.Address
	TickLower int32
	TickUpper int32
	Liquidity *big.Int
	Owed0     *big.Int
	Owed1     *big.Int
}

// CustodyManager holds the underlying position objects. The vault consumes
// it, it does not implement it.
type CustodyManager interface {
	PositionInfo(ctx context.Context, id uint64) (PositionInfo, error)
	IncreaseLiquidity(ctx context.Context, id uint64, desired0, desired1, min0, min1 *big.Int, deadline time.Time) (liquidity, used0, used1 *big.Int, err error)
	DecreaseLiquidity(ctx context.Context, id uint64, liquidity, min0, min1 *big.Int, deadline time.Time) (amount0, amount1 *big.Int, err error)
	Collect(ctx context.Context, id uint64, recipient common.Address, max0, max1 *big.Int) (collected0, collected1 *big.Int, err error)
	TransferCustody(ctx context.Context, from, to common.Address, id uint64) error
}

// MarketSource reports the current sqrt price of the required market.
type MarketSource interface {
	CurrentSqrtPrice(ctx context.Context) (*big.Int, error)
}

// RebalanceRequest hands the position's current shape to the rebalancer.
type RebalanceRequest struct {
	PositionID uint64
	TickLower  int32
	TickUpper  int32
	Liquidity  *big.Int
	Plan       []byte
}

// Rebalancer decides new bounds and liquidity deltas for a position. It
// acts through the custody manager; the vault re-reads custody state when
// it returns.
type Rebalancer interface {
	Rebalance(ctx context.Context, req RebalanceRequest) error
}
