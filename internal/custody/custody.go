package custody

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidityVault/internal/fixedpoint"
	"liquidityVault/internal/valuation"
	"liquidityVault/internal/vault"
)

var (
	ErrUnknownPosition  = errors.New("custody: unknown position")
	ErrNotOwner         = errors.New("custody: caller does not own position")
	ErrDeadlineExceeded = errors.New("custody: deadline exceeded")
	ErrSlippage         = errors.New("custody: amounts below minimums")
)

type position struct {
	owner     common.Address
	token0    common.Address
	token1    common.Address
	tickLower int32
	tickUpper int32
	liquidity *big.Int
	owed0     *big.Int
	owed1     *big.Int
}

// Manager is an in-memory position custodian. It mirrors the liquidity
// accounting of an on-chain position manager: increases consume token
// amounts at the current pool price, decreases convert liquidity back into
// owed amounts, and collects pay owed amounts out to a recipient.
type Manager struct {
	source vault.MarketSource

	mu        sync.Mutex
	nextID    uint64
	positions map[uint64]*position
	paid0     map[common.Address]*big.Int
	paid1     map[common.Address]*big.Int
}

func NewManager(source vault.MarketSource) *Manager {
	return &Manager{
		source:    source,
		nextID:    1,
		positions: make(map[uint64]*position),
		paid0:     make(map[common.Address]*big.Int),
		paid1:     make(map[common.Address]*big.Int),
	}
}

// Mint creates a position owned by owner and returns its id.
func (m *Manager) Mint(owner, token0, token1 common.Address, tickLower, tickUpper int32, liquidity *big.Int) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.positions[id] = &position{
		owner:     owner,
		token0:    token0,
		token1:    token1,
		tickLower: tickLower,
		tickUpper: tickUpper,
		liquidity: new(big.Int).Set(liquidity),
		owed0:     new(big.Int),
		owed1:     new(big.Int),
	}
	return id
}

// AccrueOwed adds uncollected amounts to a position, standing in for fee
// growth between operations.
func (m *Manager) AccrueOwed(id uint64, owed0, owed1 *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	pos.owed0.Add(pos.owed0, owed0)
	pos.owed1.Add(pos.owed1, owed1)
	return nil
}

// Owner returns the current owner of a position.
func (m *Manager) Owner(id uint64) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	return pos.owner, nil
}

// Paid returns the cumulative amounts collected to a recipient.
func (m *Manager) Paid(recipient common.Address) (*big.Int, *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount0, amount1 := new(big.Int), new(big.Int)
	if v := m.paid0[recipient]; v != nil {
		amount0.Set(v)
	}
	if v := m.paid1[recipient]; v != nil {
		amount1.Set(v)
	}
	return amount0, amount1
}

func (m *Manager) PositionInfo(ctx context.Context, id uint64) (vault.PositionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return vault.PositionInfo{}, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	return vault.PositionInfo{
		Token0:    pos.token0,
		Token1:    pos.token1,
		TickLower: pos.tickLower,
		TickUpper: pos.tickUpper,
		Liquidity: new(big.Int).Set(pos.liquidity),
		Owed0:     new(big.Int).Set(pos.owed0),
		Owed1:     new(big.Int).Set(pos.owed1),
	}, nil
}

func (m *Manager) IncreaseLiquidity(ctx context.Context, id uint64, desired0, desired1, min0, min1 *big.Int, deadline time.Time) (*big.Int, *big.Int, *big.Int, error) {
	if err := checkDeadline(deadline); err != nil {
		return nil, nil, nil, err
	}
	sqrtPrice, err := m.source.CurrentSqrtPrice(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}

	sqrtLower, sqrtUpper, err := rangeSqrtPrices(pos.tickLower, pos.tickUpper)
	if err != nil {
		return nil, nil, nil, err
	}
	liquidity, err := valuation.LiquidityForAmounts(sqrtPrice, sqrtLower, sqrtUpper, desired0, desired1)
	if err != nil {
		return nil, nil, nil, err
	}
	used0, used1, err := valuation.Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		return nil, nil, nil, err
	}
	if used0.Cmp(min0) < 0 || used1.Cmp(min1) < 0 {
		return nil, nil, nil, fmt.Errorf("%w: used %s/%s, minimums %s/%s", ErrSlippage, used0, used1, min0, min1)
	}

	pos.liquidity.Add(pos.liquidity, liquidity)
	return liquidity, used0, used1, nil
}

func (m *Manager) DecreaseLiquidity(ctx context.Context, id uint64, liquidity, min0, min1 *big.Int, deadline time.Time) (*big.Int, *big.Int, error) {
	if err := checkDeadline(deadline); err != nil {
		return nil, nil, err
	}
	sqrtPrice, err := m.source.CurrentSqrtPrice(ctx)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	if liquidity.Cmp(pos.liquidity) > 0 {
		return nil, nil, fmt.Errorf("custody: decrease %s exceeds position liquidity %s", liquidity, pos.liquidity)
	}

	sqrtLower, sqrtUpper, err := rangeSqrtPrices(pos.tickLower, pos.tickUpper)
	if err != nil {
		return nil, nil, err
	}
	amount0, amount1, err := valuation.Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		return nil, nil, err
	}
	if amount0.Cmp(min0) < 0 || amount1.Cmp(min1) < 0 {
		return nil, nil, fmt.Errorf("%w: amounts %s/%s, minimums %s/%s", ErrSlippage, amount0, amount1, min0, min1)
	}

	pos.liquidity.Sub(pos.liquidity, liquidity)
	pos.owed0.Add(pos.owed0, amount0)
	pos.owed1.Add(pos.owed1, amount1)
	return amount0, amount1, nil
}

func (m *Manager) Collect(ctx context.Context, id uint64, recipient common.Address, max0, max1 *big.Int) (*big.Int, *big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}

	collected0 := bigMin(pos.owed0, max0)
	collected1 := bigMin(pos.owed1, max1)
	pos.owed0.Sub(pos.owed0, collected0)
	pos.owed1.Sub(pos.owed1, collected1)

	if m.paid0[recipient] == nil {
		m.paid0[recipient] = new(big.Int)
		m.paid1[recipient] = new(big.Int)
	}
	m.paid0[recipient].Add(m.paid0[recipient], collected0)
	m.paid1[recipient].Add(m.paid1[recipient], collected1)
	return collected0, collected1, nil
}

func (m *Manager) TransferCustody(ctx context.Context, from, to common.Address, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	if pos.owner != from {
		return fmt.Errorf("%w: %s", ErrNotOwner, from.Hex())
	}
	pos.owner = to
	return nil
}

func rangeSqrtPrices(tickLower, tickUpper int32) (*big.Int, *big.Int, error) {
	sqrtLower, err := fixedpoint.TickToSqrtPrice(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := fixedpoint.TickToSqrtPrice(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	return sqrtLower, sqrtUpper, nil
}

func checkDeadline(deadline time.Time) error {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return fmt.Errorf("%w: %s", ErrDeadlineExceeded, deadline)
	}
	return nil
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
