package ledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityVault/internal/fixedpoint"
)

var (
	ErrZeroShares          = errors.New("deposit too small for any shares")
	ErrInsufficientBalance = errors.New("insufficient share balance")
	ErrInvalidAmount       = errors.New("share amount must be positive")
	ErrZeroAddress         = errors.New("zero holder address")
)

// Ledger tracks fungible proportional-ownership shares. The total always
// equals the sum of holder balances; mint and burn move both together,
// reassignment moves neither.
type Ledger struct {
	total    *big.Int
	balances map[common.Address]*big.Int
}

func New() *Ledger {
	return &Ledger{
		total:    new(big.Int),
		balances: make(map[common.Address]*big.Int),
	}
}

// TotalShares returns the current total supply.
func (l *Ledger) TotalShares() *big.Int {
	return new(big.Int).Set(l.total)
}

// BalanceOf returns the holder's share balance.
func (l *Ledger) BalanceOf(holder common.Address) *big.Int {
	if balance, ok := l.balances[holder]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// Holders returns the addresses with a nonzero balance.
func (l *Ledger) Holders() []common.Address {
	holders := make([]common.Address, 0, len(l.balances))
	for holder := range l.balances {
		holders = append(holders, holder)
	}
	return holders
}

// MintForDeposit computes the shares owed for a deposit of the given value
// against a pre-deposit supply/value snapshot. The first deposit into an
// empty ledger bootstraps one share per value unit. A later deposit mints
// floor(depositValue * oldSupply / oldTotalValue); a zero oldTotalValue is
// substituted with 1 so the division cannot trap. A nonzero deposit that
// floors to zero shares is rejected outside the bootstrap case.
func MintForDeposit(depositValue, oldSupply, oldTotalValue *big.Int) (*big.Int, error) {
	if depositValue == nil || depositValue.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if oldSupply == nil || oldSupply.Sign() == 0 {
		return new(big.Int).Set(depositValue), nil
	}

	denom := oldTotalValue
	if denom == nil || denom.Sign() == 0 {
		denom = big.NewInt(1)
	}

	shares, err := fixedpoint.MulDiv(depositValue, oldSupply, denom)
	if err != nil {
		return nil, err
	}
	if shares.Sign() == 0 && depositValue.Sign() > 0 {
		return nil, ErrZeroShares
	}
	return shares, nil
}

// Credit mints shares to a holder, increasing the total supply.
func (l *Ledger) Credit(holder common.Address, shares *big.Int) error {
	if holder == (common.Address{}) {
		return ErrZeroAddress
	}
	if shares == nil || shares.Sign() < 0 {
		return ErrInvalidAmount
	}
	if shares.Sign() == 0 {
		return nil
	}

	balance, ok := l.balances[holder]
	if !ok {
		balance = new(big.Int)
		l.balances[holder] = balance
	}
	balance.Add(balance, shares)
	l.total.Add(l.total, shares)
	return nil
}

// Burn destroys shares held by a holder, decreasing the total supply.
func (l *Ledger) Burn(holder common.Address, shares *big.Int) error {
	if shares == nil || shares.Sign() < 0 {
		return ErrInvalidAmount
	}
	if shares.Sign() == 0 {
		return nil
	}

	balance, ok := l.balances[holder]
	if !ok || balance.Cmp(shares) < 0 {
		return ErrInsufficientBalance
	}
	balance.Sub(balance, shares)
	if balance.Sign() == 0 {
		delete(l.balances, holder)
	}
	l.total.Sub(l.total, shares)
	return nil
}

// Reassign moves shares between holders without touching the total supply.
// Used by the liquidation path only: a seizure transfers ownership, it
// never creates it.
func (l *Ledger) Reassign(from, to common.Address, shares *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if shares == nil || shares.Sign() <= 0 {
		return ErrInvalidAmount
	}

	fromBalance, ok := l.balances[from]
	if !ok || fromBalance.Cmp(shares) < 0 {
		return ErrInsufficientBalance
	}

	toBalance, ok := l.balances[to]
	if !ok {
		toBalance = new(big.Int)
		l.balances[to] = toBalance
	}

	fromBalance.Sub(fromBalance, shares)
	toBalance.Add(toBalance, shares)
	if fromBalance.Sign() == 0 {
		delete(l.balances, from)
	}
	return nil
}
