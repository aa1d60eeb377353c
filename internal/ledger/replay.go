package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityVault/internal/model"
)

// Replay rebuilds a share ledger from a journal of operation records
// applied in order. The journal only holds successful operations, so any
// failure here means the journal itself is damaged.
func Replay(records []model.OperationRecord) (*Ledger, error) {
	l := New()
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		shares, err := parseShares(r.Shares)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
		}
		if shares.Sign() == 0 {
			continue
		}

		switch r.Kind {
		case model.OpAcceptPosition, model.OpAddLiquidity:
			caller, err := parseAddress(r.Caller)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
			if err := l.Credit(caller, shares); err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
		case model.OpRemoveLiquidity, model.OpWithdrawWhole:
			caller, err := parseAddress(r.Caller)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
			if err := l.Burn(caller, shares); err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
		case model.OpRebalance:
			depositor, err := parseAddress(r.Counterparty)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
			if err := l.Credit(depositor, shares); err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
		case model.OpLiquidate:
			holder, err := parseAddress(r.Holder)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
			recipient, err := parseAddress(r.Counterparty)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
			if err := l.Reassign(holder, recipient, shares); err != nil {
				return nil, fmt.Errorf("operation %d: %w", r.Seq, err)
			}
		}
	}
	return l, nil
}

func parseShares(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bad share amount %q", s)
	}
	return v, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("bad address %q", s)
	}
	return common.HexToAddress(s), nil
}
