package model

import (
	"encoding/json"
	"fmt"
)

// Operation kinds recorded in the journal.
const (
	OpAcceptPosition  = "accept_position"
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpWithdrawWhole   = "withdraw_whole"
	OpRebalance       = "rebalance"
	OpLiquidate       = "liquidate"
)

// OperationRecord is one successful vault operation in the journal. Big
// integers are decimal strings; unused fields stay empty for kinds they do
// not apply to.
type OperationRecord struct {
	Seq    uint64 `json:"seq"`
	Kind   string `json:"kind"`
	Caller string `json:"caller"`
	// Counterparty is the account credited when it is not the caller: the
	// depositor on a rebalance, the recipient on a liquidation.
	Counterparty string `json:"counterparty,omitempty"`
	// Holder is the account debited by a liquidation.
	Holder     string `json:"holder,omitempty"`
	PositionID uint64 `json:"position_id,omitempty"`
	Shares     string `json:"shares,omitempty"`
	Liquidity  string `json:"liquidity,omitempty"`
	Amount0    string `json:"amount0,omitempty"`
	Amount1    string `json:"amount1,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// Validate checks the fields replay depends on.
func (r OperationRecord) Validate() error {
	switch r.Kind {
	case OpAcceptPosition, OpAddLiquidity, OpRemoveLiquidity, OpWithdrawWhole, OpRebalance, OpLiquidate:
	default:
		return fmt.Errorf("unknown operation kind %q", r.Kind)
	}
	if r.Caller == "" {
		return fmt.Errorf("operation %d: caller required", r.Seq)
	}
	if r.Kind == OpLiquidate && (r.Holder == "" || r.Counterparty == "") {
		return fmt.Errorf("operation %d: liquidation requires holder and counterparty", r.Seq)
	}
	return nil
}

// MarshalJSON ensures OperationRecord is encoded with stable field names.
func (r OperationRecord) MarshalJSON() ([]byte, error) {
	type Alias OperationRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes an OperationRecord from JSON.
func (r *OperationRecord) UnmarshalJSON(data []byte) error {
	type Alias OperationRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = OperationRecord(a)
	return nil
}
