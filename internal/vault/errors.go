package vault

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownPosition   = errors.New("unknown position")
	ErrDuplicatePosition = errors.New("position already held")
	ErrPaused            = errors.New("vault is paused")
	ErrNotPaused         = errors.New("vault is not paused")
	ErrMarketMismatch    = errors.New("position does not belong to the required market")
	ErrSlippage          = errors.New("slippage limit exceeded")
	ErrNotAuthorized     = errors.New("caller not authorized")
	ErrBusy              = errors.New("vault operation in progress")
	ErrSeizeTooLarge     = errors.New("seizure exceeds the liquidation cap")
	ErrBpsOutOfRange     = errors.New("basis points parameter exceeds 10000")
)
