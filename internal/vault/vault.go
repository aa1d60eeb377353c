package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityVault/internal/fixedpoint"
	"liquidityVault/internal/ledger"
	"liquidityVault/internal/model"
	"liquidityVault/internal/pricing"
	"liquidityVault/internal/storage"
	"liquidityVault/internal/valuation"
)

// Config wires a vault instance.
type Config struct {
	Market     Market
	Self       common.Address
	Authority  common.Address
	Liquidator common.Address
	Params     Params

	// Journal, when set, receives a record of every successful mutating
	// operation. Append failures are logged, not surfaced: the journal is
	// an audit trail, not a consistency mechanism.
	Journal storage.Journal
}

// Vault tokenizes ownership of concentrated-liquidity positions into
// proportional shares. It owns its position set and share ledger; pricing
// and valuation are pure functions over injected collaborators.
//
// Every mutating operation runs as one atomic unit: all fallible steps
// (custody reads, feed queries, external calls) complete before any state
// mutation, so a failed operation leaves the vault unchanged. A busy flag
// rejects reentrant or concurrent entry instead of interleaving, and the
// commit itself runs under the structural lock so concurrent readers see
// either the whole operation or none of it.
type Vault struct {
	market     Market
	self       common.Address
	authority  common.Address
	liquidator common.Address

	custody    CustodyManager
	source     MarketSource
	resolver   *pricing.Resolver
	rebalancer Rebalancer
	logger     *zap.Logger
	journal    storage.Journal
	seq        uint64

	mu        sync.Mutex
	busy      bool
	paused    bool
	params    Params
	positions map[uint64]*Position
	shares    *ledger.Ledger
}

func New(cfg Config, custody CustodyManager, source MarketSource, resolver *pricing.Resolver, rebalancer Rebalancer, logger *zap.Logger) (*Vault, error) {
	if cfg.Self == (common.Address{}) || cfg.Authority == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero vault or authority address", ErrInvalidInput)
	}
	if custody == nil || source == nil || resolver == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrInvalidInput)
	}
	if err := validateParams(cfg.Params); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Vault{
		market:     cfg.Market,
		self:       cfg.Self,
		authority:  cfg.Authority,
		liquidator: cfg.Liquidator,
		custody:    custody,
		source:     source,
		resolver:   resolver,
		rebalancer: rebalancer,
		logger:     logger,
		journal:    cfg.Journal,
		params:     cfg.Params,
		positions:  make(map[uint64]*Position),
		shares:     ledger.New(),
	}, nil
}

func validateParams(p Params) error {
	if p.LiquidationFeeBps > bpsDenominator || p.MaxLiquidationBps > bpsDenominator || p.MaxSlippageBps > bpsDenominator {
		return ErrBpsOutOfRange
	}
	return nil
}

// enter claims the vault's execution lock. A collaborator that calls back
// into the vault mid-operation finds the flag set and fails instead of
// observing in-progress state.
func (v *Vault) enter() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.busy {
		return ErrBusy
	}
	if v.paused {
		return ErrPaused
	}
	v.busy = true
	return nil
}

func (v *Vault) exit() {
	v.mu.Lock()
	v.busy = false
	v.mu.Unlock()
}

// record journals a completed operation. Only called with the busy flag
// held, after all state mutation succeeded.
func (v *Vault) record(rec model.OperationRecord) {
	if v.journal == nil {
		return
	}
	v.seq++
	rec.Seq = v.seq
	rec.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := v.journal.AppendOperations([]model.OperationRecord{rec}); err != nil {
		v.logger.Warn("journal append failed",
			zap.Uint64("seq", rec.Seq),
			zap.String("kind", rec.Kind),
			zap.Error(err),
		)
	}
}

// Snapshot captures the vault's full state for persistence.
func (v *Vault) Snapshot() model.VaultSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := model.VaultSnapshot{
		Vault:       v.self.Hex(),
		TotalShares: v.shares.TotalShares().String(),
		TakenAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, holder := range v.shares.Holders() {
		snap.Holders = append(snap.Holders, model.HolderBalance{
			Holder: holder.Hex(),
			Shares: v.shares.BalanceOf(holder).String(),
		})
	}
	for _, pos := range v.positions {
		snap.Positions = append(snap.Positions, model.PositionRecord{
			ID:           pos.ID,
			TickLower:    pos.TickLower,
			TickUpper:    pos.TickUpper,
			Liquidity:    pos.Liquidity.String(),
			Owed0:        pos.Owed0.String(),
			Owed1:        pos.Owed1.String(),
			Depositor:    pos.Depositor.Hex(),
			MintedShares: pos.MintedShares.String(),
		})
	}
	return snap
}

// TotalShares returns the vault's share supply.
func (v *Vault) TotalShares() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shares.TotalShares()
}

// BalanceOf returns a holder's share balance.
func (v *Vault) BalanceOf(holder common.Address) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shares.BalanceOf(holder)
}

// Holders returns the addresses holding shares.
func (v *Vault) Holders() []common.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shares.Holders()
}

// Position returns a copy of a held position.
func (v *Vault) Position(id uint64) (Position, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos, ok := v.positions[id]
	if !ok {
		return Position{}, false
	}
	return clonePosition(pos), true
}

// Positions returns copies of all held positions.
func (v *Vault) Positions() []Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Position, 0, len(v.positions))
	for _, pos := range v.positions {
		out = append(out, clonePosition(pos))
	}
	return out
}

// Market returns the required market.
func (v *Vault) Market() Market { return v.market }

// Params returns the current basis-point parameters.
func (v *Vault) Params() Params {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

// Paused reports the pause flag.
func (v *Vault) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// SetParams replaces the basis-point parameters. Authority only.
func (v *Vault) SetParams(caller common.Address, p Params) error {
	if caller != v.authority {
		return ErrNotAuthorized
	}
	if err := validateParams(p); err != nil {
		return err
	}
	v.mu.Lock()
	v.params = p
	v.mu.Unlock()
	return nil
}

// Pause blocks new mutating operations. Authority only.
func (v *Vault) Pause(caller common.Address) error {
	if caller != v.authority {
		return ErrNotAuthorized
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.paused {
		return ErrPaused
	}
	v.paused = true
	return nil
}

// Unpause re-enables mutating operations. Authority only.
func (v *Vault) Unpause(caller common.Address) error {
	if caller != v.authority {
		return ErrNotAuthorized
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.paused {
		return ErrNotPaused
	}
	v.paused = false
	return nil
}

// ReserveAmounts sums the reserve amounts of all held positions at the
// current market price, uncollected amounts included. Also serves derived
// share pricing (pricing.VaultReader).
func (v *Vault) ReserveAmounts(ctx context.Context) (*big.Int, *big.Int, error) {
	sqrtPrice, err := v.source.CurrentSqrtPrice(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("market price: %w", err)
	}
	return v.reserveAmountsAt(sqrtPrice)
}

func (v *Vault) reserveAmountsAt(sqrtPrice *big.Int) (*big.Int, *big.Int, error) {
	v.mu.Lock()
	positions := make([]Position, 0, len(v.positions))
	for _, pos := range v.positions {
		positions = append(positions, clonePosition(pos))
	}
	v.mu.Unlock()

	total0, total1 := new(big.Int), new(big.Int)
	for _, pos := range positions {
		amount0, amount1, err := positionAmounts(sqrtPrice, pos.TickLower, pos.TickUpper, pos.Liquidity, pos.Owed0, pos.Owed1)
		if err != nil {
			return nil, nil, fmt.Errorf("position %d: %w", pos.ID, err)
		}
		total0.Add(total0, amount0)
		total1.Add(total1, amount1)
	}
	return total0, total1, nil
}

// TotalValue prices all held reserves in the common unit.
func (v *Vault) TotalValue(ctx context.Context) (*big.Int, error) {
	quote, err := v.quoteMarket(ctx)
	if err != nil {
		return nil, err
	}
	return v.totalValueAt(quote)
}

func (v *Vault) totalValueAt(quote *marketQuote) (*big.Int, error) {
	amount0, amount1, err := v.reserveAmountsAt(quote.sqrtPrice)
	if err != nil {
		return nil, err
	}
	return quote.value(amount0, amount1)
}

// AcceptPosition takes custody of a position, values it, and mints shares
// to the depositor: one share per value unit on the first deposit, floor
// pro-rata afterwards.
func (v *Vault) AcceptPosition(ctx context.Context, depositor common.Address, id uint64) (*big.Int, error) {
	if err := v.enter(); err != nil {
		return nil, err
	}
	defer v.exit()

	if depositor == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero depositor", ErrInvalidInput)
	}
	if _, held := v.positions[id]; held {
		return nil, fmt.Errorf("%w: %d", ErrDuplicatePosition, id)
	}

	info, err := v.custody.PositionInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("custody info for %d: %w", id, err)
	}
	if info.Token0 != v.market.Token0 || info.Token1 != v.market.Token1 {
		return nil, fmt.Errorf("%w: position %d", ErrMarketMismatch, id)
	}

	quote, err := v.quoteMarket(ctx)
	if err != nil {
		return nil, err
	}
	amount0, amount1, err := positionAmounts(quote.sqrtPrice, info.TickLower, info.TickUpper, info.Liquidity, info.Owed0, info.Owed1)
	if err != nil {
		return nil, fmt.Errorf("value position %d: %w", id, err)
	}
	depositValue, err := quote.value(amount0, amount1)
	if err != nil {
		return nil, err
	}

	oldSupply := v.shares.TotalShares()
	oldTotalValue, err := v.totalValueAt(quote)
	if err != nil {
		return nil, err
	}

	minted, err := ledger.MintForDeposit(depositValue, oldSupply, oldTotalValue)
	if err != nil {
		return nil, err
	}

	if err := v.custody.TransferCustody(ctx, depositor, v.self, id); err != nil {
		return nil, fmt.Errorf("transfer custody of %d: %w", id, err)
	}

	err = v.commit(func() error {
		if err := v.shares.Credit(depositor, minted); err != nil {
			return err
		}
		v.positions[id] = &Position{
			ID:           id,
			Token0:       info.Token0,
			Token1:       info.Token1,
			TickLower:    info.TickLower,
			TickUpper:    info.TickUpper,
			Liquidity:    new(big.Int).Set(info.Liquidity),
			Owed0:        new(big.Int).Set(info.Owed0),
			Owed1:        new(big.Int).Set(info.Owed1),
			Depositor:    depositor,
			MintedShares: new(big.Int).Set(minted),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logger.Info("position accepted",
		zap.Uint64("position", id),
		zap.String("depositor", depositor.Hex()),
		zap.String("value", depositValue.String()),
		zap.String("minted", minted.String()),
	)
	v.record(model.OperationRecord{
		Kind:       model.OpAcceptPosition,
		Caller:     depositor.Hex(),
		PositionID: id,
		Shares:     minted.String(),
		Liquidity:  info.Liquidity.String(),
	})
	return minted, nil
}

// AddLiquidity grows a held position. Minimum amounts are derived from the
// configured slippage bound; minted shares are the proportional increase
// in valuation, computed against the pre-operation snapshot.
func (v *Vault) AddLiquidity(ctx context.Context, caller common.Address, id uint64, desired0, desired1 *big.Int, deadline time.Time) (*big.Int, error) {
	if err := v.enter(); err != nil {
		return nil, err
	}
	defer v.exit()

	if caller == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero caller", ErrInvalidInput)
	}
	if desired0 == nil || desired0.Sign() <= 0 || desired1 == nil || desired1.Sign() <= 0 {
		return nil, fmt.Errorf("%w: desired amounts must be positive", ErrInvalidInput)
	}
	pos, held := v.positions[id]
	if !held {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}

	min0, min1, err := v.slippageMinimums(desired0, desired1)
	if err != nil {
		return nil, err
	}

	quote, err := v.quoteMarket(ctx)
	if err != nil {
		return nil, err
	}
	oldSupply := v.shares.TotalShares()
	oldTotalValue, err := v.totalValueAt(quote)
	if err != nil {
		return nil, err
	}

	liquidityAdded, used0, used1, err := v.custody.IncreaseLiquidity(ctx, id, desired0, desired1, min0, min1, deadline)
	if err != nil {
		return nil, fmt.Errorf("increase liquidity on %d: %w", id, err)
	}
	if used0.Cmp(min0) < 0 || used1.Cmp(min1) < 0 {
		return nil, fmt.Errorf("%w: used %s/%s below minimums %s/%s", ErrSlippage, used0, used1, min0, min1)
	}

	valueAdded, err := quote.value(used0, used1)
	if err != nil {
		return nil, err
	}
	minted, err := ledger.MintForDeposit(valueAdded, oldSupply, oldTotalValue)
	if err != nil {
		return nil, err
	}

	err = v.commit(func() error {
		if err := v.shares.Credit(caller, minted); err != nil {
			return err
		}
		pos.Liquidity.Add(pos.Liquidity, liquidityAdded)
		pos.MintedShares.Add(pos.MintedShares, minted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logger.Info("liquidity added",
		zap.Uint64("position", id),
		zap.String("liquidity", liquidityAdded.String()),
		zap.String("minted", minted.String()),
	)
	v.record(model.OperationRecord{
		Kind:       model.OpAddLiquidity,
		Caller:     caller.Hex(),
		PositionID: id,
		Shares:     minted.String(),
		Liquidity:  liquidityAdded.String(),
		Amount0:    used0.String(),
		Amount1:    used1.String(),
	})
	return minted, nil
}

// RemoveLiquidity burns shares and pays out the proportional slice of the
// position's liquidity. Liquidity and payout come from the same pre-burn
// supply snapshot, so the burn cannot shift its own price. A burn whose
// liquidity slice floors to zero still burns the shares and pays nothing.
func (v *Vault) RemoveLiquidity(ctx context.Context, caller common.Address, id uint64, sharesToBurn *big.Int, deadline time.Time) (*big.Int, *big.Int, error) {
	if err := v.enter(); err != nil {
		return nil, nil, err
	}
	defer v.exit()

	if sharesToBurn == nil || sharesToBurn.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: shares must be positive", ErrInvalidInput)
	}
	pos, held := v.positions[id]
	if !held {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	if v.shares.BalanceOf(caller).Cmp(sharesToBurn) < 0 {
		return nil, nil, ledger.ErrInsufficientBalance
	}
	if sharesToBurn.Cmp(pos.MintedShares) > 0 {
		return nil, nil, fmt.Errorf("%w: burn exceeds shares minted for position %d", ErrInvalidInput, id)
	}

	oldSupply := v.shares.TotalShares()
	liquidityOut, err := fixedpoint.MulDiv(pos.Liquidity, sharesToBurn, oldSupply)
	if err != nil {
		return nil, nil, err
	}

	amount0, amount1 := new(big.Int), new(big.Int)
	if liquidityOut.Sign() > 0 {
		amount0, amount1, err = v.custody.DecreaseLiquidity(ctx, id, liquidityOut, new(big.Int), new(big.Int), deadline)
		if err != nil {
			return nil, nil, fmt.Errorf("decrease liquidity on %d: %w", id, err)
		}
		if _, _, err := v.custody.Collect(ctx, id, caller, amount0, amount1); err != nil {
			return nil, nil, fmt.Errorf("collect from %d: %w", id, err)
		}
	}

	err = v.commit(func() error {
		if err := v.shares.Burn(caller, sharesToBurn); err != nil {
			return err
		}
		pos.Liquidity.Sub(pos.Liquidity, liquidityOut)
		pos.MintedShares.Sub(pos.MintedShares, sharesToBurn)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	v.logger.Info("liquidity removed",
		zap.Uint64("position", id),
		zap.String("burned", sharesToBurn.String()),
		zap.String("liquidity", liquidityOut.String()),
	)
	v.record(model.OperationRecord{
		Kind:       model.OpRemoveLiquidity,
		Caller:     caller.Hex(),
		PositionID: id,
		Shares:     sharesToBurn.String(),
		Liquidity:  liquidityOut.String(),
		Amount0:    amount0.String(),
		Amount1:    amount1.String(),
	})
	return amount0, amount1, nil
}

// WithdrawWhole releases the entire position to a caller still holding the
// full mint against it, and clears its ledger entry.
func (v *Vault) WithdrawWhole(ctx context.Context, caller common.Address, id uint64) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.exit()

	pos, held := v.positions[id]
	if !held {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	if v.shares.BalanceOf(caller).Cmp(pos.MintedShares) < 0 {
		return ledger.ErrInsufficientBalance
	}

	if err := v.custody.TransferCustody(ctx, v.self, caller, id); err != nil {
		return fmt.Errorf("release custody of %d: %w", id, err)
	}

	err := v.commit(func() error {
		if err := v.shares.Burn(caller, pos.MintedShares); err != nil {
			return err
		}
		delete(v.positions, id)
		return nil
	})
	if err != nil {
		return err
	}

	v.logger.Info("position withdrawn",
		zap.Uint64("position", id),
		zap.String("burned", pos.MintedShares.String()),
	)
	v.record(model.OperationRecord{
		Kind:       model.OpWithdrawWhole,
		Caller:     caller.Hex(),
		PositionID: id,
		Shares:     pos.MintedShares.String(),
	})
	return nil
}

// Rebalance hands the position to the rebalancer, then re-reads custody
// state. Value the rebalancer compounded into the position mints shares to
// the original depositor; compounded dust too small for a share is left in
// the vault.
func (v *Vault) Rebalance(ctx context.Context, caller common.Address, id uint64, plan []byte) error {
	if caller != v.authority {
		return ErrNotAuthorized
	}
	if v.rebalancer == nil {
		return fmt.Errorf("%w: no rebalancer configured", ErrInvalidInput)
	}
	if err := v.enter(); err != nil {
		return err
	}
	defer v.exit()

	pos, held := v.positions[id]
	if !held {
		return fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}

	quote, err := v.quoteMarket(ctx)
	if err != nil {
		return err
	}
	oldSupply := v.shares.TotalShares()
	oldTotalValue, err := v.totalValueAt(quote)
	if err != nil {
		return err
	}

	err = v.rebalancer.Rebalance(ctx, RebalanceRequest{
		PositionID: id,
		TickLower:  pos.TickLower,
		TickUpper:  pos.TickUpper,
		Liquidity:  new(big.Int).Set(pos.Liquidity),
		Plan:       plan,
	})
	if err != nil {
		return fmt.Errorf("rebalance %d: %w", id, err)
	}

	info, err := v.custody.PositionInfo(ctx, id)
	if err != nil {
		return fmt.Errorf("custody info for %d: %w", id, err)
	}
	if info.Token0 != v.market.Token0 || info.Token1 != v.market.Token1 {
		return fmt.Errorf("%w: position %d after rebalance", ErrMarketMismatch, id)
	}

	// Re-valued at the pre-rebalance quote, so the surplus measures what
	// the rebalancer compounded in, not a price move during the call.
	amount0, amount1, err := positionAmounts(quote.sqrtPrice, info.TickLower, info.TickUpper, info.Liquidity, info.Owed0, info.Owed1)
	if err != nil {
		return fmt.Errorf("value position %d: %w", id, err)
	}
	newTotalValue, err := quote.value(amount0, amount1)
	if err != nil {
		return err
	}
	minted := new(big.Int)
	if newTotalValue.Cmp(oldTotalValue) > 0 && oldSupply.Sign() > 0 {
		surplus := new(big.Int).Sub(newTotalValue, oldTotalValue)
		minted, err = ledger.MintForDeposit(surplus, oldSupply, oldTotalValue)
		if errors.Is(err, ledger.ErrZeroShares) {
			minted = new(big.Int)
		} else if err != nil {
			return err
		}
	}

	err = v.commit(func() error {
		pos.TickLower = info.TickLower
		pos.TickUpper = info.TickUpper
		pos.Liquidity.Set(info.Liquidity)
		pos.Owed0.Set(info.Owed0)
		pos.Owed1.Set(info.Owed1)
		if minted.Sign() > 0 {
			if err := v.shares.Credit(pos.Depositor, minted); err != nil {
				return err
			}
			pos.MintedShares.Add(pos.MintedShares, minted)
		}
		return nil
	})
	if err != nil {
		return err
	}

	v.logger.Info("position rebalanced",
		zap.Uint64("position", id),
		zap.Int32("tick_lower", info.TickLower),
		zap.Int32("tick_upper", info.TickUpper),
	)
	v.record(model.OperationRecord{
		Kind:         model.OpRebalance,
		Caller:       caller.Hex(),
		Counterparty: pos.Depositor.Hex(),
		PositionID:   id,
		Shares:       minted.String(),
		Liquidity:    info.Liquidity.String(),
	})
	return nil
}

// Liquidate reassigns shares from an under-collateralized holder to the
// recipient. The fee shares count against the liquidation cap: the holder
// loses seize plus fee, so the cap bounds that total.
func (v *Vault) Liquidate(ctx context.Context, caller, holder, recipient common.Address, seizeAmount *big.Int) (*big.Int, error) {
	if caller != v.liquidator {
		return nil, ErrNotAuthorized
	}
	if err := v.enter(); err != nil {
		return nil, err
	}
	defer v.exit()

	if seizeAmount == nil || seizeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: seize amount must be positive", ErrInvalidInput)
	}
	if recipient == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero recipient", ErrInvalidInput)
	}

	params := v.Params()
	balance := v.shares.BalanceOf(holder)

	feeShares, err := fixedpoint.MulDiv(seizeAmount, big.NewInt(int64(params.LiquidationFeeBps)), big.NewInt(bpsDenominator))
	if err != nil {
		return nil, err
	}
	totalSeize := new(big.Int).Add(seizeAmount, feeShares)

	maxSeizable, err := fixedpoint.MulDiv(balance, big.NewInt(int64(params.MaxLiquidationBps)), big.NewInt(bpsDenominator))
	if err != nil {
		return nil, err
	}
	if totalSeize.Cmp(maxSeizable) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrSeizeTooLarge, totalSeize, maxSeizable)
	}

	if err := v.commit(func() error {
		return v.shares.Reassign(holder, recipient, totalSeize)
	}); err != nil {
		return nil, err
	}

	v.logger.Info("shares seized",
		zap.String("holder", holder.Hex()),
		zap.String("recipient", recipient.Hex()),
		zap.String("seized", totalSeize.String()),
	)
	v.record(model.OperationRecord{
		Kind:         model.OpLiquidate,
		Caller:       caller.Hex(),
		Holder:       holder.Hex(),
		Counterparty: recipient.Hex(),
		Shares:       totalSeize.String(),
	})
	return totalSeize, nil
}

func (v *Vault) slippageMinimums(desired0, desired1 *big.Int) (*big.Int, *big.Int, error) {
	keep := big.NewInt(int64(bpsDenominator - v.Params().MaxSlippageBps))
	min0, err := fixedpoint.MulDiv(desired0, keep, big.NewInt(bpsDenominator))
	if err != nil {
		return nil, nil, err
	}
	min1, err := fixedpoint.MulDiv(desired1, keep, big.NewInt(bpsDenominator))
	if err != nil {
		return nil, nil, err
	}
	return min0, min1, nil
}

// marketQuote pins one operation's view of the market: a single sqrt-price
// fetch and a single feed answer per token. Valuing the deposit and the
// existing reserves against the same quote keeps the pro-rata share math
// self-consistent even if the live price moves mid-operation.
type marketQuote struct {
	sqrtPrice *big.Int

	price0, price1       *big.Int
	priceDec0, priceDec1 uint8
	dec0, dec1           uint8
}

func (v *Vault) quoteMarket(ctx context.Context) (*marketQuote, error) {
	sqrtPrice, err := v.source.CurrentSqrtPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("market price: %w", err)
	}
	price0, priceDec0, err := v.resolver.Price(ctx, v.market.Token0)
	if err != nil {
		return nil, err
	}
	price1, priceDec1, err := v.resolver.Price(ctx, v.market.Token1)
	if err != nil {
		return nil, err
	}
	return &marketQuote{
		sqrtPrice: sqrtPrice,
		price0:    price0,
		price1:    price1,
		priceDec0: priceDec0,
		priceDec1: priceDec1,
		dec0:      v.market.Decimals0,
		dec1:      v.market.Decimals1,
	}, nil
}

// value prices a pair of reserve amounts in the common unit at the quote's
// pinned feed answers.
func (q *marketQuote) value(amount0, amount1 *big.Int) (*big.Int, error) {
	value0, err := pricing.ValueAtPrice(amount0, q.price0, q.dec0, q.priceDec0)
	if err != nil {
		return nil, err
	}
	value1, err := pricing.ValueAtPrice(amount1, q.price1, q.dec1, q.priceDec1)
	if err != nil {
		return nil, err
	}
	return value0.Add(value0, value1), nil
}

// commit applies an operation's state mutation under the structural lock so
// concurrent readers never observe a half-applied operation. Only called
// with the busy flag held, after every fallible step succeeded.
func (v *Vault) commit(fn func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn()
}

func positionAmounts(sqrtPrice *big.Int, tickLower, tickUpper int32, liquidity, owed0, owed1 *big.Int) (*big.Int, *big.Int, error) {
	sqrtLower, err := fixedpoint.TickToSqrtPrice(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := fixedpoint.TickToSqrtPrice(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	return valuation.AmountsWithOwed(sqrtPrice, sqrtLower, sqrtUpper, liquidity, owed0, owed1)
}

func clonePosition(pos *Position) Position {
	return Position{
		ID:           pos.ID,
		Token0:       pos.Token0,
		Token1:       pos.Token1,
		TickLower:    pos.TickLower,
		TickUpper:    pos.TickUpper,
		Liquidity:    new(big.Int).Set(pos.Liquidity),
		Owed0:        new(big.Int).Set(pos.Owed0),
		Owed1:        new(big.Int).Set(pos.Owed1),
		Depositor:    pos.Depositor,
		MintedShares: new(big.Int).Set(pos.MintedShares),
	}
}
