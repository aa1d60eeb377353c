package pricing

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityVault/internal/fixedpoint"
)

var (
	ErrNoConfig       = errors.New("no oracle config for token")
	ErrFeedFailure    = errors.New("price feed failure")
	ErrEmptySupply    = errors.New("derived token has zero share supply")
	ErrRecursionLimit = errors.New("derived price recursion limit exceeded")
)

// derivedPriceDecimals is the fixed precision of derived share prices.
const derivedPriceDecimals uint8 = 18

// maxDerivationDepth bounds recursive derived valuation. One share class
// priced in terms of another resolves; mutual references fail instead of
// recursing without bound.
const maxDerivationDepth = 2

// Resolver turns a token into a price in the common unit, with
// feed-failure fallback and recursive valuation of derived share classes.
// It holds no vault state of its own: all inputs arrive through the config
// store and the vault readers registered in it.
type Resolver struct {
	configs *ConfigStore
	logger  *zap.Logger
}

func NewResolver(configs *ConfigStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{configs: configs, logger: logger}
}

// Price returns the token's price in the common unit and the decimals of
// that price.
func (r *Resolver) Price(ctx context.Context, token common.Address) (*big.Int, uint8, error) {
	return r.price(ctx, token, 0)
}

func (r *Resolver) price(ctx context.Context, token common.Address, depth int) (*big.Int, uint8, error) {
	cfg, ok := r.configs.Oracle(token)
	if !ok {
		if _, derived := r.configs.Derived(token); derived {
			return r.derivedPrice(ctx, token, depth)
		}
		return nil, 0, fmt.Errorf("%w: %s", ErrNoConfig, token.Hex())
	}
	if cfg.Derived {
		return r.derivedPrice(ctx, token, depth)
	}

	answer, decimals, err := queryFeed(ctx, cfg.Primary)
	if err != nil {
		if !cfg.UseFallbackOnError || cfg.Fallback == nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrFeedFailure, token.Hex(), err)
		}
		r.logger.Warn("primary feed failed, using fallback",
			zap.String("token", token.Hex()),
			zap.Error(err),
		)
		answer, decimals, err = queryFeed(ctx, cfg.Fallback)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrFeedFailure, token.Hex(), err)
		}
	}

	if cfg.DecimalsOverride != 0 {
		decimals = cfg.DecimalsOverride
	}
	return answer, decimals, nil
}

// derivedPrice values one share of a derived token: the vault's reserves
// are converted into the common unit and divided by the share supply,
// floored.
func (r *Resolver) derivedPrice(ctx context.Context, token common.Address, depth int) (*big.Int, uint8, error) {
	if depth >= maxDerivationDepth {
		return nil, 0, fmt.Errorf("%w: %s", ErrRecursionLimit, token.Hex())
	}

	cfg, ok := r.configs.Derived(token)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s (derived)", ErrNoConfig, token.Hex())
	}
	if cfg.Vault == nil {
		return nil, 0, fmt.Errorf("%w: %s: no vault reader", ErrNoConfig, token.Hex())
	}

	supply := cfg.Vault.TotalShares()
	if supply == nil || supply.Sign() == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrEmptySupply, token.Hex())
	}

	amount0, amount1, err := cfg.Vault.ReserveAmounts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("derived reserves for %s: %w", token.Hex(), err)
	}

	value0, err := r.reserveValue(ctx, cfg.Token0, amount0, cfg.Decimals0, depth)
	if err != nil {
		return nil, 0, err
	}
	value1, err := r.reserveValue(ctx, cfg.Token1, amount1, cfg.Decimals1, depth)
	if err != nil {
		return nil, 0, err
	}

	total := new(big.Int).Add(value0, value1)
	wholeShare := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.ShareDecimals)), nil)
	perShare, err := fixedpoint.MulDiv(total, wholeShare, supply)
	if err != nil {
		return nil, 0, err
	}
	return perShare, derivedPriceDecimals, nil
}

// Value expresses a raw token amount in the common unit at the fixed
// derived precision. Used by the vault to value position reserves.
func (r *Resolver) Value(ctx context.Context, token common.Address, amount *big.Int, tokenDecimals uint8) (*big.Int, error) {
	return r.reserveValue(ctx, token, amount, tokenDecimals, 0)
}

// reserveValue expresses a reserve amount in the common unit at the fixed
// derived precision: amount * price * 10^18 / 10^(tokenDecimals+priceDecimals).
func (r *Resolver) reserveValue(ctx context.Context, token common.Address, amount *big.Int, tokenDecimals uint8, depth int) (*big.Int, error) {
	if amount == nil || amount.Sign() == 0 {
		return new(big.Int), nil
	}

	price, priceDecimals, err := r.price(ctx, token, depth+1)
	if err != nil {
		return nil, err
	}
	return ValueAtPrice(amount, price, tokenDecimals, priceDecimals)
}

// ValueAtPrice expresses a raw token amount in the common unit against an
// already-resolved price. Callers that need several amounts valued at one
// consistent feed answer resolve the price once and use this directly.
func ValueAtPrice(amount, price *big.Int, tokenDecimals, priceDecimals uint8) (*big.Int, error) {
	if amount == nil || amount.Sign() == 0 {
		return new(big.Int), nil
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(derivedPriceDecimals)), nil)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenDecimals)+int64(priceDecimals)), nil)
	return fixedpoint.MulDiv(new(big.Int).Mul(amount, price), scale, denom)
}

// queryFeed reads one feed and classifies the result. Non-positive answers
// are failures, not prices.
func queryFeed(ctx context.Context, feed Feed) (*big.Int, uint8, error) {
	if feed == nil {
		return nil, 0, errors.New("feed not configured")
	}
	answer, err := feed.LatestAnswer(ctx)
	if err != nil {
		return nil, 0, err
	}
	if answer == nil || answer.Sign() <= 0 {
		return nil, 0, errors.New("non-positive answer")
	}
	decimals, err := feed.Decimals(ctx)
	if err != nil {
		return nil, 0, err
	}
	return answer, decimals, nil
}
