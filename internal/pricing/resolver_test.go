package pricing

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	shareX = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	shareY = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
)

type stubFeed struct {
	answer      *big.Int
	decimals    uint8
	answerErr   error
	decimalsErr error
}

func (f *stubFeed) LatestAnswer(ctx context.Context) (*big.Int, error) {
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	return f.answer, nil
}

func (f *stubFeed) Decimals(ctx context.Context) (uint8, error) {
	if f.decimalsErr != nil {
		return 0, f.decimalsErr
	}
	return f.decimals, nil
}

type stubVault struct {
	supply  *big.Int
	amount0 *big.Int
	amount1 *big.Int
	err     error
}

func (v *stubVault) TotalShares() *big.Int { return v.supply }

func (v *stubVault) ReserveAmounts(ctx context.Context) (*big.Int, *big.Int, error) {
	if v.err != nil {
		return nil, nil, v.err
	}
	return v.amount0, v.amount1, nil
}

func TestPricePrimary(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{
		Primary: &stubFeed{answer: big.NewInt(200000000), decimals: 8},
	})

	resolver := NewResolver(configs, nil)
	price, decimals, err := resolver.Price(context.Background(), tokenA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Cmp(big.NewInt(200000000)) != 0 || decimals != 8 {
		t.Fatalf("got %s/%d want 200000000/8", price, decimals)
	}
}

func TestPriceNoConfig(t *testing.T) {
	resolver := NewResolver(NewConfigStore(), nil)
	if _, _, err := resolver.Price(context.Background(), tokenA); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
}

func TestPriceFallback(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{
		Primary:            &stubFeed{answerErr: errors.New("reverted")},
		Fallback:           &stubFeed{answer: big.NewInt(42), decimals: 6},
		UseFallbackOnError: true,
	})

	resolver := NewResolver(configs, nil)
	price, decimals, err := resolver.Price(context.Background(), tokenA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Cmp(big.NewInt(42)) != 0 || decimals != 6 {
		t.Fatalf("fallback not used: %s/%d", price, decimals)
	}
}

func TestPriceFallbackDisabled(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{
		Primary:  &stubFeed{answerErr: errors.New("reverted")},
		Fallback: &stubFeed{answer: big.NewInt(42), decimals: 6},
	})

	resolver := NewResolver(configs, nil)
	if _, _, err := resolver.Price(context.Background(), tokenA); !errors.Is(err, ErrFeedFailure) {
		t.Fatalf("expected ErrFeedFailure, got %v", err)
	}
}

func TestPriceNonPositiveAnswerIsFailure(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{
		Primary: &stubFeed{answer: big.NewInt(0), decimals: 8},
	})

	resolver := NewResolver(configs, nil)
	if _, _, err := resolver.Price(context.Background(), tokenA); !errors.Is(err, ErrFeedFailure) {
		t.Fatalf("expected ErrFeedFailure for zero answer, got %v", err)
	}
}

func TestPriceBothFeedsFail(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{
		Primary:            &stubFeed{answerErr: errors.New("reverted")},
		Fallback:           &stubFeed{answer: big.NewInt(-5), decimals: 8},
		UseFallbackOnError: true,
	})

	resolver := NewResolver(configs, nil)
	if _, _, err := resolver.Price(context.Background(), tokenA); !errors.Is(err, ErrFeedFailure) {
		t.Fatalf("expected ErrFeedFailure, got %v", err)
	}
}

func TestPriceDecimalsOverride(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{
		Primary:          &stubFeed{answer: big.NewInt(1500), decimals: 8},
		DecimalsOverride: 10,
	})

	resolver := NewResolver(configs, nil)
	_, decimals, err := resolver.Price(context.Background(), tokenA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decimals != 10 {
		t.Fatalf("override not applied: got %d", decimals)
	}
}

func TestDerivedPrice(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{Primary: &stubFeed{answer: big.NewInt(2), decimals: 0}})
	configs.SetOracle(tokenB, OracleConfig{Primary: &stubFeed{answer: big.NewInt(4), decimals: 0}})
	configs.SetOracle(shareX, OracleConfig{Derived: true})
	configs.SetDerived(shareX, DerivedConfig{
		Vault:  &stubVault{supply: big.NewInt(1000), amount0: big.NewInt(1000), amount1: big.NewInt(500)},
		Token0: tokenA,
		Token1: tokenB,
	})

	resolver := NewResolver(configs, nil)
	price, decimals, err := resolver.Price(context.Background(), shareX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (1000*2 + 500*4) * 1e18 / 1000 shares = 4e18 per share.
	want, _ := new(big.Int).SetString("4000000000000000000", 10)
	if price.Cmp(want) != 0 {
		t.Fatalf("derived price got %s want %s", price, want)
	}
	if decimals != 18 {
		t.Fatalf("derived decimals got %d want 18", decimals)
	}
}

func TestDerivedPriceEmptySupply(t *testing.T) {
	configs := NewConfigStore()
	configs.SetOracle(shareX, OracleConfig{Derived: true})
	configs.SetDerived(shareX, DerivedConfig{
		Vault:  &stubVault{supply: new(big.Int), amount0: big.NewInt(1), amount1: big.NewInt(1)},
		Token0: tokenA,
		Token1: tokenB,
	})

	resolver := NewResolver(configs, nil)
	if _, _, err := resolver.Price(context.Background(), shareX); !errors.Is(err, ErrEmptySupply) {
		t.Fatalf("expected ErrEmptySupply, got %v", err)
	}
}

func TestDerivedPriceRecursionLimit(t *testing.T) {
	// Two share classes priced in terms of each other must fail instead
	// of recursing without bound.
	configs := NewConfigStore()
	configs.SetOracle(shareX, OracleConfig{Derived: true})
	configs.SetOracle(shareY, OracleConfig{Derived: true})
	configs.SetDerived(shareX, DerivedConfig{
		Vault:  &stubVault{supply: big.NewInt(10), amount0: big.NewInt(100), amount1: new(big.Int)},
		Token0: shareY,
		Token1: tokenB,
	})
	configs.SetDerived(shareY, DerivedConfig{
		Vault:  &stubVault{supply: big.NewInt(10), amount0: big.NewInt(100), amount1: new(big.Int)},
		Token0: shareX,
		Token1: tokenB,
	})

	resolver := NewResolver(configs, nil)
	if _, _, err := resolver.Price(context.Background(), shareX); !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("expected ErrRecursionLimit, got %v", err)
	}
}

func TestDerivedInTermsOfDerivedResolves(t *testing.T) {
	// A single chain of two derivations stays within the depth bound.
	configs := NewConfigStore()
	configs.SetOracle(tokenA, OracleConfig{Primary: &stubFeed{answer: big.NewInt(3), decimals: 0}})
	configs.SetOracle(shareX, OracleConfig{Derived: true})
	configs.SetOracle(shareY, OracleConfig{Derived: true})
	configs.SetDerived(shareY, DerivedConfig{
		Vault:  &stubVault{supply: big.NewInt(10), amount0: big.NewInt(100), amount1: new(big.Int)},
		Token0: tokenA,
		Token1: tokenB,
	})
	configs.SetDerived(shareX, DerivedConfig{
		Vault:  &stubVault{supply: big.NewInt(10), amount0: big.NewInt(100), amount1: new(big.Int)},
		Token0: shareY,
		Token1: tokenB,
	})

	resolver := NewResolver(configs, nil)
	price, _, err := resolver.Price(context.Background(), shareX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Sign() <= 0 {
		t.Fatalf("expected positive chained derived price, got %s", price)
	}
}
