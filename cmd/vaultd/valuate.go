package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/config"
	"liquidityVault/internal/fixedpoint"
	"liquidityVault/internal/valuation"
)

func runValuate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tickLower, _ := cmd.Flags().GetInt32("tick-lower")
	tickUpper, _ := cmd.Flags().GetInt32("tick-upper")
	liquidityArg, _ := cmd.Flags().GetString("liquidity")
	sqrtPriceArg, _ := cmd.Flags().GetString("sqrt-price")

	liquidity, ok := new(big.Int).SetString(liquidityArg, 10)
	if !ok || liquidity.Sign() < 0 {
		return fmt.Errorf("bad liquidity %q", liquidityArg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sqrtPrice *big.Int
	if sqrtPriceArg != "" {
		sqrtPrice, ok = new(big.Int).SetString(sqrtPriceArg, 10)
		if !ok {
			return fmt.Errorf("bad sqrt price %q", sqrtPriceArg)
		}
	} else {
		if cfg.RPCURL == "" || !common.IsHexAddress(cfg.Pool) {
			return fmt.Errorf("sqrt-price or rpc url and pool address are required")
		}
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		source := chain.NewPoolSource(chainClient, common.HexToAddress(cfg.Pool))
		sqrtPrice, err = source.CurrentSqrtPrice(ctx)
		if err != nil {
			return err
		}
	}

	sqrtLower, err := fixedpoint.TickToSqrtPrice(tickLower)
	if err != nil {
		return err
	}
	sqrtUpper, err := fixedpoint.TickToSqrtPrice(tickUpper)
	if err != nil {
		return err
	}

	amount0, amount1, err := valuation.Amounts(sqrtPrice, sqrtLower, sqrtUpper, liquidity)
	if err != nil {
		return err
	}

	logger.Info("position valuated",
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
		zap.String("liquidity", liquidity.String()),
		zap.String("sqrt_price", sqrtPrice.String()),
		zap.String("amount0", amount0.String()),
		zap.String("amount1", amount1.String()),
	)
	return nil
}
