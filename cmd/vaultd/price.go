package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityVault/internal/chain"
	"liquidityVault/internal/config"
	"liquidityVault/internal/pricing"
)

func runPrice(cmd *cobra.Command, _ []string) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Feed) {
		return fmt.Errorf("feed address is required")
	}

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = cfg.Feed
	}
	if !common.IsHexAddress(token) {
		return fmt.Errorf("bad token address %q", token)
	}
	tokenAddress := common.HexToAddress(token)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	oracle := pricing.OracleConfig{
		Primary: pricing.NewChainlinkFeed(chainClient, common.HexToAddress(cfg.Feed)),
	}
	if cfg.Fallback != "" {
		if !common.IsHexAddress(cfg.Fallback) {
			return fmt.Errorf("bad fallback address %q", cfg.Fallback)
		}
		oracle.Fallback = pricing.NewChainlinkFeed(chainClient, common.HexToAddress(cfg.Fallback))
		oracle.UseFallbackOnError = true
	}

	store := pricing.NewConfigStore()
	store.SetOracle(tokenAddress, oracle)
	resolver := pricing.NewResolver(store, logger)

	price, decimals, err := resolver.Price(ctx, tokenAddress)
	if err != nil {
		return err
	}

	logger.Info("price resolved",
		zap.String("token", tokenAddress.Hex()),
		zap.String("feed", cfg.Feed),
		zap.String("price", price.String()),
		zap.Uint8("decimals", decimals),
	)
	return nil
}
