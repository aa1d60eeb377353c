package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityVault/internal/config"
	"liquidityVault/internal/ledger"
	"liquidityVault/internal/model"
	"liquidityVault/internal/storage"
	"liquidityVault/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
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

	records, err := storage.ReadOperations(cfg.Journal)
	if err != nil {
		return err
	}

	shares, err := ledger.Replay(records)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}

	logger.Info("journal replayed",
		zap.String("journal", cfg.Journal),
		zap.Int("operations", len(records)),
		zap.String("total_shares", shares.TotalShares().String()),
		zap.Int("holders", len(shares.Holders())),
	)
	for _, holder := range shares.Holders() {
		logger.Info("holder balance",
			zap.String("holder", holder.Hex()),
			zap.String("shares", shares.BalanceOf(holder).String()),
		)
	}

	if cfg.PGDSN == "" {
		return nil
	}
	if !common.IsHexAddress(cfg.Vault) {
		return fmt.Errorf("vault address is required for Postgres persistence")
	}
	vaultAddress := common.HexToAddress(cfg.Vault).Hex()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.InsertOperations(ctx, vaultAddress, records); err != nil {
		return fmt.Errorf("persist operations: %w", err)
	}

	snap := model.VaultSnapshot{
		Vault:       vaultAddress,
		TotalShares: shares.TotalShares().String(),
		TakenAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, holder := range shares.Holders() {
		snap.Holders = append(snap.Holders, model.HolderBalance{
			Holder: holder.Hex(),
			Shares: shares.BalanceOf(holder).String(),
		})
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	logger.Info("replayed state persisted",
		zap.String("vault", vaultAddress),
		zap.Int("operations", len(records)),
	)
	return nil
}
