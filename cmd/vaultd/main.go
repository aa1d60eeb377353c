package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "vaultd",
		Short:        "Concentrated-liquidity vault tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the share ledger from an operation journal",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("journal", "./data/journal.jsonl", "operation journal JSONL path")
	replayCmd.Flags().String("vault", "", "vault address for Postgres persistence")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN (omit to skip persistence)")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Resolve a token price through a Chainlink feed",
		RunE:  runPrice,
	}

	priceCmd.Flags().String("rpc", "", "chain RPC URL")
	priceCmd.Flags().String("feed", "", "primary aggregator address")
	priceCmd.Flags().String("fallback", "", "fallback aggregator address")
	priceCmd.Flags().String("token", "", "token address (defaults to the feed address)")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	valuateCmd := &cobra.Command{
		Use:   "valuate",
		Short: "Compute the token amounts a position redeems for",
		RunE:  runValuate,
	}

	valuateCmd.Flags().Int32("tick-lower", 0, "lower tick bound")
	valuateCmd.Flags().Int32("tick-upper", 0, "upper tick bound")
	valuateCmd.Flags().String("liquidity", "", "position liquidity (decimal)")
	valuateCmd.Flags().String("sqrt-price", "", "current sqrt price in Q64.96 (omit to read slot0)")
	valuateCmd.Flags().String("rpc", "", "chain RPC URL (for live sqrt price)")
	valuateCmd.Flags().String("pool", "", "pool address (for live sqrt price)")
	valuateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(valuateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
