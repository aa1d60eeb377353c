package pricing

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// OracleConfig describes how one token is priced. Set by the configuration
// authority; read-only to the resolver.
type OracleConfig struct {
	Primary            Feed
	Fallback           Feed
	UseFallbackOnError bool
	DecimalsOverride   uint8
	Derived            bool
}

// DerivedConfig prices a token that is itself a share class: its value is
// derived from the reserves its vault holds.
type DerivedConfig struct {
	Vault     VaultReader
	Token0    common.Address
	Token1    common.Address
	Decimals0 uint8
	Decimals1 uint8
	// ShareDecimals denominates the share supply. The per-share price is
	// quoted for one whole share, 10^ShareDecimals supply units.
	ShareDecimals uint8
}

// VaultReader is the slice of a vault the resolver needs for derived-share
// pricing.
type VaultReader interface {
	TotalShares() *big.Int
	ReserveAmounts(ctx context.Context) (amount0, amount1 *big.Int, err error)
}

// ConfigStore is an explicit key-value store of oracle configuration, keyed
// by token address and owned by the configuration authority. It is passed
// into the resolver by reference rather than reached as ambient state.
type ConfigStore struct {
	mu      sync.RWMutex
	oracles map[common.Address]OracleConfig
	derived map[common.Address]DerivedConfig
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		oracles: make(map[common.Address]OracleConfig),
		derived: make(map[common.Address]DerivedConfig),
	}
}

func (s *ConfigStore) SetOracle(token common.Address, cfg OracleConfig) {
	s.mu.Lock()
	s.oracles[token] = cfg
	s.mu.Unlock()
}

func (s *ConfigStore) Oracle(token common.Address) (OracleConfig, bool) {
	s.mu.RLock()
	cfg, ok := s.oracles[token]
	s.mu.RUnlock()
	return cfg, ok
}

func (s *ConfigStore) SetDerived(token common.Address, cfg DerivedConfig) {
	s.mu.Lock()
	s.derived[token] = cfg
	s.mu.Unlock()
}

func (s *ConfigStore) Derived(token common.Address) (DerivedConfig, bool) {
	s.mu.RLock()
	cfg, ok := s.derived[token]
	s.mu.RUnlock()
	return cfg, ok
}
