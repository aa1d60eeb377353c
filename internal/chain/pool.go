package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const poolABIJSON = `[
  {
    "inputs": [],
    "name": "slot0",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
      {"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
      {"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
      {"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
      {"internalType": "bool", "name": "unlocked", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

func getPoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

// PoolSource reads the current sqrt price of one pool via eth_call.
type PoolSource struct {
	client     *Client
	pool       common.Address
	maxRetries int
	backoff    time.Duration
}

func NewPoolSource(client *Client, pool common.Address) *PoolSource {
	return &PoolSource{
		client:     client,
		pool:       pool,
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
	}
}

// CurrentSqrtPrice returns the pool's sqrtPriceX96 from slot0, retrying
// transient RPC failures.
func (p *PoolSource) CurrentSqrtPrice(ctx context.Context) (*big.Int, error) {
	parsed, err := getPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	data, err := parsed.Pack("slot0")
	if err != nil {
		return nil, fmt.Errorf("pack slot0: %w", err)
	}
	msg := ethereum.CallMsg{To: &p.pool, Data: data}

	var resp []byte
	err = WithRetry(ctx, p.maxRetries, p.backoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = p.client.CallContract(ctx, msg, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call slot0 on %s: %w", p.pool.Hex(), err)
	}
	values, err := parsed.Unpack("slot0", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack slot0: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("slot0 on %s returned no values", p.pool.Hex())
	}

	sqrtPrice, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("slot0 on %s: unexpected sqrtPriceX96 type %T", p.pool.Hex(), values[0])
	}
	if sqrtPrice.Sign() <= 0 {
		return nil, fmt.Errorf("slot0 on %s: non-positive sqrt price", p.pool.Hex())
	}
	return sqrtPrice, nil
}
