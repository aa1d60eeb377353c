package pricing

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"liquidityVault/internal/chain"
)

// Feed is an external price source. A feed call counts as failed when it
// returns an error, a non-positive answer, or malformed data.
type Feed interface {
	LatestAnswer(ctx context.Context) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
}

const aggregatorABIJSON = `[
  {"inputs": [], "name": "latestAnswer", "outputs": [{"internalType": "int256", "name": "", "type": "int256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	aggregatorABI    abi.ABI
	aggregatorOnce   sync.Once
	aggregatorABIErr error
)

func getAggregatorABI() (abi.ABI, error) {
	aggregatorOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// ChainlinkFeed reads a chainlink-style aggregator contract over RPC.
type ChainlinkFeed struct {
	client  *chain.Client
	address common.Address
}

func NewChainlinkFeed(client *chain.Client, address common.Address) *ChainlinkFeed {
	return &ChainlinkFeed{client: client, address: address}
}

func (f *ChainlinkFeed) LatestAnswer(ctx context.Context) (*big.Int, error) {
	values, err := f.call(ctx, "latestAnswer")
	if err != nil {
		return nil, err
	}
	answer, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("latestAnswer unexpected type %T", values[0])
	}
	return answer, nil
}

func (f *ChainlinkFeed) Decimals(ctx context.Context) (uint8, error) {
	values, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	return decimals, nil
}

func (f *ChainlinkFeed) call(ctx context.Context, method string) ([]interface{}, error) {
	if f.client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	feedABI, err := getAggregatorABI()
	if err != nil {
		return nil, err
	}

	data, err := feedABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &f.address, Data: data}
	resp, err := f.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := feedABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return values, nil
}
