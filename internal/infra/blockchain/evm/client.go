// Package evm adapts a JSON-RPC Ethereum-compatible node into the chain
// access and log decoding ports of the monitoring core.
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

// Client reads logs and contract state from a single pool contract over
// JSON-RPC. All node failures are surfaced as transient so the polling
// loop retries them instead of giving up.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
	topics   []common.Hash
}

var _ poolwatch.ChainClient = (*Client)(nil)

// NewClient dials the node and binds the client to the pool contract.
// The topic set restricts server-side log filtering to tracked events.
func NewClient(ctx context.Context, rawURL, contractAddress string, topics []common.Hash) (*Client, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}

	rpcClient, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dialing node: %w", err)
	}

	return &Client{
		eth:      ethclient.NewClient(rpcClient),
		contract: common.HexToAddress(contractAddress),
		topics:   topics,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// LatestBlock returns the node's current head height.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: fetching head: %v", poolwatch.ErrTransientFetch, err)
	}
	return head, nil
}

// FetchLogs returns the pool contract's tracked logs in [from, to],
// both bounds inclusive.
func (c *Client) FetchLogs(ctx context.Context, from, to uint64) ([]poolwatch.RawLog, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
	}
	if len(c.topics) > 0 {
		query.Topics = [][]common.Hash{c.topics}
	}

	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: filtering logs %d-%d: %v", poolwatch.ErrTransientFetch, from, to, err)
	}

	rawLogs := make([]poolwatch.RawLog, 0, len(logs))
	for _, log := range logs {
		rawLogs = append(rawLogs, toRawLog(log))
	}
	return rawLogs, nil
}

// ChainID asks the node which chain it serves. Used by connectivity checks.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching chain id: %v", poolwatch.ErrTransientFetch, err)
	}
	return chainID, nil
}

func toRawLog(log types.Log) poolwatch.RawLog {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return poolwatch.RawLog{
		Address:  log.Address.Hex(),
		Topics:   topics,
		Data:     log.Data,
		Block:    log.BlockNumber,
		LogIndex: uint32(log.Index),
		TxHash:   log.TxHash.Hex(),
	}
}
