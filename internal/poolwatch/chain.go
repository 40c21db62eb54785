package poolwatch

import (
	"context"
	"errors"
)

// ErrTransientFetch marks chain endpoint failures that are expected to
// resolve on their own (unreachable node, timeout, rate limit). The monitor
// loop reacts by backing off and repeating the whole cycle with the cursor
// untouched. Implementations must wrap such failures with this sentinel so
// an empty successful result and a failed call stay distinguishable.
var ErrTransientFetch = errors.New("transient chain fetch failure")

// RawLog is an undecoded log entry emitted by the watched contract.
type RawLog struct {
	Address  string   // emitting contract address
	Topics   []string // 0x-prefixed topic hashes, topic0 first
	Data     []byte   // ABI-encoded non-indexed payload
	Block    uint64   // block number containing the log
	LogIndex uint32   // index of the log within the block
	TxHash   string   // transaction hash
}

// Position returns the log's place in chain order.
func (l RawLog) Position() ChainPosition {
	return ChainPosition{Block: l.Block, LogIndex: l.LogIndex}
}

// ChainClient is the read-only view of the chain endpoint the monitor
// needs. All three operations are safe to retry.
type ChainClient interface {
	// LatestBlock returns the current chain head block number.
	LatestBlock(ctx context.Context) (uint64, error)

	// FetchLogs returns all logs emitted by the watched contract in the
	// inclusive block range [from, to], ordered by ascending position.
	// A nil error with an empty slice means the range genuinely contains
	// no logs; fetch failures are reported as errors wrapping
	// ErrTransientFetch.
	FetchLogs(ctx context.Context, from, to uint64) ([]RawLog, error)

	// ReadState resolves the current value of each named state field.
	// Values are canonical strings so callers can compare them for exact
	// equality. A field the endpoint cannot serve is an error, never a
	// silently missing entry.
	ReadState(ctx context.Context, fields []string) (map[string]string, error)
}
