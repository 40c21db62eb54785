package poolwatch

import (
	"fmt"
	"math/big"
)

// EventKind identifies the pool operation a decoded log represents.
// The set is closed: every kind has exactly one handling rule downstream.
type EventKind uint8

const (
	KindUnknown EventKind = iota
	KindDeposit
	KindWithdraw
	KindBorrow
	KindRepay
	KindLiquidation
	KindFlashLoan
)

// String returns the canonical lowercase name of the kind, which is also the
// form accepted by ParseEventKind and used in configuration.
func (k EventKind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdraw:
		return "withdraw"
	case KindBorrow:
		return "borrow"
	case KindRepay:
		return "repay"
	case KindLiquidation:
		return "liquidation"
	case KindFlashLoan:
		return "flashloan"
	default:
		return "unknown"
	}
}

// ParseEventKind converts a configured kind name into an EventKind.
// It returns KindUnknown and false for names outside the closed set.
func ParseEventKind(name string) (EventKind, bool) {
	switch name {
	case "deposit":
		return KindDeposit, true
	case "withdraw":
		return KindWithdraw, true
	case "borrow":
		return KindBorrow, true
	case "repay":
		return KindRepay, true
	case "liquidation":
		return KindLiquidation, true
	case "flashloan":
		return KindFlashLoan, true
	default:
		return KindUnknown, false
	}
}

// maxLogIndex marks the end-of-block position, past every log the block
// can contain.
const maxLogIndex = ^uint32(0)

// ChainPosition is a point in the chain's total event order: block number
// first, log index within the block second. It is monotonically increasing
// and forms part of an event's identity.
type ChainPosition struct {
	Block    uint64
	LogIndex uint32
}

// EndOfBlock returns the position that follows every log emitted in the
// given block. Committing it marks the whole block as processed.
func EndOfBlock(block uint64) ChainPosition {
	return ChainPosition{Block: block, LogIndex: maxLogIndex}
}

// Compare orders two positions: -1 if p precedes o, 0 if equal, +1 if p
// follows o.
func (p ChainPosition) Compare(o ChainPosition) int {
	switch {
	case p.Block < o.Block:
		return -1
	case p.Block > o.Block:
		return 1
	case p.LogIndex < o.LogIndex:
		return -1
	case p.LogIndex > o.LogIndex:
		return 1
	default:
		return 0
	}
}

// After reports whether p strictly follows o.
func (p ChainPosition) After(o ChainPosition) bool {
	return p.Compare(o) > 0
}

// String renders the position as "<block>/<logIndex>".
func (p ChainPosition) String() string {
	return fmt.Sprintf("%d/%d", p.Block, p.LogIndex)
}

// TrackedEvent is one decoded on-chain occurrence. Values are immutable
// after decoding; the Identity field is assigned exactly once by the decoder
// and never recomputed.
type TrackedEvent struct {
	Identity string        // stable dedup key, derived from Kind and Position
	Kind     EventKind     // which pool operation this is
	Position ChainPosition // where the log sits in chain order
	TxHash   string        // transaction that emitted the log

	Participant string   // address the operation is attributed to
	Asset       string   // reserve asset involved (debt asset for liquidations)
	Amount      *big.Int // principal amount in the asset's smallest unit

	// Borrow only.
	BorrowRate *big.Int

	// Liquidation only.
	CollateralAsset  string
	CollateralAmount *big.Int
	Liquidator       string
}

// EventIdentity derives the stable identity for an event of the given kind
// at the given position. The same inputs always produce the same identity.
func EventIdentity(kind EventKind, position ChainPosition) string {
	return fmt.Sprintf("%s@%s", kind, position)
}
