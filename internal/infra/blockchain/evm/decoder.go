package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

// kindByEventName maps ABI event names to the kinds the core understands.
var kindByEventName = map[string]poolwatch.EventKind{
	"Supply":          poolwatch.KindDeposit,
	"Withdraw":        poolwatch.KindWithdraw,
	"Borrow":          poolwatch.KindBorrow,
	"Repay":           poolwatch.KindRepay,
	"LiquidationCall": poolwatch.KindLiquidation,
	"FlashLoan":       poolwatch.KindFlashLoan,
}

// Decoder translates raw pool logs into tracked events using the pool ABI.
// Logs whose signature is outside the tracked set are skipped, never failed.
type Decoder struct {
	events map[common.Hash]abi.Event
	kinds  map[common.Hash]poolwatch.EventKind
}

var _ poolwatch.EventDecoder = (*Decoder)(nil)

// NewDecoder builds a decoder restricted to the given event kinds.
func NewDecoder(tracked []poolwatch.EventKind) (*Decoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parsing pool abi: %w", err)
	}

	trackedSet := make(map[poolwatch.EventKind]struct{}, len(tracked))
	for _, kind := range tracked {
		trackedSet[kind] = struct{}{}
	}

	d := &Decoder{
		events: make(map[common.Hash]abi.Event),
		kinds:  make(map[common.Hash]poolwatch.EventKind),
	}
	for name, kind := range kindByEventName {
		if _, ok := trackedSet[kind]; !ok {
			continue
		}

		event, ok := poolABI.Events[name]
		if !ok {
			return nil, fmt.Errorf("pool abi is missing event %s", name)
		}

		d.events[event.ID] = event
		d.kinds[event.ID] = kind
	}

	return d, nil
}

// TopicFilter returns the signature topics of every tracked event, for use
// as the topic0 position of a log filter.
func (d *Decoder) TopicFilter() []common.Hash {
	topics := make([]common.Hash, 0, len(d.events))
	for id := range d.events {
		topics = append(topics, id)
	}
	return topics
}

// Decode parses a raw log into a tracked event. Unknown signatures return
// ErrLogSkipped; malformed payloads for a known signature return a
// DecodeError carrying the log's chain position.
func (d *Decoder) Decode(raw poolwatch.RawLog) (poolwatch.TrackedEvent, error) {
	if len(raw.Topics) == 0 {
		return poolwatch.TrackedEvent{}, poolwatch.ErrLogSkipped
	}

	signature := common.HexToHash(raw.Topics[0])
	kind, ok := d.kinds[signature]
	if !ok {
		return poolwatch.TrackedEvent{}, poolwatch.ErrLogSkipped
	}

	event, err := d.decodeKind(kind, d.events[signature], raw)
	if err != nil {
		return poolwatch.TrackedEvent{}, &poolwatch.DecodeError{
			Position: raw.Position(),
			Err:      err,
		}
	}

	event.Kind = kind
	event.Position = raw.Position()
	event.TxHash = raw.TxHash
	event.Identity = poolwatch.EventIdentity(kind, event.Position)
	return event, nil
}

func (d *Decoder) decodeKind(kind poolwatch.EventKind, event abi.Event, raw poolwatch.RawLog) (poolwatch.TrackedEvent, error) {
	topics, err := argumentTopics(event, raw.Topics)
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	values, err := event.Inputs.NonIndexed().Unpack(raw.Data)
	if err != nil {
		return poolwatch.TrackedEvent{}, fmt.Errorf("unpacking %s data: %w", event.Name, err)
	}

	switch kind {
	case poolwatch.KindDeposit:
		return decodeSupply(topics, values)
	case poolwatch.KindWithdraw:
		return decodeWithdraw(topics, values)
	case poolwatch.KindBorrow:
		return decodeBorrow(topics, values)
	case poolwatch.KindRepay:
		return decodeRepay(topics, values)
	case poolwatch.KindLiquidation:
		return decodeLiquidation(topics, values)
	case poolwatch.KindFlashLoan:
		return decodeFlashLoan(topics, values)
	default:
		return poolwatch.TrackedEvent{}, fmt.Errorf("no decoder for kind %s", kind)
	}
}

// argumentTopics resolves the log's indexed topics into a map keyed by
// argument name. The signature topic is excluded.
func argumentTopics(event abi.Event, rawTopics []string) (map[string]any, error) {
	indexed := indexedArguments(event.Inputs)
	if len(rawTopics)-1 != len(indexed) {
		return nil, fmt.Errorf("%s log carries %d argument topics, want %d", event.Name, len(rawTopics)-1, len(indexed))
	}

	hashes := make([]common.Hash, 0, len(indexed))
	for _, topic := range rawTopics[1:] {
		hashes = append(hashes, common.HexToHash(topic))
	}

	values := make(map[string]any, len(indexed))
	if err := abi.ParseTopicsIntoMap(values, indexed, hashes); err != nil {
		return nil, fmt.Errorf("parsing %s topics: %w", event.Name, err)
	}
	return values, nil
}

func topicAddress(topics map[string]any, name string) (string, error) {
	addr, ok := topics[name].(common.Address)
	if !ok {
		return "", fmt.Errorf("topic %s is not an address", name)
	}
	return addr.Hex(), nil
}

func dataAddress(values []any, index int, name string) (string, error) {
	if index >= len(values) {
		return "", fmt.Errorf("data field %s is missing", name)
	}
	addr, ok := values[index].(common.Address)
	if !ok {
		return "", fmt.Errorf("data field %s is not an address", name)
	}
	return addr.Hex(), nil
}

func dataBigInt(values []any, index int, name string) (*big.Int, error) {
	if index >= len(values) {
		return nil, fmt.Errorf("data field %s is missing", name)
	}
	n, ok := values[index].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("data field %s is not an integer", name)
	}
	return n, nil
}

func decodeSupply(topics map[string]any, values []any) (poolwatch.TrackedEvent, error) {
	reserve, err := topicAddress(topics, "reserve")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	user, err := dataAddress(values, 0, "user")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	amount, err := dataBigInt(values, 1, "amount")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	return poolwatch.TrackedEvent{
		Participant: user,
		Asset:       reserve,
		Amount:      amount,
	}, nil
}

func decodeWithdraw(topics map[string]any, values []any) (poolwatch.TrackedEvent, error) {
	reserve, err := topicAddress(topics, "reserve")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	user, err := topicAddress(topics, "user")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	amount, err := dataBigInt(values, 0, "amount")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	return poolwatch.TrackedEvent{
		Participant: user,
		Asset:       reserve,
		Amount:      amount,
	}, nil
}

func decodeBorrow(topics map[string]any, values []any) (poolwatch.TrackedEvent, error) {
	reserve, err := topicAddress(topics, "reserve")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	user, err := dataAddress(values, 0, "user")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	amount, err := dataBigInt(values, 1, "amount")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	borrowRate, err := dataBigInt(values, 3, "borrowRate")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	return poolwatch.TrackedEvent{
		Participant: user,
		Asset:       reserve,
		Amount:      amount,
		BorrowRate:  borrowRate,
	}, nil
}

func decodeRepay(topics map[string]any, values []any) (poolwatch.TrackedEvent, error) {
	reserve, err := topicAddress(topics, "reserve")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	user, err := topicAddress(topics, "user")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	amount, err := dataBigInt(values, 0, "amount")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	return poolwatch.TrackedEvent{
		Participant: user,
		Asset:       reserve,
		Amount:      amount,
	}, nil
}

func decodeLiquidation(topics map[string]any, values []any) (poolwatch.TrackedEvent, error) {
	collateralAsset, err := topicAddress(topics, "collateralAsset")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	debtAsset, err := topicAddress(topics, "debtAsset")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	user, err := topicAddress(topics, "user")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	debtToCover, err := dataBigInt(values, 0, "debtToCover")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	collateralAmount, err := dataBigInt(values, 1, "liquidatedCollateralAmount")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	liquidator, err := dataAddress(values, 2, "liquidator")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	return poolwatch.TrackedEvent{
		Participant:      user,
		Asset:            debtAsset,
		Amount:           debtToCover,
		CollateralAsset:  collateralAsset,
		CollateralAmount: collateralAmount,
		Liquidator:       liquidator,
	}, nil
}

func decodeFlashLoan(topics map[string]any, values []any) (poolwatch.TrackedEvent, error) {
	asset, err := topicAddress(topics, "asset")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	initiator, err := dataAddress(values, 0, "initiator")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}
	amount, err := dataBigInt(values, 1, "amount")
	if err != nil {
		return poolwatch.TrackedEvent{}, err
	}

	return poolwatch.TrackedEvent{
		Participant: initiator,
		Asset:       asset,
		Amount:      amount,
	}, nil
}
