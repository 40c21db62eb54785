package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

const (
	fieldImplementation     = "implementation"
	fieldReserveFactor      = "reserveFactor"
	fieldLiquidityRate      = "liquidityRate"
	fieldVariableBorrowRate = "variableBorrowRate"
)

// eip1967ImplementationSlot is keccak256("eip1967.proxy.implementation") - 1,
// the storage slot where transparent and UUPS proxies keep their logic
// contract address.
var eip1967ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

// getReserveDataSelector is the 4-byte selector of getReserveData(address).
var getReserveDataSelector = crypto.Keccak256([]byte("getReserveData(address)"))[:4]

// Word offsets inside the getReserveData(address) return payload.
const (
	reserveDataWordConfiguration = 0
	reserveDataWordLiquidityRate = 2
	reserveDataWordBorrowRate    = 4
	reserveDataMinWords          = 5
)

// stateField is a parsed field specifier: a bare field name, or
// "<name>:<asset address>" for per-reserve fields.
type stateField struct {
	name  string
	asset common.Address
}

func parseStateField(raw string) (stateField, error) {
	name, assetHex, hasAsset := strings.Cut(raw, ":")
	switch name {
	case fieldImplementation:
		if hasAsset {
			return stateField{}, fmt.Errorf("state field %q takes no asset", raw)
		}
		return stateField{name: name}, nil
	case fieldReserveFactor, fieldLiquidityRate, fieldVariableBorrowRate:
		if !hasAsset || !common.IsHexAddress(assetHex) {
			return stateField{}, fmt.Errorf("state field %q requires a reserve asset address", raw)
		}
		return stateField{name: name, asset: common.HexToAddress(assetHex)}, nil
	default:
		return stateField{}, fmt.Errorf("unknown state field %q", raw)
	}
}

// ValidateStateFields rejects malformed field specifiers up front, so a
// configuration mistake fails at startup instead of on every poll.
func ValidateStateFields(fields []string) error {
	for _, raw := range fields {
		if _, err := parseStateField(raw); err != nil {
			return err
		}
	}
	return nil
}

// ReadState resolves each requested field to its canonical string value at
// the node's current head. Per-reserve reads share one getReserveData call
// per distinct asset.
func (c *Client) ReadState(ctx context.Context, fields []string) (map[string]string, error) {
	values := make(map[string]string, len(fields))
	reserveData := make(map[common.Address][]*big.Int)

	for _, raw := range fields {
		field, err := parseStateField(raw)
		if err != nil {
			return nil, err
		}

		if field.name == fieldImplementation {
			implementation, err := c.readImplementation(ctx)
			if err != nil {
				return nil, err
			}
			values[raw] = implementation
			continue
		}

		words, ok := reserveData[field.asset]
		if !ok {
			words, err = c.readReserveData(ctx, field.asset)
			if err != nil {
				return nil, err
			}
			reserveData[field.asset] = words
		}

		values[raw] = reserveFieldValue(field.name, words)
	}

	return values, nil
}

// readImplementation loads the proxy's logic contract address from the
// EIP-1967 implementation slot.
func (c *Client) readImplementation(ctx context.Context) (string, error) {
	slot, err := c.eth.StorageAt(ctx, c.contract, eip1967ImplementationSlot, nil)
	if err != nil {
		return "", fmt.Errorf("%w: reading implementation slot: %v", poolwatch.ErrTransientFetch, err)
	}
	return common.BytesToAddress(slot).Hex(), nil
}

// readReserveData calls getReserveData(asset) and splits the return payload
// into 32-byte words.
func (c *Client) readReserveData(ctx context.Context, asset common.Address) ([]*big.Int, error) {
	data := make([]byte, 0, 4+32)
	data = append(data, getReserveDataSelector...)
	data = append(data, common.LeftPadBytes(asset.Bytes(), 32)...)

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: calling getReserveData(%s): %v", poolwatch.ErrTransientFetch, asset.Hex(), err)
	}
	if len(out) < reserveDataMinWords*32 {
		return nil, fmt.Errorf("getReserveData(%s) returned %d bytes, want at least %d", asset.Hex(), len(out), reserveDataMinWords*32)
	}

	words := make([]*big.Int, 0, len(out)/32)
	for offset := 0; offset+32 <= len(out); offset += 32 {
		words = append(words, new(big.Int).SetBytes(out[offset:offset+32]))
	}
	return words, nil
}

// reserveFieldValue extracts one tracked field from the reserve data words.
// The reserve factor lives in the configuration bitmap at bits 64-79, in
// basis points. Rates are returned as their raw RAY fixed-point integers.
func reserveFieldValue(name string, words []*big.Int) string {
	switch name {
	case fieldReserveFactor:
		factor := new(big.Int).Rsh(words[reserveDataWordConfiguration], 64)
		factor.And(factor, big.NewInt(0xFFFF))
		return factor.String()
	case fieldLiquidityRate:
		return words[reserveDataWordLiquidityRate].String()
	case fieldVariableBorrowRate:
		return words[reserveDataWordBorrowRate].String()
	default:
		return ""
	}
}
