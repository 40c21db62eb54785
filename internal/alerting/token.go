package alerting

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// TokenInfo describes one reserve asset the formatter knows about.
type TokenInfo struct {
	Symbol   string
	Decimals int
	// AlertLimit is the human-unit amount at or above which an event is
	// escalated to high priority. Zero disables escalation for the token.
	AlertLimit float64
}

// TokenRegistry maps lowercase asset addresses to display metadata.
// Unknown assets still format, falling back to raw units and a shortened
// address.
type TokenRegistry map[string]TokenInfo

// ParseTokenRegistry builds a registry from "address:symbol:decimals:limit"
// entries (limit optional).
func ParseTokenRegistry(entries []string) (TokenRegistry, error) {
	registry := make(TokenRegistry, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 && len(parts) != 4 {
			return nil, fmt.Errorf("malformed token entry %q", entry)
		}

		decimals, err := strconv.Atoi(parts[2])
		if err != nil || decimals < 0 {
			return nil, fmt.Errorf("malformed decimals in token entry %q", entry)
		}

		info := TokenInfo{Symbol: parts[1], Decimals: decimals}
		if len(parts) == 4 {
			limit, err := strconv.ParseFloat(parts[3], 64)
			if err != nil || limit < 0 {
				return nil, fmt.Errorf("malformed limit in token entry %q", entry)
			}
			info.AlertLimit = limit
		}

		registry[strings.ToLower(parts[0])] = info
	}
	return registry, nil
}

// Lookup returns the metadata for an asset address, if registered.
func (r TokenRegistry) Lookup(address string) (TokenInfo, bool) {
	info, ok := r[strings.ToLower(address)]
	return info, ok
}

// DisplayName returns the token symbol, or a shortened address for assets
// outside the registry.
func (r TokenRegistry) DisplayName(address string) string {
	if info, ok := r.Lookup(address); ok {
		return info.Symbol
	}
	return shortAddress(address)
}

// ExceedsLimit reports whether the raw amount reaches the token's alert
// limit. Assets without a registered limit never exceed.
func (r TokenRegistry) ExceedsLimit(address string, amount *big.Int) bool {
	info, ok := r.Lookup(address)
	if !ok || info.AlertLimit <= 0 || amount == nil {
		return false
	}

	limit := new(big.Rat).SetFloat64(info.AlertLimit)
	if limit == nil {
		return false
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(info.Decimals)), nil)
	threshold := new(big.Rat).Mul(limit, new(big.Rat).SetInt(scale))

	return new(big.Rat).SetInt(amount).Cmp(threshold) >= 0
}

// shortAddress renders "0x1234...abcd" for addresses too long to show.
func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
