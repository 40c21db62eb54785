package alerting

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenRegistry(t *testing.T) {
	t.Run("should parse entries with and without limits", func(t *testing.T) {
		registry, err := ParseTokenRegistry([]string{
			"0xAAA0000000000000000000000000000000000001:USDC:6:10000",
			"0xAAA0000000000000000000000000000000000002:WETH:18",
		})
		require.NoError(t, err)

		usdc, ok := registry.Lookup("0xaaa0000000000000000000000000000000000001")
		require.True(t, ok)
		assert.Equal(t, TokenInfo{Symbol: "USDC", Decimals: 6, AlertLimit: 10000}, usdc)

		weth, ok := registry.Lookup("0xAAA0000000000000000000000000000000000002")
		require.True(t, ok)
		assert.Equal(t, TokenInfo{Symbol: "WETH", Decimals: 18}, weth)
	})

	t.Run("should reject malformed entries", func(t *testing.T) {
		cases := []string{
			"0xabc",
			"0xabc:USDC",
			"0xabc:USDC:six",
			"0xabc:USDC:-1",
			"0xabc:USDC:6:much",
			"0xabc:USDC:6:-5",
		}
		for _, entry := range cases {
			_, err := ParseTokenRegistry([]string{entry})
			assert.Error(t, err, "entry %q", entry)
		}
	})
}

func TestTokenRegistry_DisplayName(t *testing.T) {
	registry := TokenRegistry{"0xaaa0000000000000000000000000000000000001": {Symbol: "USDC", Decimals: 6}}

	t.Run("should prefer the registered symbol", func(t *testing.T) {
		assert.Equal(t, "USDC", registry.DisplayName("0xAAA0000000000000000000000000000000000001"))
	})

	t.Run("should shorten unknown addresses", func(t *testing.T) {
		assert.Equal(t, "0xbbb0...0002", registry.DisplayName("0xbbb0000000000000000000000000000000000002"))
	})
}

func TestTokenRegistry_ExceedsLimit(t *testing.T) {
	registry := TokenRegistry{
		"0xusdc": {Symbol: "USDC", Decimals: 6, AlertLimit: 10000},
		"0xweth": {Symbol: "WETH", Decimals: 18},
	}

	t.Run("should trigger at exactly the limit", func(t *testing.T) {
		assert.True(t, registry.ExceedsLimit("0xusdc", big.NewInt(10_000_000_000)))
	})

	t.Run("should trigger above the limit", func(t *testing.T) {
		assert.True(t, registry.ExceedsLimit("0xusdc", big.NewInt(10_000_000_001)))
	})

	t.Run("should not trigger below the limit", func(t *testing.T) {
		assert.False(t, registry.ExceedsLimit("0xusdc", big.NewInt(9_999_999_999)))
	})

	t.Run("should never trigger without a configured limit", func(t *testing.T) {
		huge, _ := new(big.Int).SetString("1000000000000000000000000", 10)
		assert.False(t, registry.ExceedsLimit("0xweth", huge))
	})

	t.Run("should never trigger for unknown assets", func(t *testing.T) {
		assert.False(t, registry.ExceedsLimit("0xdai", big.NewInt(1)))
	})
}
