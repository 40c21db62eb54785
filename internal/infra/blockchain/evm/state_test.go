package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReserveDataSelector(t *testing.T) {
	// Canonical selector of getReserveData(address).
	assert.Equal(t, "35ea6a75", common.Bytes2Hex(getReserveDataSelector))
}

func TestParseStateField(t *testing.T) {
	asset := "0x0000000000000000000000000000000000002001"

	t.Run("should accept the implementation field", func(t *testing.T) {
		field, err := parseStateField("implementation")
		require.NoError(t, err)
		assert.Equal(t, fieldImplementation, field.name)
	})

	t.Run("should accept per-reserve fields with an asset", func(t *testing.T) {
		for _, name := range []string{fieldReserveFactor, fieldLiquidityRate, fieldVariableBorrowRate} {
			field, err := parseStateField(name + ":" + asset)
			require.NoError(t, err, "field %s", name)
			assert.Equal(t, name, field.name)
			assert.Equal(t, common.HexToAddress(asset), field.asset)
		}
	})

	t.Run("should reject malformed specifiers", func(t *testing.T) {
		cases := []string{
			"",
			"implementation:" + asset,
			"reserveFactor",
			"reserveFactor:nothex",
			"totalSupply:" + asset,
		}
		for _, raw := range cases {
			_, err := parseStateField(raw)
			assert.Error(t, err, "specifier %q", raw)
		}
	})
}

func TestValidateStateFields(t *testing.T) {
	asset := "0x0000000000000000000000000000000000002001"

	assert.NoError(t, ValidateStateFields(nil))
	assert.NoError(t, ValidateStateFields([]string{"implementation", "liquidityRate:" + asset}))
	assert.Error(t, ValidateStateFields([]string{"implementation", "bogus"}))
}

func TestReserveFieldValue(t *testing.T) {
	liquidityRate, ok := new(big.Int).SetString("50000000000000000000000000", 10)
	require.True(t, ok)
	borrowRate, ok := new(big.Int).SetString("70000000000000000000000000", 10)
	require.True(t, ok)

	// Configuration bitmap with a 12.00% reserve factor (1200 bps at bits
	// 64-79) and unrelated bits set around it.
	configuration := new(big.Int).Lsh(big.NewInt(1200), 64)
	configuration.Or(configuration, big.NewInt(0xFFFF))
	configuration.Or(configuration, new(big.Int).Lsh(big.NewInt(0xABC), 80))

	words := []*big.Int{
		configuration,
		big.NewInt(0),
		liquidityRate,
		big.NewInt(0),
		borrowRate,
	}

	assert.Equal(t, "1200", reserveFieldValue(fieldReserveFactor, words))
	assert.Equal(t, liquidityRate.String(), reserveFieldValue(fieldLiquidityRate, words))
	assert.Equal(t, borrowRate.String(), reserveFieldValue(fieldVariableBorrowRate, words))
}
