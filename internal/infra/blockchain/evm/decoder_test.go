package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabapcia/poolwatch/internal/poolwatch"
)

var allKinds = []poolwatch.EventKind{
	poolwatch.KindDeposit,
	poolwatch.KindWithdraw,
	poolwatch.KindBorrow,
	poolwatch.KindRepay,
	poolwatch.KindLiquidation,
	poolwatch.KindFlashLoan,
}

var (
	poolAddr       = common.HexToAddress("0x0000000000000000000000000000000000001001")
	reserveAddr    = common.HexToAddress("0x0000000000000000000000000000000000002001")
	collateralAddr = common.HexToAddress("0x0000000000000000000000000000000000002002")
	userAddr       = common.HexToAddress("0x0000000000000000000000000000000000003001")
	liquidatorAddr = common.HexToAddress("0x0000000000000000000000000000000000003002")
)

func addressTopic(addr common.Address) string {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32)).Hex()
}

func uintTopic(n int64) string {
	return common.BigToHash(big.NewInt(n)).Hex()
}

func intWord(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}

func addressWord(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func boolWord(b bool) []byte {
	v := big.NewInt(0)
	if b {
		v = big.NewInt(1)
	}
	return intWord(v)
}

func signatureTopic(t *testing.T, eventName string) string {
	t.Helper()
	poolABI, err := PoolABI()
	require.NoError(t, err)
	event, ok := poolABI.Events[eventName]
	require.True(t, ok)
	return event.ID.Hex()
}

func TestPoolABI_EventSignatures(t *testing.T) {
	// Signature hashes as emitted on chain; a silent ABI edit would change
	// these and break log matching.
	expected := map[string]string{
		"Supply":          "0x2b627736bca15cd5381dcf80b0bf11fd197d01a037c52b927a881a10fb73ba61",
		"Withdraw":        "0x3115d1449a7b732c986cba18244e897a450f61e1bb8d589cd2e69e6c8924f9f7",
		"Borrow":          "0xc6a898309e823ee50bac40dbae5b8d3b9fede325bbcba08b4a4c1896cd62dfab",
		"Repay":           "0x4cdde6e09bb755c9a5589ebaec640bbfedff1362d4b255ebf8339782b9942faa",
		"LiquidationCall": "0xe413a321e8681d831f4dbccbca790d2952b56f977908e45be37335533e005286",
		"FlashLoan":       "0x631042c832b07452973831137f2d73e395028b44b250dedc5abb0ee766e168ac",
	}

	for name, want := range expected {
		assert.Equal(t, want, signatureTopic(t, name), "event %s", name)
	}
}

func TestDecoder_Decode(t *testing.T) {
	decoder, err := NewDecoder(allKinds)
	require.NoError(t, err)

	t.Run("should decode a supply log into a deposit event", func(t *testing.T) {
		data := append(addressWord(userAddr), intWord(big.NewInt(5_000_000))...)
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Supply"),
				addressTopic(reserveAddr),
				addressTopic(userAddr), // onBehalfOf
				uintTopic(0),           // referralCode
			},
			Data:     data,
			Block:    101,
			LogIndex: 0,
			TxHash:   "0xtx1",
		}

		event, err := decoder.Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, poolwatch.KindDeposit, event.Kind)
		assert.Equal(t, poolwatch.ChainPosition{Block: 101, LogIndex: 0}, event.Position)
		assert.Equal(t, "deposit@101/0", event.Identity)
		assert.Equal(t, "0xtx1", event.TxHash)
		assert.Equal(t, reserveAddr.Hex(), event.Asset)
		assert.Equal(t, userAddr.Hex(), event.Participant)
		assert.Equal(t, big.NewInt(5_000_000), event.Amount)
	})

	t.Run("should decode a withdraw log", func(t *testing.T) {
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Withdraw"),
				addressTopic(reserveAddr),
				addressTopic(userAddr),
				addressTopic(userAddr), // to
			},
			Data:     intWord(big.NewInt(7)),
			Block:    102,
			LogIndex: 3,
			TxHash:   "0xtx2",
		}

		event, err := decoder.Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, poolwatch.KindWithdraw, event.Kind)
		assert.Equal(t, "withdraw@102/3", event.Identity)
		assert.Equal(t, userAddr.Hex(), event.Participant)
		assert.Equal(t, big.NewInt(7), event.Amount)
	})

	t.Run("should decode a borrow log including the rate", func(t *testing.T) {
		rate, ok := new(big.Int).SetString("50000000000000000000000000", 10)
		require.True(t, ok)

		data := addressWord(userAddr)
		data = append(data, intWord(big.NewInt(2_000_000))...)
		data = append(data, intWord(big.NewInt(2))...) // interestRateMode
		data = append(data, intWord(rate)...)

		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Borrow"),
				addressTopic(reserveAddr),
				addressTopic(userAddr), // onBehalfOf
				uintTopic(0),
			},
			Data:     data,
			Block:    103,
			LogIndex: 1,
			TxHash:   "0xtx3",
		}

		event, err := decoder.Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, poolwatch.KindBorrow, event.Kind)
		assert.Equal(t, userAddr.Hex(), event.Participant)
		assert.Equal(t, big.NewInt(2_000_000), event.Amount)
		assert.Equal(t, rate, event.BorrowRate)
	})

	t.Run("should decode a repay log", func(t *testing.T) {
		data := append(intWord(big.NewInt(9)), boolWord(true)...)
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Repay"),
				addressTopic(reserveAddr),
				addressTopic(userAddr),
				addressTopic(liquidatorAddr), // repayer
			},
			Data:     data,
			Block:    104,
			LogIndex: 2,
			TxHash:   "0xtx4",
		}

		event, err := decoder.Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, poolwatch.KindRepay, event.Kind)
		assert.Equal(t, userAddr.Hex(), event.Participant)
		assert.Equal(t, big.NewInt(9), event.Amount)
	})

	t.Run("should decode a liquidation log with both sides", func(t *testing.T) {
		data := intWord(big.NewInt(3_000_000))
		data = append(data, intWord(big.NewInt(1_500_000))...)
		data = append(data, addressWord(liquidatorAddr)...)
		data = append(data, boolWord(false)...)

		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "LiquidationCall"),
				addressTopic(collateralAddr),
				addressTopic(reserveAddr), // debtAsset
				addressTopic(userAddr),
			},
			Data:     data,
			Block:    105,
			LogIndex: 4,
			TxHash:   "0xtx5",
		}

		event, err := decoder.Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, poolwatch.KindLiquidation, event.Kind)
		assert.Equal(t, userAddr.Hex(), event.Participant)
		assert.Equal(t, reserveAddr.Hex(), event.Asset)
		assert.Equal(t, big.NewInt(3_000_000), event.Amount)
		assert.Equal(t, collateralAddr.Hex(), event.CollateralAsset)
		assert.Equal(t, big.NewInt(1_500_000), event.CollateralAmount)
		assert.Equal(t, liquidatorAddr.Hex(), event.Liquidator)
	})

	t.Run("should decode a flash loan log", func(t *testing.T) {
		data := addressWord(userAddr) // initiator
		data = append(data, intWord(big.NewInt(42))...)
		data = append(data, intWord(big.NewInt(0))...) // interestRateMode
		data = append(data, intWord(big.NewInt(21))...)

		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "FlashLoan"),
				addressTopic(liquidatorAddr), // target
				addressTopic(reserveAddr),
				uintTopic(0),
			},
			Data:     data,
			Block:    106,
			LogIndex: 0,
			TxHash:   "0xtx6",
		}

		event, err := decoder.Decode(raw)
		require.NoError(t, err)

		assert.Equal(t, poolwatch.KindFlashLoan, event.Kind)
		assert.Equal(t, userAddr.Hex(), event.Participant)
		assert.Equal(t, reserveAddr.Hex(), event.Asset)
		assert.Equal(t, big.NewInt(42), event.Amount)
	})

	t.Run("should skip logs with unknown signatures", func(t *testing.T) {
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics:  []string{common.HexToHash("0x01").Hex()},
			Block:   101,
		}

		_, err := decoder.Decode(raw)
		assert.ErrorIs(t, err, poolwatch.ErrLogSkipped)
	})

	t.Run("should skip logs without topics", func(t *testing.T) {
		_, err := decoder.Decode(poolwatch.RawLog{Address: poolAddr.Hex()})
		assert.ErrorIs(t, err, poolwatch.ErrLogSkipped)
	})

	t.Run("should fail on a known signature with truncated data", func(t *testing.T) {
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Supply"),
				addressTopic(reserveAddr),
				addressTopic(userAddr),
				uintTopic(0),
			},
			Data:     []byte{0x01, 0x02},
			Block:    101,
			LogIndex: 5,
		}

		_, err := decoder.Decode(raw)
		require.Error(t, err)
		assert.NotErrorIs(t, err, poolwatch.ErrLogSkipped)

		var decodeErr *poolwatch.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, poolwatch.ChainPosition{Block: 101, LogIndex: 5}, decodeErr.Position)
	})

	t.Run("should fail on a known signature with missing topics", func(t *testing.T) {
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Supply"),
				addressTopic(reserveAddr),
			},
			Data:     append(addressWord(userAddr), intWord(big.NewInt(1))...),
			Block:    101,
			LogIndex: 6,
		}

		_, err := decoder.Decode(raw)
		var decodeErr *poolwatch.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestDecoder_TrackedSubset(t *testing.T) {
	decoder, err := NewDecoder([]poolwatch.EventKind{poolwatch.KindDeposit})
	require.NoError(t, err)

	t.Run("should expose only the tracked signatures", func(t *testing.T) {
		topics := decoder.TopicFilter()
		require.Len(t, topics, 1)

		poolABI, err := PoolABI()
		require.NoError(t, err)
		assert.Equal(t, poolABI.Events["Supply"].ID, topics[0])
	})

	t.Run("should skip untracked known events", func(t *testing.T) {
		raw := poolwatch.RawLog{
			Address: poolAddr.Hex(),
			Topics: []string{
				signatureTopic(t, "Withdraw"),
				addressTopic(reserveAddr),
				addressTopic(userAddr),
				addressTopic(userAddr),
			},
			Data:  intWord(big.NewInt(1)),
			Block: 101,
		}

		_, err := decoder.Decode(raw)
		assert.ErrorIs(t, err, poolwatch.ErrLogSkipped)
	})
}
