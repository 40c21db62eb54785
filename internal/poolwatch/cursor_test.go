package poolwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateCursor(t *testing.T) {
	cursor := NewStateCursor(42)

	assert.Equal(t, EndOfBlock(42), cursor.LastProcessed)
	assert.NotNil(t, cursor.Baselines)
	assert.Empty(t, cursor.Baselines)
}

func TestStateCursor_Baseline(t *testing.T) {
	cursor := NewStateCursor(1)
	cursor.Baselines["implementation"] = "0xabc"

	t.Run("should return recorded baselines", func(t *testing.T) {
		value, ok := cursor.Baseline("implementation")
		require.True(t, ok)
		assert.Equal(t, "0xabc", value)
	})

	t.Run("should report unknown fields", func(t *testing.T) {
		_, ok := cursor.Baseline("liquidityRate:0xdef")
		assert.False(t, ok)
	})
}

func TestStateCursor_Clone(t *testing.T) {
	original := NewStateCursor(10)
	original.Baselines["implementation"] = "0xabc"

	clone := original.Clone()
	clone.LastProcessed = EndOfBlock(11)
	clone.Baselines["implementation"] = "0xdef"

	assert.Equal(t, EndOfBlock(10), original.LastProcessed)
	assert.Equal(t, "0xabc", original.Baselines["implementation"])
	assert.Equal(t, "0xdef", clone.Baselines["implementation"])
}

func TestNopCursorStorage(t *testing.T) {
	storage := nopCursorStorage{}

	_, err := storage.Load(t.Context())
	assert.ErrorIs(t, err, ErrNoCursorFound)

	assert.NoError(t, storage.Save(t.Context(), NewStateCursor(1)))
}
