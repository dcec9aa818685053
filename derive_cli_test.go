package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveIndexSpan(t *testing.T) {
	t.Run("ValidRange", func(t *testing.T) {
		first, span, err := deriveIndexSpan(10, 20)
		require.NoError(t, err)
		assert.Equal(t, uint32(10), first)
		assert.Equal(t, uint32(20), span)
	})

	t.Run("FullNonHardenedSpace", func(t *testing.T) {
		first, span, err := deriveIndexSpan(0, uint64(maxDerivationIndex)+1)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), first)
		assert.Equal(t, uint32(maxDerivationIndex)+1, span)
	})

	t.Run("ZeroCount", func(t *testing.T) {
		_, _, err := deriveIndexSpan(0, 0)
		require.Error(t, err)
	})

	t.Run("RangeCrossesHardenedBoundary", func(t *testing.T) {
		_, _, err := deriveIndexSpan(uint64(maxDerivationIndex), 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-hardened")
	})

	t.Run("RangeWouldWrapUint32", func(t *testing.T) {
		_, _, err := deriveIndexSpan(1<<32-1, 2)
		require.Error(t, err)
	})
}
