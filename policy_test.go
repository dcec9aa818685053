package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyGate(t *testing.T) {
	addrA := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	addrB := "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	addrC := "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
	token := "0x1111111111111111111111111111111111111111"

	t.Run("EmptyListsAllowAll", func(t *testing.T) {
		gate := NewPolicyGate("", "")
		require.NoError(t, gate.Check(addrC, token))
	})

	t.Run("DestinationAllowList", func(t *testing.T) {
		gate := NewPolicyGate(addrA+","+addrB, "")

		require.NoError(t, gate.Check(addrA, token))
		require.NoError(t, gate.Check(addrB, token))

		err := gate.Check(addrC, token)
		require.Error(t, err)
		assert.Equal(t, ErrKindPolicy, ErrorKindOf(err))
		assert.Contains(t, err.Error(), "destination")
	})

	t.Run("ContractAllowList", func(t *testing.T) {
		gate := NewPolicyGate("", token)

		require.NoError(t, gate.Check(addrA, token))

		err := gate.Check(addrA, addrB)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token contract")
	})

	t.Run("MatchingIsCaseSensitive", func(t *testing.T) {
		gate := NewPolicyGate(addrA, "")

		err := gate.Check("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", token)
		require.Error(t, err)
	})

	t.Run("WhitespaceAndBlankEntriesIgnored", func(t *testing.T) {
		gate := NewPolicyGate(" "+addrA+" ,, "+addrB, "")
		require.NoError(t, gate.Check(addrA, token))
		require.NoError(t, gate.Check(addrB, token))
	})
}
