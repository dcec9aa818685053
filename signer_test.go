package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	t.Run("WithPrefix", func(t *testing.T) {
		signer, err := NewSigner(testHotKeyHex)
		require.NoError(t, err)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", signer.GetAddress().Hex())
	})

	t.Run("WithoutPrefix", func(t *testing.T) {
		signer, err := NewSigner(testHotKeyHex[2:])
		require.NoError(t, err)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", signer.GetAddress().Hex())
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, keyHex := range []string{"", "0x", "nothex", "0x1234"} {
			_, err := NewSigner(keyHex)
			require.Error(t, err, "key %q", keyHex)
		}
	})
}
