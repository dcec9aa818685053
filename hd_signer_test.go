package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Standard BIP39 test vector mnemonic; not a real wallet.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestHDSigner(t *testing.T) {
	t.Run("DerivationIsDeterministic", func(t *testing.T) {
		signer, err := NewHDSignerFromMnemonic(testMnemonic)
		require.NoError(t, err)

		first, err := signer.Derive(7)
		require.NoError(t, err)
		second, err := signer.Derive(7)
		require.NoError(t, err)

		assert.Equal(t, first.Address, second.Address)
		assert.Equal(t, first.PrivateKey.D, second.PrivateKey.D)

		// A fresh signer from the same material agrees as well
		other, err := NewHDSignerFromMnemonic(testMnemonic)
		require.NoError(t, err)
		third, err := other.Derive(7)
		require.NoError(t, err)
		assert.Equal(t, first.Address, third.Address)
	})

	t.Run("DistinctIndicesYieldDistinctKeys", func(t *testing.T) {
		signer, err := NewHDSignerFromMnemonic(testMnemonic)
		require.NoError(t, err)

		a, err := signer.Derive(0)
		require.NoError(t, err)
		b, err := signer.Derive(1)
		require.NoError(t, err)

		assert.NotEqual(t, a.Address, b.Address)
	})

	t.Run("XprvRoundTripAgreesWithMnemonic", func(t *testing.T) {
		fromMnemonic, err := NewHDSignerFromMnemonic(testMnemonic)
		require.NoError(t, err)

		xprv := fromMnemonic.master.String()
		fromXprv, err := NewHDSignerFromXprv(xprv)
		require.NoError(t, err)

		a, err := fromMnemonic.Derive(3)
		require.NoError(t, err)
		b, err := fromXprv.Derive(3)
		require.NoError(t, err)

		assert.Equal(t, a.Address, b.Address)
	})

	t.Run("InvalidMnemonic", func(t *testing.T) {
		_, err := NewHDSignerFromMnemonic("not a valid mnemonic phrase at all")
		require.Error(t, err)
	})

	t.Run("InvalidXprv", func(t *testing.T) {
		_, err := NewHDSignerFromXprv("xprv-garbage")
		require.Error(t, err)
	})

	t.Run("HardenedIndexRejected", func(t *testing.T) {
		signer, err := NewHDSignerFromMnemonic(testMnemonic)
		require.NoError(t, err)

		_, err = signer.Derive(maxDerivationIndex)
		require.NoError(t, err)

		_, err = signer.Derive(maxDerivationIndex + 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-hardened")
	})

	t.Run("NotConfigured", func(t *testing.T) {
		var signer *HDSigner
		_, err := signer.Derive(0)
		require.ErrorIs(t, err, ErrHDNotConfigured)
	})

	t.Run("ConcurrentDerivation", func(t *testing.T) {
		signer, err := NewHDSignerFromMnemonic(testMnemonic)
		require.NoError(t, err)

		reference, err := signer.Derive(42)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				identity, err := signer.Derive(42)
				require.NoError(t, err)
				require.Equal(t, reference.Address, identity.Address)
			}()
		}
		wg.Wait()
	})
}
