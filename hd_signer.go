package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// ErrHDNotConfigured is returned when a derived-key operation is requested
// but no master extended key material was configured.
var ErrHDNotConfigured = errors.New("hd signing is not configured")

// Derivation path constants: m/44'/60'/0'/0/index. Only the final segment is
// caller input; the rest are policy constants.
const (
	hdPurpose  = 44
	hdCoinType = 60
	hdAccount  = 0
	hdChain    = 0
)

// maxDerivationIndex bounds caller-supplied indices to the non-hardened
// range; the hardened marker bit is path structure, never input.
const maxDerivationIndex = hdkeychain.HardenedKeyStart - 1

// DerivedIdentity is a child key derived at a specific index. It is a pure
// function of the master key and the index, recomputed per request and never
// persisted.
type DerivedIdentity struct {
	Index      uint32
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// HDSigner derives child signing keys from a BIP32 master extended key.
type HDSigner struct {
	master *hdkeychain.ExtendedKey
}

// NewHDSignerFromXprv creates an HD signer from a serialized extended private
// key ("xprv..."). Public-only keys are rejected.
func NewHDSignerFromXprv(xprv string) (*HDSigner, error) {
	master, err := hdkeychain.NewKeyFromString(strings.TrimSpace(xprv))
	if err != nil {
		return nil, fmt.Errorf("parse master extended key: %w", err)
	}
	if !master.IsPrivate() {
		return nil, errors.New("master extended key is public, cannot derive signing keys")
	}
	return &HDSigner{master: master}, nil
}

// NewHDSignerFromMnemonic creates an HD signer from a BIP39 mnemonic phrase.
func NewHDSignerFromMnemonic(mnemonic string) (*HDSigner, error) {
	seed, err := bip39.NewSeedWithErrorChecking(strings.TrimSpace(mnemonic), "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	// The network parameters only affect the xprv/xpub serialization prefix,
	// not the derived key material.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("derive master key from seed: %w", err)
	}
	return &HDSigner{master: master}, nil
}

// Derive computes the child identity at m/44'/60'/0'/0/index. For a fixed
// master key the result is fully deterministic, so retried requests always
// resolve to the same address.
func (h *HDSigner) Derive(index uint32) (*DerivedIdentity, error) {
	if h == nil || h.master == nil {
		return nil, ErrHDNotConfigured
	}
	if index > maxDerivationIndex {
		return nil, fmt.Errorf("derivation index %d is outside the non-hardened range", index)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + hdPurpose,
		hdkeychain.HardenedKeyStart + hdCoinType,
		hdkeychain.HardenedKeyStart + hdAccount,
		hdkeychain.HardenedKeyStart + hdChain,
		index,
	}

	key := h.master
	var err error
	for _, segment := range path {
		key, err = key.Derive(segment)
		if err != nil {
			return nil, fmt.Errorf("derive child at segment %d: %w", segment, err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		// hdkeychain can land on an invalid child key for rare indices; fail
		// loudly instead of signing with garbage.
		return nil, fmt.Errorf("no private key producible at index %d: %w", index, err)
	}

	ecdsaKey := privKey.ToECDSA()
	return &DerivedIdentity{
		Index:      index,
		PrivateKey: ecdsaKey,
		Address:    crypto.PubkeyToAddress(ecdsaKey.PublicKey),
	}, nil
}
