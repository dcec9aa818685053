package main

import (
	"fmt"
	"os"
	"strconv"
)

// runDeriveCli prints the derived addresses for a range of indices. Used by
// operators to provision deposit addresses upstream without exposing key
// material.
//
// Example: signet derive 0 20
func runDeriveCli(logger Logger) {
	logger = logger.NewSystem("derive")
	if len(os.Args) < 4 {
		logger.Fatal("Usage: signet derive <start_index> <count>")
	}

	start, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		logger.Fatal("Invalid start index", "value", os.Args[2])
	}
	count, err := strconv.ParseUint(os.Args[3], 10, 32)
	if err != nil || count == 0 {
		logger.Fatal("Invalid count", "value", os.Args[3])
	}
	first, span, err := deriveIndexSpan(start, count)
	if err != nil {
		logger.Fatal("Invalid index range", "start", start, "count", count, "error", err)
	}

	config, err := LoadConfig(logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}

	hdSigner, err := NewHDSignerFromConfig(config)
	if err != nil {
		logger.Fatal("Failed to initialise hd signer", "error", err)
	}
	if hdSigner == nil {
		logger.Fatal("No master key material configured")
	}

	for i := uint32(0); i < span; i++ {
		index := first + i
		identity, err := hdSigner.Derive(index)
		if err != nil {
			logger.Fatal("Derivation failed", "index", index, "error", err)
		}
		fmt.Printf("%d\t%s\n", index, identity.Address.Hex())
	}
}

// deriveIndexSpan validates the requested range against the non-hardened
// derivation space, so the loop cannot wrap past the last usable index.
func deriveIndexSpan(start, count uint64) (uint32, uint32, error) {
	if count == 0 {
		return 0, 0, fmt.Errorf("count must be positive")
	}
	if start+count > uint64(maxDerivationIndex)+1 {
		return 0, 0, fmt.Errorf("range [%d, %d) exceeds the non-hardened index space", start, start+count)
	}
	return uint32(start), uint32(count), nil
}
