package main

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestERC20TransferCalldata(t *testing.T) {
	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	amount := big.NewInt(12345678)

	data := erc20TransferCalldata(to, amount)

	assert.Len(t, data, 4+32+32)
	// transfer(address,uint256) selector
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, common.LeftPadBytes(to.Bytes(), 32), data[4:36])
	assert.Equal(t, amount, new(big.Int).SetBytes(data[36:]))
}
