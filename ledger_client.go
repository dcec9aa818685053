package main

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// erc20TransferGasLimit covers a standard ERC-20 transfer including tokens
// that do balance bookkeeping on transfer.
const erc20TransferGasLimit = 100_000

// LedgerClient builds, signs and broadcasts a token transfer with the
// resolved signing identity. Implementations own all chain-specific encoding
// and fee handling.
type LedgerClient interface {
	SendTokenTransfer(ctx context.Context, key *ecdsa.PrivateKey, token, to common.Address, amount *big.Int) (string, error)
}

// EthLedgerClient submits ERC-20 transfers through an Ethereum JSON-RPC
// endpoint. Gas price is the node's suggestion capped at the configured
// ceiling; the service never bids above it.
type EthLedgerClient struct {
	client     *ethclient.Client
	chainID    *big.Int
	feeCeiling *big.Int
	logger     Logger
}

// NewEthLedgerClient dials the RPC endpoint and prepares a client for the
// given chain.
func NewEthLedgerClient(rpcURL string, chainID uint64, feeCeilingWei uint64, logger Logger) (*EthLedgerClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to ledger RPC")
	}

	return &EthLedgerClient{
		client:     client,
		chainID:    new(big.Int).SetUint64(chainID),
		feeCeiling: new(big.Int).SetUint64(feeCeilingWei),
		logger:     logger.NewSystem("ledger-client"),
	}, nil
}

func (c *EthLedgerClient) SendTokenTransfer(ctx context.Context, key *ecdsa.PrivateKey, token, to common.Address, amount *big.Int) (string, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch account nonce")
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch gas price")
	}
	if gasPrice.Cmp(c.feeCeiling) > 0 {
		gasPrice = new(big.Int).Set(c.feeCeiling)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      erc20TransferGasLimit,
		To:       &token,
		Value:    big.NewInt(0),
		Data:     erc20TransferCalldata(to, amount),
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", errors.Wrap(err, "failed to broadcast transaction")
	}

	txHash := signedTx.Hash()
	c.logger.Info("transfer broadcast", "txHash", txHash.Hex(), "from", from.Hex(), "token", token.Hex(), "to", to.Hex())
	return txHash.Hex(), nil
}

// TransactionExists reports whether the ledger knows the transaction, used by
// the reconcile command to find committed records whose transaction never
// landed.
func (c *EthLedgerClient) TransactionExists(ctx context.Context, txHash string) (bool, error) {
	_, _, err := c.client.TransactionByHash(ctx, common.HexToHash(txHash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	return false, errors.Wrap(err, "failed to query transaction")
}

// erc20TransferCalldata packs transfer(address,uint256) with ABI encoding.
func erc20TransferCalldata(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, erc20TransferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// erc20TransferSelector is the 4-byte selector of transfer(address,uint256).
var erc20TransferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
