// Package integration runs outbound xcall builders against a live EVM node.
package integration

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/branched-services/go-xcall"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// defaultGas is used when a builder leaves the gas limit at zero.
const defaultGas = 3_000_000

// RPCHost is an xcall.Host for an externally owned account on a JSON-RPC
// node. Evaluate runs eth_call; Invoke and Instantiate send transactions and
// wait for them to be mined.
//
// Instantiate resolves code hashes through a local registry of init code:
// the node has no notion of instantiating from a hash.
type RPCHost struct {
	ctx    context.Context
	client *ethclient.Client
	from   common.Address
	auth   *bind.TransactOpts
	codes  map[common.Hash][]byte
	events []types.Log
}

var _ xcall.Host = (*RPCHost)(nil)

// NewRPCHost returns a host sending from the account of key.
func NewRPCHost(ctx context.Context, client *ethclient.Client, key *ecdsa.PrivateKey) (*RPCHost, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	return &RPCHost{
		ctx:    ctx,
		client: client,
		from:   crypto.PubkeyToAddress(key.PublicKey),
		auth:   auth,
		codes:  make(map[common.Hash][]byte),
	}, nil
}

// RegisterInitCode makes initCode instantiable under its Keccak-256 hash.
func (h *RPCHost) RegisterInitCode(initCode []byte) common.Hash {
	hash := crypto.Keccak256Hash(initCode)
	h.codes[hash] = initCode
	return hash
}

// Logs returns the logs of every transaction mined through h.
func (h *RPCHost) Logs() []types.Log {
	return h.events
}

// Input is empty: an externally owned account has no invocation payload.
func (h *RPCHost) Input() []byte {
	return nil
}

func (h *RPCHost) Return([]byte) {}

func (h *RPCHost) Caller() common.Address {
	return h.from
}

func (h *RPCHost) Address() common.Address {
	return h.from
}

func (h *RPCHost) Evaluate(callee common.Address, gas uint64, value *uint256.Int, input []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		From:  h.from,
		To:    &callee,
		Gas:   gas,
		Value: value.ToBig(),
		Data:  input,
	}
	return h.client.CallContract(h.ctx, msg, nil)
}

func (h *RPCHost) Invoke(callee common.Address, gas uint64, value *uint256.Int, input []byte) error {
	_, err := h.send(&callee, gas, value, input)
	return err
}

// Instantiate deploys the init code registered under codeHash. The selector
// is dropped from input: EVM constructors take their arguments appended to
// the init code.
func (h *RPCHost) Instantiate(codeHash common.Hash, gas uint64, value *uint256.Int, input []byte) (common.Address, error) {
	initCode, ok := h.codes[codeHash]
	if !ok {
		return common.Address{}, fmt.Errorf("no init code for %s", codeHash.Hex())
	}
	_, args, err := xcall.SplitCallData(input)
	if err != nil {
		return common.Address{}, err
	}
	data := append(append([]byte(nil), initCode...), args...)
	receipt, err := h.send(nil, gas, value, data)
	if err != nil {
		return common.Address{}, err
	}
	return receipt.ContractAddress, nil
}

// DepositEvent only logs: events of an externally owned account never reach
// the chain.
func (h *RPCHost) DepositEvent(topics []common.Hash, data []byte) {
	log.Debug("Dropping off-chain event", "topics", len(topics), "data", len(data))
}

func (h *RPCHost) send(to *common.Address, gas uint64, value *uint256.Int, data []byte) (*types.Receipt, error) {
	nonce, err := h.client.PendingNonceAt(h.ctx, h.from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := h.client.SuggestGasPrice(h.ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}
	if gas == 0 {
		gas = defaultGas
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Gas:      gas,
		GasPrice: gasPrice,
		Value:    value.ToBig(),
		Data:     data,
	})
	signed, err := h.auth.Signer(h.from, tx)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := h.client.SendTransaction(h.ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	receipt, err := bind.WaitMined(h.ctx, h.client, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s failed", signed.Hash().Hex())
	}
	for _, l := range receipt.Logs {
		h.events = append(h.events, *l)
	}
	log.Debug("Transaction mined", "hash", signed.Hash(), "gas", receipt.GasUsed, "block", receipt.BlockNumber)
	return receipt, nil
}
