package integration

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"testing"

	"github.com/branched-services/go-xcall"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Test private key (Anvil default account 0)
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// answerInitCode deploys a contract that returns the word 42 for any input.
//
//	init:    PUSH1 0x0a PUSH1 0x0c PUSH1 0x00 CODECOPY PUSH1 0x0a PUSH1 0x00 RETURN
//	runtime: PUSH1 0x2a PUSH1 0x00 MSTORE PUSH1 0x20 PUSH1 0x00 RETURN
var answerInitCode = hexutil.MustDecode("0x600a600c600039600a6000f3602a60005260206000f3")

var (
	sha256Precompile   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	identityPrecompile = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

func newHost(t *testing.T) *RPCHost {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("Set INTEGRATION_TEST=1 to run integration tests")
	}

	ctx := context.Background()

	// Connect to Anvil
	client, err := ethclient.Dial("http://localhost:8545")
	if err != nil {
		t.Fatalf("Failed to connect to Anvil: %v", err)
	}
	t.Cleanup(client.Close)

	privateKey, err := crypto.HexToECDSA(testPrivateKey)
	if err != nil {
		t.Fatalf("Failed to parse private key: %v", err)
	}
	host, err := NewRPCHost(ctx, client, privateKey)
	if err != nil {
		t.Fatalf("Failed to create host: %v", err)
	}
	return host
}

func TestEvaluatePrecompile(t *testing.T) {
	host := newHost(t)

	b := xcall.Eval[[32]byte](sha256Precompile, xcall.ComputeSelector("digest(uint256)")).
		PushArg(uint64(7))
	input := b.Params().Input()

	got, err := b.Seal().Fire(host)
	if err != nil {
		t.Fatalf("Failed to evaluate: %v", err)
	}
	if want := sha256.Sum256(input); got != want {
		t.Errorf("Expected %x, got %x", want, got)
	}
}

func TestInvokeTransaction(t *testing.T) {
	host := newHost(t)

	err := xcall.Invoke(identityPrecompile, xcall.ComputeSelector("echo(address)")).
		PushArg(host.Address()).
		WithGasLimit(100_000).
		Fire(host)
	if err != nil {
		t.Fatalf("Failed to invoke: %v", err)
	}
}

func TestInstantiateAndEvaluate(t *testing.T) {
	host := newHost(t)
	codeHash := host.RegisterInitCode(answerInitCode)

	addr, err := xcall.Create(xcall.ZeroSelector).UsingCode(codeHash).Fire(host)
	if err != nil {
		t.Fatalf("Failed to instantiate: %v", err)
	}
	t.Logf("Deployed at: %s", addr.Hex())

	answer, err := xcall.Eval[int32](addr, xcall.ComputeSelector("answer()")).Fire(host)
	if err != nil {
		t.Fatalf("Failed to evaluate: %v", err)
	}
	if answer != 42 {
		t.Errorf("Expected 42, got %d", answer)
	}
}

func TestCallWithoutCodeFails(t *testing.T) {
	host := newHost(t)

	// An account without code returns no output, which does not decode.
	empty := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	_, err := xcall.Eval[uint32](empty, xcall.ComputeSelector("get()")).Fire(host)
	if !errors.Is(err, xcall.ErrCallFailed) {
		t.Fatalf("Expected ErrCallFailed, got %v", err)
	}
}
