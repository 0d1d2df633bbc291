package xcall

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Host is the execution environment around a contract. It supplies the input
// of the current invocation, accepts its output and performs outbound calls.
//
// Every method is synchronous: Evaluate, Invoke and Instantiate return only
// once the callee has completed, trapped or run out of gas.
type Host interface {
	// Input returns the raw payload of the current invocation.
	Input() []byte

	// Return hands the encoded result of the current invocation back.
	Return(data []byte)

	// Caller returns the account that started the current invocation.
	Caller() common.Address

	// Address returns the account of the running contract.
	Address() common.Address

	// Evaluate calls callee and returns its output.
	Evaluate(callee common.Address, gas uint64, value *uint256.Int, input []byte) ([]byte, error)

	// Invoke calls callee and discards its output.
	Invoke(callee common.Address, gas uint64, value *uint256.Int, input []byte) error

	// Instantiate creates a contract from codeHash, running the constructor
	// addressed by input, and returns the new account.
	Instantiate(codeHash common.Hash, gas uint64, value *uint256.Int, input []byte) (common.Address, error)

	// DepositEvent records an event.
	DepositEvent(topics []common.Hash, data []byte)
}
