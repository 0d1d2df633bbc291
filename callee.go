package xcall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Callee wraps a deployed contract and its ABI so calls can be built by method
// name instead of raw selector.
type Callee struct {
	address common.Address
	abi     abi.ABI
}

// NewCallee creates a Callee for the contract at address.
func NewCallee(address common.Address, contractABI abi.ABI) *Callee {
	return &Callee{
		address: address,
		abi:     contractABI,
	}
}

// CalleeFromSpec creates a Callee from the description of a contract built
// with this package.
func CalleeFromSpec(address common.Address, spec *ContractSpec) (*Callee, error) {
	methods := make(map[string]abi.Method, len(spec.Messages))
	for _, m := range spec.Messages {
		inputs, err := argumentsOf(m.Args)
		if err != nil {
			return nil, fmt.Errorf("xcall: message %s: %w", m.Name, err)
		}
		var outputs abi.Arguments
		if m.ReturnType != nil {
			t, err := ParseType(*m.ReturnType)
			if err != nil {
				return nil, fmt.Errorf("xcall: message %s: %w", m.Name, err)
			}
			outputs = abi.Arguments{{Type: t}}
		}
		mutability := "view"
		if m.Mutates {
			mutability = "nonpayable"
		}
		method := abi.NewMethod(m.Name, m.Name, abi.Function, mutability, false, false, inputs, outputs)
		method.ID = m.Selector.Bytes()
		methods[m.Name] = method
	}
	return NewCallee(address, abi.ABI{Methods: methods}), nil
}

func argumentsOf(params []ParamSpec) (abi.Arguments, error) {
	args := make(abi.Arguments, len(params))
	for i, p := range params {
		t, err := ParseType(p.Type)
		if err != nil {
			return nil, err
		}
		args[i] = abi.Argument{Name: p.Name, Type: t}
	}
	return args, nil
}

// Address returns the contract address.
func (c *Callee) Address() common.Address {
	return c.address
}

// ABI returns the contract ABI.
func (c *Callee) ABI() abi.ABI {
	return c.abi
}

// Invoke starts a call to the named method that discards its output. Each
// argument is encoded against the method's input type.
func (c *Callee) Invoke(methodName string, args ...any) (*InvokeBuilder, error) {
	method, err := c.method(methodName, args)
	if err != nil {
		return nil, err
	}
	b := Invoke(c.address, selectorOf(method))
	for i, input := range method.Inputs {
		b.PushTypedArg(input.Type, args[i])
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// MustInvoke is like Invoke but panics on error.
func (c *Callee) MustInvoke(methodName string, args ...any) *InvokeBuilder {
	b, err := c.Invoke(methodName, args...)
	if err != nil {
		panic(err)
	}
	return b
}

// EvalMethod starts a call to the named method of c whose first output is
// decoded into R.
func EvalMethod[R any](c *Callee, methodName string, args ...any) (*EvalBuilder[R], error) {
	method, err := c.method(methodName, args)
	if err != nil {
		return nil, err
	}
	if len(method.Outputs) == 0 {
		return nil, fmt.Errorf("xcall: method %s returns nothing", method.Sig)
	}
	b := Eval[R](c.address, selectorOf(method)).Returns(method.Outputs[0].Type)
	for i, input := range method.Inputs {
		b.PushTypedArg(input.Type, args[i])
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Callee) method(name string, args []any) (abi.Method, error) {
	method, ok := c.abi.Methods[name]
	if !ok {
		return abi.Method{}, &MethodNotFoundError{Contract: c.address, Method: name}
	}
	if len(args) != len(method.Inputs) {
		return abi.Method{}, &ArgumentError{
			Method: name,
			Index:  len(args),
			Err:    fmt.Errorf("expected %d arguments, got %d", len(method.Inputs), len(args)),
		}
	}
	return method, nil
}

func selectorOf(m abi.Method) Selector {
	var sel Selector
	copy(sel[:], m.ID)
	return sel
}

// HasMethod returns true if the callee has a method with the given name.
func (c *Callee) HasMethod(methodName string) bool {
	_, ok := c.abi.Methods[methodName]
	return ok
}

// MethodNames returns all method names in the ABI, sorted.
func (c *Callee) MethodNames() []string {
	names := make([]string, 0, len(c.abi.Methods))
	for name := range c.abi.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseABI parses a JSON ABI string into an abi.ABI.
func ParseABI(abiJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}
