package xcall

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for dispatch failures. Wrapped by *DispatchError.
var (
	// ErrDataTooShort indicates the input is shorter than a selector.
	ErrDataTooShort = errors.New("xcall: input shorter than selector")

	// ErrUnknownSelector indicates no entry point is registered under the selector.
	ErrUnknownSelector = errors.New("xcall: unknown selector")

	// ErrInvalidArgs indicates the argument bytes do not decode into the declared tuple.
	ErrInvalidArgs = errors.New("xcall: invalid arguments")
)

// Sentinel errors for outbound calls and instantiation.
var (
	// ErrCallFailed is the single opaque failure of a cross-contract call.
	ErrCallFailed = errors.New("xcall: cross-contract call failed")

	// ErrCreateFailed is the single opaque failure of a contract instantiation.
	ErrCreateFailed = errors.New("xcall: contract instantiation failed")

	// ErrCodeHashMissing indicates a create builder fired before UsingCode.
	ErrCodeHashMissing = errors.New("xcall: code hash not assigned")

	// ErrCodeHashAssigned indicates UsingCode was called twice on one builder.
	ErrCodeHashAssigned = errors.New("xcall: code hash already assigned")

	// ErrBuilderSealed indicates an argument was pushed after Seal.
	ErrBuilderSealed = errors.New("xcall: builder is sealed")

	// ErrBuilderConsumed indicates a builder was fired more than once.
	ErrBuilderConsumed = errors.New("xcall: builder already fired")

	// ErrCallDataSealed indicates an argument was pushed onto frozen call data.
	ErrCallDataSealed = errors.New("xcall: call data is sealed")
)

// Sentinel errors for the codec.
var (
	// ErrUnsupportedType indicates a Go type has no ABI mapping.
	ErrUnsupportedType = errors.New("xcall: unsupported Go type")

	// ErrNonCanonical indicates bytes that decode but are not the canonical encoding.
	ErrNonCanonical = errors.New("xcall: non-canonical encoding")
)

// Sentinel errors for declarations and builds.
var (
	// ErrSelectorCollision indicates two entry points share a selector.
	ErrSelectorCollision = errors.New("xcall: selector collision")

	// ErrNoConstructor indicates a contract declares no constructor.
	ErrNoConstructor = errors.New("xcall: contract declares no constructor")

	// ErrDuplicateEvent indicates two events share a name.
	ErrDuplicateEvent = errors.New("xcall: duplicate event")

	// ErrNilHandler indicates an entry point was registered without a handler.
	ErrNilHandler = errors.New("xcall: nil handler")

	// ErrConstructorReturns indicates a constructor declared a return type.
	ErrConstructorReturns = errors.New("xcall: constructors cannot return a value")

	// ErrSpecMismatch indicates the ABI description and the dispatch tables disagree.
	ErrSpecMismatch = errors.New("xcall: ABI description does not match dispatch table")
)

// Sentinel errors for events.
var (
	// ErrUnknownEvent indicates an event name the contract never declared.
	ErrUnknownEvent = errors.New("xcall: unknown event")

	// ErrEventArgs indicates the wrong number of event values.
	ErrEventArgs = errors.New("xcall: event argument count mismatch")
)

// DispatchError reports an inbound call that was rejected before any handler ran.
type DispatchError struct {
	Mode     DispatchMode
	Selector Selector
	Err      error
}

func (e *DispatchError) Error() string {
	if errors.Is(e.Err, ErrDataTooShort) {
		return fmt.Sprintf("xcall: %s: %v", e.Mode, e.Err)
	}
	return fmt.Sprintf("xcall: %s %s: %v", e.Mode, e.Selector, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// HandlerError wraps an error returned by a constructor or message handler.
type HandlerError struct {
	Entry string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("xcall: handler %q: %v", e.Entry, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// CallError is the opaque failure of a fired call. The host's reason is not
// retained: callers cannot tell a trap from a revert or a missing callee.
type CallError struct {
	Callee   common.Address
	Selector Selector
}

func (e *CallError) Error() string {
	return fmt.Sprintf("xcall: call %s on %s failed", e.Selector, e.Callee.Hex())
}

func (e *CallError) Unwrap() error {
	return ErrCallFailed
}

// CreateError reports a failed instantiation. Err is ErrCodeHashMissing when
// the builder fired without a code hash, ErrCreateFailed otherwise.
type CreateError struct {
	CodeHash common.Hash
	Err      error
}

func (e *CreateError) Error() string {
	if errors.Is(e.Err, ErrCodeHashMissing) {
		return e.Err.Error()
	}
	return fmt.Sprintf("xcall: instantiate %s: %v", e.CodeHash.Hex(), e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// BuildError reports a declaration that cannot be turned into a contract.
type BuildError struct {
	Contract string
	Entry    string
	Err      error
}

func (e *BuildError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("xcall: build %s (%s): %v", e.Contract, e.Entry, e.Err)
	}
	return fmt.Sprintf("xcall: build %s: %v", e.Contract, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// SelectorCollisionError names the two entry points sharing a selector.
type SelectorCollisionError struct {
	Selector Selector
	First    string
	Second   string
}

func (e *SelectorCollisionError) Error() string {
	return fmt.Sprintf("xcall: selector %s used by both %q and %q", e.Selector, e.First, e.Second)
}

func (e *SelectorCollisionError) Unwrap() error {
	return ErrSelectorCollision
}

// MethodNotFoundError indicates the callee's ABI doesn't have the requested method.
type MethodNotFoundError struct {
	Contract common.Address
	Method   string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("xcall: method %q not found in contract %s", e.Method, e.Contract.Hex())
}

// ArgumentError indicates an issue with a call argument.
type ArgumentError struct {
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("xcall: argument %d for %s: %v", e.Index, e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TypeMismatchError indicates a value's type doesn't match the expected ABI type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("xcall: type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// EncodingError indicates a failure while encoding a value.
type EncodingError struct {
	Value any
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("xcall: encoding error for value %T: %v", e.Value, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
