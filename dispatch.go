package xcall

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/log"
)

// DispatchMode selects the table an inbound call is routed through.
type DispatchMode uint8

const (
	// ModeDeploy routes to constructors.
	ModeDeploy DispatchMode = iota

	// ModeCall routes to messages.
	ModeCall
)

func (m DispatchMode) String() string {
	if m == ModeDeploy {
		return "deploy"
	}
	return "call"
}

// dispatchEntry is one row of a dispatch table: the decode, invoke and encode
// steps for a single selector.
type dispatchEntry[S any] struct {
	name      string
	signature string
	selector  Selector
	mutates   bool
	args      abi.Arguments
	returns   *abi.Type

	decode func(data []byte) (Args, error)
	invoke func(env *Env, state *S, args Args) (any, error)
	encode func(result any) ([]byte, error)
}

func newDispatchEntry[S any](r *resolvedEntry[S]) *dispatchEntry[S] {
	e := &dispatchEntry[S]{
		name:      r.decl.name,
		signature: r.signature,
		selector:  r.selector,
		mutates:   r.decl.mutates,
		args:      r.args,
		returns:   r.returns,
	}

	args := r.args
	e.decode = func(data []byte) (Args, error) {
		return DecodeArgs(args, data)
	}

	// The state capability is fixed here: read-only messages only ever see a
	// copy of the state.
	switch decl := r.decl; {
	case decl.kind == KindConstructor:
		fn := decl.ctor
		e.invoke = func(env *Env, state *S, args Args) (any, error) {
			return nil, fn(env, state, args)
		}
	case decl.mutates:
		e.invoke = decl.mut
	default:
		fn := decl.read
		e.invoke = func(env *Env, state *S, args Args) (any, error) {
			return fn(env, *state, args)
		}
	}

	if r.returns == nil {
		e.encode = func(any) ([]byte, error) { return nil, nil }
	} else {
		t := *r.returns
		e.encode = func(result any) ([]byte, error) {
			return Encode(t, result)
		}
	}
	return e
}

// Contract is a built contract: immutable dispatch tables for deployment and
// calls, the event table and the ABI description. A Contract holds no
// contract state; the state is passed to every dispatch.
type Contract[S any] struct {
	name   string
	logger log.Logger
	deploy map[Selector]*dispatchEntry[S]
	call   map[Selector]*dispatchEntry[S]
	events map[string]*resolvedEvent
	spec   *ContractSpec
}

// Name returns the contract name.
func (c *Contract[S]) Name() string {
	return c.name
}

// Spec returns the ABI description of the contract.
func (c *Contract[S]) Spec() *ContractSpec {
	return c.spec
}

// Selectors returns the registered selectors of a mode in ascending order.
func (c *Contract[S]) Selectors(mode DispatchMode) []Selector {
	table := c.table(mode)
	out := make([]Selector, 0, len(table))
	for sel := range table {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func (c *Contract[S]) table(mode DispatchMode) map[Selector]*dispatchEntry[S] {
	if mode == ModeDeploy {
		return c.deploy
	}
	return c.call
}

// NewEnv returns the environment handed to handlers running on h.
func (c *Contract[S]) NewEnv(h Host) *Env {
	return &Env{
		Host:     h,
		contract: c.name,
		events:   c.events,
		logger:   c.logger,
	}
}

// Dispatch routes the host's input to the matching handler and returns the
// encoded result.
//
// Failures before the handler runs are reported as *DispatchError wrapping
// ErrDataTooShort, ErrUnknownSelector or ErrInvalidArgs; in that case no
// handler has run and state is untouched. A handler error is returned as
// *HandlerError.
func (c *Contract[S]) Dispatch(mode DispatchMode, h Host, state *S) ([]byte, error) {
	sel, data, err := SplitCallData(h.Input())
	if err != nil {
		return nil, &DispatchError{Mode: mode, Err: err}
	}

	entry, ok := c.table(mode)[sel]
	if !ok {
		return nil, &DispatchError{Mode: mode, Selector: sel, Err: ErrUnknownSelector}
	}

	args, err := entry.decode(data)
	if err != nil {
		return nil, &DispatchError{Mode: mode, Selector: sel, Err: fmt.Errorf("%w: %w", ErrInvalidArgs, err)}
	}

	c.logger.Trace("Dispatching", "contract", c.name, "mode", mode, "entry", entry.signature, "selector", sel)

	result, err := entry.invoke(c.NewEnv(h), state, args)
	if err != nil {
		return nil, &HandlerError{Entry: entry.signature, Err: err}
	}

	if entry.returns == nil && result != nil {
		c.logger.Warn("Discarding result of entry without return type", "contract", c.name,
			"entry", entry.signature, "type", fmt.Sprintf("%T", result))
	}
	out, err := entry.encode(result)
	if err != nil {
		return nil, fmt.Errorf("xcall: result of %s: %w", entry.signature, err)
	}
	return out, nil
}

// Deploy is the deployment entry point: it dispatches the host's input to a
// constructor and returns the status for the host.
func (c *Contract[S]) Deploy(h Host, state *S) RetCode {
	return c.run(ModeDeploy, h, state)
}

// Call is the message entry point: it dispatches the host's input to a
// message, hands the result to the host and returns the status.
func (c *Contract[S]) Call(h Host, state *S) RetCode {
	return c.run(ModeCall, h, state)
}

func (c *Contract[S]) run(mode DispatchMode, h Host, state *S) (code RetCode) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Contract trapped", "contract", c.name, "mode", mode, "panic", r)
			code = RetCalleeTrapped
		}
	}()

	out, err := c.Dispatch(mode, h, state)
	if err != nil {
		code = RetCodeOf(err)
		c.logger.Debug("Dispatch failed", "contract", c.name, "mode", mode, "code", code, "err", err)
		return code
	}
	h.Return(out)
	return RetSuccess
}

// checkConsistency compares the ABI description against the dispatch tables.
// Both must carry the same selectors with the same argument and return types.
func checkConsistency[S any](spec *ContractSpec, deploy, call map[Selector]*dispatchEntry[S]) error {
	if len(spec.Constructors) != len(deploy) || len(spec.Messages) != len(call) {
		return fmt.Errorf("%w: %d/%d constructors, %d/%d messages", ErrSpecMismatch,
			len(spec.Constructors), len(deploy), len(spec.Messages), len(call))
	}
	for _, ctor := range spec.Constructors {
		e, ok := deploy[ctor.Selector]
		if !ok || !sameArgs(ctor.Args, e.args) {
			return fmt.Errorf("%w: constructor %s %s", ErrSpecMismatch, ctor.Name, ctor.Selector)
		}
	}
	for _, msg := range spec.Messages {
		e, ok := call[msg.Selector]
		if !ok || !sameArgs(msg.Args, e.args) || msg.Mutates != e.mutates || !sameReturn(msg.ReturnType, e.returns) {
			return fmt.Errorf("%w: message %s %s", ErrSpecMismatch, msg.Name, msg.Selector)
		}
	}
	return nil
}

func sameArgs(params []ParamSpec, args abi.Arguments) bool {
	if len(params) != len(args) {
		return false
	}
	for i, p := range params {
		if p.Type != args[i].Type.String() {
			return false
		}
	}
	return true
}

func sameReturn(spec *string, t *abi.Type) bool {
	if spec == nil || t == nil {
		return spec == nil && t == nil
	}
	return *spec == t.String()
}
