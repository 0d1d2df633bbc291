package xcall

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// ReturnKind marks whether a call expects a value back.
type ReturnKind uint8

const (
	// ReturnsNothing calls are fired through Host.Invoke.
	ReturnsNothing ReturnKind = iota

	// ReturnsValue calls are fired through Host.Evaluate and decode the output.
	ReturnsValue
)

func (k ReturnKind) String() string {
	if k == ReturnsValue {
		return "value"
	}
	return "nothing"
}

// CallParams are the parameters of a cross-contract call.
type CallParams struct {
	callee   common.Address
	gasLimit uint64
	value    *uint256.Int
	returns  ReturnKind
	data     *CallData
}

func newCallParams(callee common.Address, selector Selector, returns ReturnKind) CallParams {
	return CallParams{
		callee:  callee,
		value:   new(uint256.Int),
		returns: returns,
		data:    NewCallData(selector),
	}
}

// Callee returns the account to be called.
func (p CallParams) Callee() common.Address {
	return p.callee
}

// GasLimit returns the gas limit. Zero leaves the limit to the host.
func (p CallParams) GasLimit() uint64 {
	return p.gasLimit
}

// Value returns a copy of the transferred value.
func (p CallParams) Value() *uint256.Int {
	return new(uint256.Int).Set(p.value)
}

// Returns reports whether the call expects a value back.
func (p CallParams) Returns() ReturnKind {
	return p.returns
}

// Selector returns the selector of the called message.
func (p CallParams) Selector() Selector {
	return p.data.Selector()
}

// NumArgs returns the number of pushed arguments.
func (p CallParams) NumArgs() int {
	return p.data.Len()
}

// Input returns the encoded call data.
func (p CallParams) Input() []byte {
	return p.data.Bytes()
}

// callState is shared by every call builder. err is sticky: the first failed
// push is reported by Err, Seal and Fire.
type callState struct {
	params   CallParams
	err      error
	sealed   bool
	consumed bool
}

func (s *callState) push(t *abi.Type, v any) {
	if s.sealed {
		if s.err == nil {
			s.err = ErrBuilderSealed
		}
		return
	}
	if s.err != nil {
		return
	}
	var err error
	if t == nil {
		err = s.params.data.PushArg(v)
	} else {
		err = s.params.data.PushTypedArg(*t, v)
	}
	if err != nil {
		s.err = &ArgumentError{Method: s.params.Selector().Hex(), Index: s.params.data.Len(), Err: err}
	}
}

func (s *callState) setValue(v *uint256.Int) {
	if v == nil {
		s.params.value = new(uint256.Int)
		return
	}
	s.params.value = new(uint256.Int).Set(v)
}

// seal freezes the call data and hands the state to a sealed builder. The
// receiver is consumed: it can neither push nor fire afterwards.
func (s *callState) seal() callState {
	s.params.data.freeze()
	next := *s
	s.sealed = true
	s.consumed = true
	return next
}

// fire sends the call through the host primitive matching the return kind.
func (s *callState) fire(h Host) ([]byte, error) {
	if s.consumed {
		return nil, ErrBuilderConsumed
	}
	s.consumed = true
	if s.err != nil {
		return nil, s.err
	}
	s.params.data.freeze()

	p := s.params
	input := p.data.Bytes()
	log.Debug("Firing cross-contract call", "callee", p.callee, "selector", p.Selector(),
		"returns", p.returns, "gas", p.gasLimit, "value", p.value, "args", p.data.Len())

	if p.returns == ReturnsNothing {
		if err := h.Invoke(p.callee, p.gasLimit, p.Value(), input); err != nil {
			log.Debug("Cross-contract call failed", "callee", p.callee, "selector", p.Selector(), "err", err)
			return nil, &CallError{Callee: p.callee, Selector: p.Selector()}
		}
		return nil, nil
	}

	out, err := h.Evaluate(p.callee, p.gasLimit, p.Value(), input)
	if err != nil {
		log.Debug("Cross-contract call failed", "callee", p.callee, "selector", p.Selector(), "err", err)
		return nil, &CallError{Callee: p.callee, Selector: p.Selector()}
	}
	return out, nil
}

// InvokeBuilder builds a call that returns nothing. Arguments may be pushed
// until Seal.
type InvokeBuilder struct {
	state callState
}

// Invoke starts a call to selector on callee that returns nothing.
// Prefer it over Eval when the result is not needed.
func Invoke(callee common.Address, selector Selector) *InvokeBuilder {
	return &InvokeBuilder{state: callState{params: newCallParams(callee, selector, ReturnsNothing)}}
}

// WithCallee sets the account to be called.
func (b *InvokeBuilder) WithCallee(callee common.Address) *InvokeBuilder {
	b.state.params.callee = callee
	return b
}

// WithGasLimit sets the maximum gas the call may use.
func (b *InvokeBuilder) WithGasLimit(gas uint64) *InvokeBuilder {
	b.state.params.gasLimit = gas
	return b
}

// WithValue sets the value transferred with the call.
func (b *InvokeBuilder) WithValue(v *uint256.Int) *InvokeBuilder {
	b.state.setValue(v)
	return b
}

// PushArg appends an argument, inferring its ABI type.
func (b *InvokeBuilder) PushArg(v any) *InvokeBuilder {
	b.state.push(nil, v)
	return b
}

// PushTypedArg appends an argument encoded as t.
func (b *InvokeBuilder) PushTypedArg(t abi.Type, v any) *InvokeBuilder {
	b.state.push(&t, v)
	return b
}

// Err returns the first error recorded while building.
func (b *InvokeBuilder) Err() error {
	return b.state.err
}

// Params returns the parameters built so far.
func (b *InvokeBuilder) Params() CallParams {
	return b.state.params
}

// Seal forbids further arguments.
func (b *InvokeBuilder) Seal() *SealedInvoke {
	return &SealedInvoke{state: b.state.seal()}
}

// Fire performs the call.
func (b *InvokeBuilder) Fire(h Host) error {
	_, err := b.state.fire(h)
	return err
}

// SealedInvoke is an InvokeBuilder that accepts no more arguments.
type SealedInvoke struct {
	state callState
}

// WithCallee sets the account to be called.
func (b *SealedInvoke) WithCallee(callee common.Address) *SealedInvoke {
	b.state.params.callee = callee
	return b
}

// WithGasLimit sets the maximum gas the call may use.
func (b *SealedInvoke) WithGasLimit(gas uint64) *SealedInvoke {
	b.state.params.gasLimit = gas
	return b
}

// WithValue sets the value transferred with the call.
func (b *SealedInvoke) WithValue(v *uint256.Int) *SealedInvoke {
	b.state.setValue(v)
	return b
}

// Err returns the first error recorded before sealing.
func (b *SealedInvoke) Err() error {
	return b.state.err
}

// Params returns the call parameters.
func (b *SealedInvoke) Params() CallParams {
	return b.state.params
}

// Fire performs the call.
func (b *SealedInvoke) Fire(h Host) error {
	_, err := b.state.fire(h)
	return err
}

// EvalBuilder builds a call whose output is decoded into R.
type EvalBuilder[R any] struct {
	state   callState
	returns abi.Type
	typeErr error
}

// Eval starts a call to selector on callee that returns an R. The ABI type of
// the result is inferred from R; use Returns to override it.
func Eval[R any](callee common.Address, selector Selector) *EvalBuilder[R] {
	b := &EvalBuilder[R]{state: callState{params: newCallParams(callee, selector, ReturnsValue)}}
	b.returns, b.typeErr = typeFor(reflectTypeOf[R]())
	return b
}

// Returns sets the ABI type the output is decoded as, e.g. int256 for a
// *big.Int result.
func (b *EvalBuilder[R]) Returns(t abi.Type) *EvalBuilder[R] {
	b.returns, b.typeErr = t, nil
	return b
}

// WithCallee sets the account to be called.
func (b *EvalBuilder[R]) WithCallee(callee common.Address) *EvalBuilder[R] {
	b.state.params.callee = callee
	return b
}

// WithGasLimit sets the maximum gas the call may use.
func (b *EvalBuilder[R]) WithGasLimit(gas uint64) *EvalBuilder[R] {
	b.state.params.gasLimit = gas
	return b
}

// WithValue sets the value transferred with the call.
func (b *EvalBuilder[R]) WithValue(v *uint256.Int) *EvalBuilder[R] {
	b.state.setValue(v)
	return b
}

// PushArg appends an argument, inferring its ABI type.
func (b *EvalBuilder[R]) PushArg(v any) *EvalBuilder[R] {
	b.state.push(nil, v)
	return b
}

// PushTypedArg appends an argument encoded as t.
func (b *EvalBuilder[R]) PushTypedArg(t abi.Type, v any) *EvalBuilder[R] {
	b.state.push(&t, v)
	return b
}

// Err returns the first error recorded while building.
func (b *EvalBuilder[R]) Err() error {
	if b.typeErr != nil {
		return b.typeErr
	}
	return b.state.err
}

// Params returns the parameters built so far.
func (b *EvalBuilder[R]) Params() CallParams {
	return b.state.params
}

// Seal forbids further arguments.
func (b *EvalBuilder[R]) Seal() *SealedEval[R] {
	return &SealedEval[R]{state: b.state.seal(), returns: b.returns, typeErr: b.typeErr}
}

// Fire performs the call and decodes its output.
func (b *EvalBuilder[R]) Fire(h Host) (R, error) {
	return fireEval[R](&b.state, b.returns, b.typeErr, h)
}

// SealedEval is an EvalBuilder that accepts no more arguments.
type SealedEval[R any] struct {
	state   callState
	returns abi.Type
	typeErr error
}

// WithCallee sets the account to be called.
func (b *SealedEval[R]) WithCallee(callee common.Address) *SealedEval[R] {
	b.state.params.callee = callee
	return b
}

// WithGasLimit sets the maximum gas the call may use.
func (b *SealedEval[R]) WithGasLimit(gas uint64) *SealedEval[R] {
	b.state.params.gasLimit = gas
	return b
}

// WithValue sets the value transferred with the call.
func (b *SealedEval[R]) WithValue(v *uint256.Int) *SealedEval[R] {
	b.state.setValue(v)
	return b
}

// Err returns the first error recorded before sealing.
func (b *SealedEval[R]) Err() error {
	if b.typeErr != nil {
		return b.typeErr
	}
	return b.state.err
}

// Params returns the call parameters.
func (b *SealedEval[R]) Params() CallParams {
	return b.state.params
}

// Fire performs the call and decodes its output.
func (b *SealedEval[R]) Fire(h Host) (R, error) {
	return fireEval[R](&b.state, b.returns, b.typeErr, h)
}

func fireEval[R any](s *callState, returns abi.Type, typeErr error, h Host) (R, error) {
	var zero R
	if typeErr != nil && s.err == nil && !s.consumed {
		s.err = typeErr
	}
	out, err := s.fire(h)
	if err != nil {
		return zero, err
	}
	r, err := decodeAs[R](returns, out)
	if err != nil {
		log.Debug("Cross-contract call returned undecodable output", "callee", s.params.callee,
			"selector", s.params.Selector(), "type", returns.String(), "err", err)
		return zero, &CallError{Callee: s.params.callee, Selector: s.params.Selector()}
	}
	return r, nil
}
