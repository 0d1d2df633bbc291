package xcall

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// CreateParams are the parameters of a contract instantiation.
type CreateParams struct {
	codeHash common.Hash
	assigned bool
	gasLimit uint64
	value    *uint256.Int
	data     *CallData
}

// CodeHash returns the code hash and whether it has been assigned.
func (p CreateParams) CodeHash() (common.Hash, bool) {
	return p.codeHash, p.assigned
}

// GasLimit returns the gas limit. Zero leaves the limit to the host.
func (p CreateParams) GasLimit() uint64 {
	return p.gasLimit
}

// Endowment returns a copy of the value transferred to the new contract.
func (p CreateParams) Endowment() *uint256.Int {
	return new(uint256.Int).Set(p.value)
}

// Selector returns the selector of the constructor.
func (p CreateParams) Selector() Selector {
	return p.data.Selector()
}

// NumArgs returns the number of pushed arguments.
func (p CreateParams) NumArgs() int {
	return p.data.Len()
}

// Input returns the encoded constructor call data.
func (p CreateParams) Input() []byte {
	return p.data.Bytes()
}

// createState mirrors callState and adds the code hash lifecycle.
type createState struct {
	params   CreateParams
	err      error
	sealed   bool
	consumed bool
}

func (s *createState) push(t *abi.Type, v any) {
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

// useCode moves the code hash from unassigned to assigned. The transition
// happens once per builder.
func (s *createState) useCode(hash common.Hash) {
	if s.params.assigned {
		if s.err == nil {
			s.err = ErrCodeHashAssigned
		}
		return
	}
	s.params.codeHash = hash
	s.params.assigned = true
}

func (s *createState) setValue(v *uint256.Int) {
	if v == nil {
		s.params.value = new(uint256.Int)
		return
	}
	s.params.value = new(uint256.Int).Set(v)
}

func (s *createState) seal() createState {
	s.params.data.freeze()
	next := *s
	s.sealed = true
	s.consumed = true
	return next
}

func (s *createState) fire(h Host) (common.Address, error) {
	if s.consumed {
		return common.Address{}, ErrBuilderConsumed
	}
	s.consumed = true
	if !s.params.assigned {
		return common.Address{}, &CreateError{Err: ErrCodeHashMissing}
	}
	if s.err != nil {
		return common.Address{}, s.err
	}
	s.params.data.freeze()

	p := s.params
	log.Debug("Instantiating contract", "code", p.codeHash, "selector", p.Selector(),
		"gas", p.gasLimit, "endowment", p.value, "args", p.data.Len())

	addr, err := h.Instantiate(p.codeHash, p.gasLimit, p.Endowment(), p.data.Bytes())
	if err != nil {
		log.Debug("Contract instantiation failed", "code", p.codeHash, "err", err)
		return common.Address{}, &CreateError{CodeHash: p.codeHash, Err: ErrCreateFailed}
	}
	return addr, nil
}

// CreateBuilder builds a contract instantiation. The code hash starts
// unassigned; Fire fails until UsingCode has been called.
type CreateBuilder struct {
	state createState
}

// Create starts an instantiation running the constructor addressed by selector.
func Create(selector Selector) *CreateBuilder {
	return &CreateBuilder{state: createState{params: CreateParams{
		value: new(uint256.Int),
		data:  NewCallData(selector),
	}}}
}

// UsingCode assigns the code hash of the contract to instantiate.
func (b *CreateBuilder) UsingCode(hash common.Hash) *CreateBuilder {
	b.state.useCode(hash)
	return b
}

// WithGasLimit sets the maximum gas the instantiation may use.
func (b *CreateBuilder) WithGasLimit(gas uint64) *CreateBuilder {
	b.state.params.gasLimit = gas
	return b
}

// WithValue sets the endowment of the new contract.
func (b *CreateBuilder) WithValue(v *uint256.Int) *CreateBuilder {
	b.state.setValue(v)
	return b
}

// PushArg appends a constructor argument, inferring its ABI type.
func (b *CreateBuilder) PushArg(v any) *CreateBuilder {
	b.state.push(nil, v)
	return b
}

// PushTypedArg appends a constructor argument encoded as t.
func (b *CreateBuilder) PushTypedArg(t abi.Type, v any) *CreateBuilder {
	b.state.push(&t, v)
	return b
}

// Err returns the first error recorded while building.
func (b *CreateBuilder) Err() error {
	return b.state.err
}

// Params returns the parameters built so far.
func (b *CreateBuilder) Params() CreateParams {
	return b.state.params
}

// Seal forbids further arguments.
func (b *CreateBuilder) Seal() *SealedCreate {
	return &SealedCreate{state: b.state.seal()}
}

// Fire instantiates the contract and returns its account.
func (b *CreateBuilder) Fire(h Host) (common.Address, error) {
	return b.state.fire(h)
}

// SealedCreate is a CreateBuilder that accepts no more arguments.
type SealedCreate struct {
	state createState
}

// UsingCode assigns the code hash of the contract to instantiate.
func (b *SealedCreate) UsingCode(hash common.Hash) *SealedCreate {
	b.state.useCode(hash)
	return b
}

// WithGasLimit sets the maximum gas the instantiation may use.
func (b *SealedCreate) WithGasLimit(gas uint64) *SealedCreate {
	b.state.params.gasLimit = gas
	return b
}

// WithValue sets the endowment of the new contract.
func (b *SealedCreate) WithValue(v *uint256.Int) *SealedCreate {
	b.state.setValue(v)
	return b
}

// Err returns the first error recorded before sealing.
func (b *SealedCreate) Err() error {
	return b.state.err
}

// Params returns the instantiation parameters.
func (b *SealedCreate) Params() CreateParams {
	return b.state.params
}

// Fire instantiates the contract and returns its account.
func (b *SealedCreate) Fire(h Host) (common.Address, error) {
	return b.state.fire(h)
}
