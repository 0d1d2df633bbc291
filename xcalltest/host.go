// Package xcalltest provides an in-memory Host for exercising contracts and
// outbound calls without a chain.
//
// A Host is one call frame. Frames created for nested calls share the same
// world: accounts, balances, registered code, recorded calls and events.
// A failed call or instantiation rolls the world back, keeping only its own
// call record. Hosts are not safe for concurrent use.
package xcalltest

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

var (
	// ErrNotFound indicates a call to an account without code.
	ErrNotFound = errors.New("xcalltest: no code at callee")

	// ErrUnknownCode indicates an instantiation from an unregistered code hash.
	ErrUnknownCode = errors.New("xcalltest: unknown code hash")

	// ErrInsufficientBalance indicates a transfer larger than the sender's balance.
	ErrInsufficientBalance = errors.New("xcalltest: insufficient balance")
)

// Endpoint runs contract code inside frame h. Returning an error fails the
// call that reached it.
type Endpoint func(h *Host) error

// Code is a deployable program: Deploy runs on instantiation, Call on every
// later call.
type Code struct {
	Deploy Endpoint
	Call   Endpoint
}

// CallKind tells which host primitive recorded a call.
type CallKind uint8

const (
	KindEvaluate CallKind = iota
	KindInvoke
	KindInstantiate
)

func (k CallKind) String() string {
	switch k {
	case KindEvaluate:
		return "evaluate"
	case KindInvoke:
		return "invoke"
	default:
		return "instantiate"
	}
}

// Call is one outbound call as the host received it.
type Call struct {
	Kind     CallKind
	Caller   common.Address
	Callee   common.Address
	CodeHash common.Hash
	Gas      uint64
	Value    *uint256.Int
	Input    []byte
}

// Event is one deposited event.
type Event struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

type account struct {
	balance  *uint256.Int
	code     *common.Hash
	endpoint Endpoint
	nonce    uint64
}

type world struct {
	accounts map[common.Address]*account
	codes    map[common.Hash]Code
	calls    []Call
	events   []Event
	logger   log.Logger
}

func (w *world) account(addr common.Address) *account {
	a, ok := w.accounts[addr]
	if !ok {
		a = &account{balance: new(uint256.Int)}
		w.accounts[addr] = a
	}
	return a
}

func (w *world) transfer(from, to common.Address, value *uint256.Int) error {
	if value == nil || value.IsZero() {
		return nil
	}
	src := w.account(from)
	if src.balance.Lt(value) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), src.balance, value)
	}
	dst := w.account(to)
	src.balance.Sub(src.balance, value)
	dst.balance.Add(dst.balance, value)
	return nil
}

// snapshot is the world state a failed frame rolls back to.
type snapshot struct {
	accounts map[common.Address]*account
	calls    int
	events   int
}

func (w *world) snapshot() snapshot {
	accounts := make(map[common.Address]*account, len(w.accounts))
	for addr, a := range w.accounts {
		cp := *a
		cp.balance = new(uint256.Int).Set(a.balance)
		accounts[addr] = &cp
	}
	return snapshot{accounts: accounts, calls: len(w.calls), events: len(w.events)}
}

// revert discards every change made to the world since s.
func (w *world) revert(s snapshot) {
	w.accounts = s.accounts
	w.calls = w.calls[:s.calls]
	w.events = w.events[:s.events]
}

// Host is an in-memory call frame.
type Host struct {
	world  *world
	self   common.Address
	caller common.Address
	input  []byte
	output []byte
}

// New returns the top-level frame of a fresh world, running as self.
func New(self common.Address) *Host {
	return &Host{
		world: &world{
			accounts: make(map[common.Address]*account),
			codes:    make(map[common.Hash]Code),
			logger:   log.Root(),
		},
		self: self,
	}
}

// SetLogger replaces the logger of the world h belongs to.
func (h *Host) SetLogger(l log.Logger) *Host {
	h.world.logger = l
	return h
}

// SetInput sets the payload of the current frame and clears its output.
func (h *Host) SetInput(input []byte) *Host {
	h.input = append([]byte(nil), input...)
	h.output = nil
	return h
}

// SetCaller sets the account reported by Caller.
func (h *Host) SetCaller(caller common.Address) *Host {
	h.caller = caller
	return h
}

// SetBalance sets the balance of addr.
func (h *Host) SetBalance(addr common.Address, v *uint256.Int) *Host {
	h.world.account(addr).balance = new(uint256.Int).Set(v)
	return h
}

// Balance returns a copy of the balance of addr.
func (h *Host) Balance(addr common.Address) *uint256.Int {
	return new(uint256.Int).Set(h.world.account(addr).balance)
}

// Register installs ep as the code of addr.
func (h *Host) Register(addr common.Address, ep Endpoint) *Host {
	h.world.account(addr).endpoint = ep
	return h
}

// Respond installs code at addr that always returns output.
func (h *Host) Respond(addr common.Address, output []byte) *Host {
	out := append([]byte(nil), output...)
	return h.Register(addr, func(frame *Host) error {
		frame.Return(out)
		return nil
	})
}

// Fail installs code at addr that always fails with err.
func (h *Host) Fail(addr common.Address, err error) *Host {
	return h.Register(addr, func(*Host) error { return err })
}

// RegisterCode makes code instantiable under hash.
func (h *Host) RegisterCode(hash common.Hash, code Code) *Host {
	h.world.codes[hash] = code
	return h
}

// CodeHash returns the code hash addr was instantiated from.
func (h *Host) CodeHash(addr common.Address) (common.Hash, bool) {
	a, ok := h.world.accounts[addr]
	if !ok || a.code == nil {
		return common.Hash{}, false
	}
	return *a.code, true
}

// Output returns what the current frame handed to Return.
func (h *Host) Output() []byte {
	return h.output
}

// Calls returns every outbound call received so far, in order.
func (h *Host) Calls() []Call {
	return append([]Call(nil), h.world.calls...)
}

// Events returns every deposited event, in order.
func (h *Host) Events() []Event {
	return append([]Event(nil), h.world.events...)
}

// Child returns a frame running as self with h's account as caller.
func (h *Host) Child(self common.Address, input []byte) *Host {
	return &Host{
		world:  h.world,
		self:   self,
		caller: h.self,
		input:  append([]byte(nil), input...),
	}
}

func (h *Host) Input() []byte {
	return h.input
}

func (h *Host) Return(data []byte) {
	h.output = append([]byte(nil), data...)
}

func (h *Host) Caller() common.Address {
	return h.caller
}

func (h *Host) Address() common.Address {
	return h.self
}

func (h *Host) Evaluate(callee common.Address, gas uint64, value *uint256.Int, input []byte) ([]byte, error) {
	h.record(Call{Kind: KindEvaluate, Callee: callee, Gas: gas, Value: value, Input: input})
	return h.call(callee, value, input)
}

func (h *Host) Invoke(callee common.Address, gas uint64, value *uint256.Int, input []byte) error {
	h.record(Call{Kind: KindInvoke, Callee: callee, Gas: gas, Value: value, Input: input})
	_, err := h.call(callee, value, input)
	return err
}

func (h *Host) Instantiate(codeHash common.Hash, gas uint64, value *uint256.Int, input []byte) (common.Address, error) {
	h.record(Call{Kind: KindInstantiate, CodeHash: codeHash, Gas: gas, Value: value, Input: input})

	code, ok := h.world.codes[codeHash]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownCode, codeHash.Hex())
	}

	creator := h.world.account(h.self)
	addr := crypto.CreateAddress(h.self, creator.nonce)
	creator.nonce++

	snap := h.world.snapshot()
	if err := h.world.transfer(h.self, addr, value); err != nil {
		h.world.revert(snap)
		return common.Address{}, err
	}
	hash := codeHash
	h.world.account(addr).code = &hash

	if code.Deploy != nil {
		if err := code.Deploy(h.Child(addr, input)); err != nil {
			h.world.logger.Debug("Constructor failed", "address", addr, "code", codeHash, "err", err)
			h.world.revert(snap)
			return common.Address{}, err
		}
	}
	return addr, nil
}

func (h *Host) DepositEvent(topics []common.Hash, data []byte) {
	h.world.events = append(h.world.events, Event{
		Address: h.self,
		Topics:  append([]common.Hash(nil), topics...),
		Data:    append([]byte(nil), data...),
	})
}

func (h *Host) record(c Call) {
	c.Caller = h.self
	c.Input = append([]byte(nil), c.Input...)
	if c.Value != nil {
		c.Value = new(uint256.Int).Set(c.Value)
	}
	h.world.calls = append(h.world.calls, c)
}

func (h *Host) call(callee common.Address, value *uint256.Int, input []byte) ([]byte, error) {
	ep := h.endpoint(callee)
	if ep == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, callee.Hex())
	}
	snap := h.world.snapshot()
	if err := h.world.transfer(h.self, callee, value); err != nil {
		h.world.revert(snap)
		return nil, err
	}
	frame := h.Child(callee, input)
	if err := ep(frame); err != nil {
		h.world.logger.Debug("Callee failed", "callee", callee, "err", err)
		h.world.revert(snap)
		return nil, err
	}
	return frame.output, nil
}

func (h *Host) endpoint(addr common.Address) Endpoint {
	a, ok := h.world.accounts[addr]
	if !ok {
		return nil
	}
	if a.endpoint != nil {
		return a.endpoint
	}
	if a.code != nil {
		return h.world.codes[*a.code].Call
	}
	return nil
}
