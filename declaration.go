package xcall

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Param declares one argument of a constructor or message. Type is an ABI type
// string such as "uint32", "address" or "bytes32[]".
type Param struct {
	Name string
	Type string
}

// EventParam declares one field of an event.
type EventParam struct {
	Name    string
	Type    string
	Indexed bool
}

// CtorFunc handles a constructor call. It receives the state to initialize.
type CtorFunc[S any] func(env *Env, state *S, args Args) error

// ReadFunc handles a message that does not mutate state. It receives a shallow
// copy of the state, so writes to its fields do not persist. Maps, slices and
// pointers in the copy still share memory with the stored state, and writes
// through them do persist.
type ReadFunc[S any] func(env *Env, state S, args Args) (any, error)

// MutFunc handles a message that mutates state.
type MutFunc[S any] func(env *Env, state *S, args Args) (any, error)

// EntryKind distinguishes constructors from messages.
type EntryKind uint8

const (
	// KindConstructor entries are reachable through Deploy.
	KindConstructor EntryKind = iota

	// KindMessage entries are reachable through Call.
	KindMessage
)

func (k EntryKind) String() string {
	if k == KindConstructor {
		return "constructor"
	}
	return "message"
}

// declEntry is a constructor or message as declared.
type declEntry[S any] struct {
	kind    EntryKind
	name    string
	params  []Param
	mutates bool
	config  entryConfig
	ctor    CtorFunc[S]
	read    ReadFunc[S]
	mut     MutFunc[S]
}

func (e *declEntry[S]) hasHandler() bool {
	switch {
	case e.kind == KindConstructor:
		return e.ctor != nil
	case e.mutates:
		return e.mut != nil
	default:
		return e.read != nil
	}
}

type declEvent struct {
	name   string
	params []EventParam
	config entryConfig
}

// Declaration collects the public surface of a contract with state S. It is
// the single source from which both the dispatch tables and the ABI
// description are derived.
type Declaration[S any] struct {
	name     string
	config   *contractConfig
	ctors    []*declEntry[S]
	messages []*declEntry[S]
	events   []*declEvent
}

// NewDeclaration starts the declaration of a contract.
func NewDeclaration[S any](name string, opts ...ContractOption) *Declaration[S] {
	cfg := defaultContractConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Declaration[S]{
		name:   name,
		config: cfg,
	}
}

// Name returns the contract name.
func (d *Declaration[S]) Name() string {
	return d.name
}

// Constructor declares a constructor.
func (d *Declaration[S]) Constructor(name string, params []Param, fn CtorFunc[S], opts ...EntryOption) *Declaration[S] {
	d.ctors = append(d.ctors, &declEntry[S]{
		kind:   KindConstructor,
		name:   name,
		params: params,
		config: entryConfigOf(opts),
		ctor:   fn,
	})
	return d
}

// Message declares a read-only message.
func (d *Declaration[S]) Message(name string, params []Param, fn ReadFunc[S], opts ...EntryOption) *Declaration[S] {
	d.messages = append(d.messages, &declEntry[S]{
		kind:   KindMessage,
		name:   name,
		params: params,
		config: entryConfigOf(opts),
		read:   fn,
	})
	return d
}

// MessageMut declares a message that mutates state.
func (d *Declaration[S]) MessageMut(name string, params []Param, fn MutFunc[S], opts ...EntryOption) *Declaration[S] {
	d.messages = append(d.messages, &declEntry[S]{
		kind:    KindMessage,
		name:    name,
		params:  params,
		mutates: true,
		config:  entryConfigOf(opts),
		mut:     fn,
	})
	return d
}

// Event declares an event the contract may emit.
func (d *Declaration[S]) Event(name string, params []EventParam, opts ...EntryOption) *Declaration[S] {
	d.events = append(d.events, &declEvent{
		name:   name,
		params: params,
		config: entryConfigOf(opts),
	})
	return d
}

func entryConfigOf(opts []EntryOption) entryConfig {
	var cfg entryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// resolvedEntry is a declEntry with its types parsed and selector assigned.
type resolvedEntry[S any] struct {
	decl      *declEntry[S]
	signature string
	selector  Selector
	args      abi.Arguments
	returns   *abi.Type
}

type resolvedEvent struct {
	decl      *declEvent
	signature string
	topic     common.Hash
	args      abi.Arguments
}

// resolution is the checked form of a Declaration.
type resolution[S any] struct {
	ctors    []*resolvedEntry[S]
	messages []*resolvedEntry[S]
	events   []*resolvedEvent
}

// resolve parses every type, assigns selectors and rejects collisions.
func (d *Declaration[S]) resolve() (*resolution[S], error) {
	if len(d.ctors) == 0 {
		return nil, &BuildError{Contract: d.name, Err: ErrNoConstructor}
	}

	res := &resolution[S]{}
	owners := make(map[Selector]string)

	entries := make([]*declEntry[S], 0, len(d.ctors)+len(d.messages))
	entries = append(entries, d.ctors...)
	entries = append(entries, d.messages...)

	for _, e := range entries {
		r, err := d.resolveEntry(e)
		if err != nil {
			return nil, &BuildError{Contract: d.name, Entry: e.name, Err: err}
		}
		if owner, taken := owners[r.selector]; taken {
			return nil, &BuildError{Contract: d.name, Entry: e.name, Err: &SelectorCollisionError{
				Selector: r.selector,
				First:    owner,
				Second:   r.signature,
			}}
		}
		owners[r.selector] = r.signature

		if e.kind == KindConstructor {
			res.ctors = append(res.ctors, r)
		} else {
			res.messages = append(res.messages, r)
		}
	}

	seen := make(map[string]bool)
	for _, ev := range d.events {
		if seen[ev.name] {
			return nil, &BuildError{Contract: d.name, Entry: ev.name, Err: ErrDuplicateEvent}
		}
		seen[ev.name] = true

		r, err := resolveEvent(ev)
		if err != nil {
			return nil, &BuildError{Contract: d.name, Entry: ev.name, Err: err}
		}
		res.events = append(res.events, r)
	}

	return res, nil
}

func (d *Declaration[S]) resolveEntry(e *declEntry[S]) (*resolvedEntry[S], error) {
	if !e.hasHandler() {
		return nil, ErrNilHandler
	}

	args := make(abi.Arguments, len(e.params))
	types := make([]string, len(e.params))
	for i, p := range e.params {
		t, err := ParseType(p.Type)
		if err != nil {
			return nil, &ArgumentError{Method: e.name, Index: i, Err: err}
		}
		args[i] = abi.Argument{Name: p.Name, Type: t}
		types[i] = t.String()
	}

	r := &resolvedEntry[S]{
		decl:      e,
		signature: e.name + "(" + strings.Join(types, ",") + ")",
		args:      args,
	}

	if e.config.returns != "" {
		if e.kind == KindConstructor {
			return nil, ErrConstructorReturns
		}
		t, err := ParseType(e.config.returns)
		if err != nil {
			return nil, fmt.Errorf("return type: %w", err)
		}
		r.returns = &t
	}

	switch {
	case e.config.selector != nil:
		r.selector = *e.config.selector
	case e.kind == KindConstructor && len(d.ctors) == 1 && d.config.zeroCtorForSingle:
		r.selector = ZeroSelector
	default:
		r.selector = ComputeSelector(r.signature)
	}
	return r, nil
}

func resolveEvent(ev *declEvent) (*resolvedEvent, error) {
	args := make(abi.Arguments, len(ev.params))
	types := make([]string, len(ev.params))
	for i, p := range ev.params {
		t, err := ParseType(p.Type)
		if err != nil {
			return nil, &ArgumentError{Method: ev.name, Index: i, Err: err}
		}
		args[i] = abi.Argument{Name: p.Name, Type: t, Indexed: p.Indexed}
		types[i] = t.String()
	}
	sig := ev.name + "(" + strings.Join(types, ",") + ")"
	return &resolvedEvent{
		decl:      ev,
		signature: sig,
		topic:     crypto.Keccak256Hash([]byte(sig)),
		args:      args,
	}, nil
}

// Build checks the declaration and compiles it into a Contract. The ABI
// description is reflected separately and compared against the dispatch
// tables before the contract is returned.
func (d *Declaration[S]) Build() (*Contract[S], error) {
	res, err := d.resolve()
	if err != nil {
		return nil, err
	}

	spec, err := d.Reflect()
	if err != nil {
		return nil, err
	}

	c := &Contract[S]{
		name:   d.name,
		logger: d.config.logger,
		deploy: make(map[Selector]*dispatchEntry[S], len(res.ctors)),
		call:   make(map[Selector]*dispatchEntry[S], len(res.messages)),
		events: make(map[string]*resolvedEvent, len(res.events)),
		spec:   spec,
	}
	for _, r := range res.ctors {
		c.deploy[r.selector] = newDispatchEntry(r)
	}
	for _, r := range res.messages {
		c.call[r.selector] = newDispatchEntry(r)
	}
	for _, ev := range res.events {
		c.events[ev.decl.name] = ev
	}

	if err := checkConsistency(spec, c.deploy, c.call); err != nil {
		return nil, &BuildError{Contract: d.name, Err: err}
	}

	c.logger.Debug("Built contract", "contract", d.name, "constructors", len(c.deploy),
		"messages", len(c.call), "events", len(c.events))
	return c, nil
}

// MustBuild is like Build but panics on error.
func (d *Declaration[S]) MustBuild() *Contract[S] {
	c, err := d.Build()
	if err != nil {
		panic(err)
	}
	return c
}
