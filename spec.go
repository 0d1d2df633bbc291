package xcall

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
)

// ContractSpec is the ABI description of a contract: every constructor,
// message and event with selectors and parameter types. It serializes to JSON
// for off-chain tooling.
type ContractSpec struct {
	Name         string            `json:"name"`
	Constructors []ConstructorSpec `json:"constructors"`
	Messages     []MessageSpec     `json:"messages"`
	Events       []EventSpec       `json:"events"`
	Docs         []string          `json:"docs"`
}

// ConstructorSpec describes one constructor.
type ConstructorSpec struct {
	Name      string      `json:"name"`
	Selector  Selector    `json:"selector"`
	Signature string      `json:"signature"`
	Args      []ParamSpec `json:"args"`
	Docs      []string    `json:"docs"`
}

// MessageSpec describes one message. ReturnType is nil for messages that
// return nothing.
type MessageSpec struct {
	Name       string      `json:"name"`
	Selector   Selector    `json:"selector"`
	Signature  string      `json:"signature"`
	Mutates    bool        `json:"mutates"`
	Args       []ParamSpec `json:"args"`
	ReturnType *string     `json:"return_type"`
	Docs       []string    `json:"docs"`
}

// EventSpec describes one event.
type EventSpec struct {
	Name  string           `json:"name"`
	Topic common.Hash      `json:"topic"`
	Args  []EventParamSpec `json:"args"`
	Docs  []string         `json:"docs"`
}

type ParamSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type EventParamSpec struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed"`
}

// Reflect derives the ABI description from the declaration. It shares the
// selector assignment with Build but not the dispatch tables, so Build can
// check the two against each other.
func (d *Declaration[S]) Reflect() (*ContractSpec, error) {
	res, err := d.resolve()
	if err != nil {
		return nil, err
	}

	spec := &ContractSpec{
		Name:         d.name,
		Constructors: make([]ConstructorSpec, 0, len(res.ctors)),
		Messages:     make([]MessageSpec, 0, len(res.messages)),
		Events:       make([]EventSpec, 0, len(res.events)),
		Docs:         docsOf(d.config.docs),
	}
	for _, r := range res.ctors {
		spec.Constructors = append(spec.Constructors, ConstructorSpec{
			Name:      r.decl.name,
			Selector:  r.selector,
			Signature: r.signature,
			Args:      paramSpecs(r),
			Docs:      docsOf(r.decl.config.docs),
		})
	}
	for _, r := range res.messages {
		m := MessageSpec{
			Name:      r.decl.name,
			Selector:  r.selector,
			Signature: r.signature,
			Mutates:   r.decl.mutates,
			Args:      paramSpecs(r),
			Docs:      docsOf(r.decl.config.docs),
		}
		if r.returns != nil {
			s := r.returns.String()
			m.ReturnType = &s
		}
		spec.Messages = append(spec.Messages, m)
	}
	for _, ev := range res.events {
		args := make([]EventParamSpec, len(ev.args))
		for i, a := range ev.args {
			args[i] = EventParamSpec{Name: a.Name, Type: a.Type.String(), Indexed: a.Indexed}
		}
		spec.Events = append(spec.Events, EventSpec{
			Name:  ev.decl.name,
			Topic: ev.topic,
			Args:  args,
			Docs:  docsOf(ev.decl.config.docs),
		})
	}
	return spec, nil
}

func paramSpecs[S any](r *resolvedEntry[S]) []ParamSpec {
	out := make([]ParamSpec, len(r.args))
	for i, a := range r.args {
		out[i] = ParamSpec{Name: a.Name, Type: a.Type.String()}
	}
	return out
}

func docsOf(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// ConstructorSelectors returns the constructor selectors in declaration order.
func (s *ContractSpec) ConstructorSelectors() []Selector {
	out := make([]Selector, len(s.Constructors))
	for i, c := range s.Constructors {
		out[i] = c.Selector
	}
	return out
}

// MessageSelectors returns the message selectors in declaration order.
func (s *ContractSpec) MessageSelectors() []Selector {
	out := make([]Selector, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.Selector
	}
	return out
}

// Message looks up a message by name.
func (s *ContractSpec) Message(name string) (MessageSpec, bool) {
	for _, m := range s.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return MessageSpec{}, false
}

// JSON returns the indented JSON form of the description.
func (s *ContractSpec) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// WriteTo writes the JSON form of the description to w.
func (s *ContractSpec) WriteTo(w io.Writer) (int64, error) {
	data, err := s.JSON()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(data, '\n'))
	return int64(n), err
}

// ParseSpec decodes a description produced by JSON.
func ParseSpec(data []byte) (*ContractSpec, error) {
	var s ContractSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("xcall: parse contract spec: %w", err)
	}
	return &s, nil
}
