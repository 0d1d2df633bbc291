package xcall

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Env is what a handler sees of its execution context: the host it runs on and
// the events its contract declared. Outbound calls are fired through Env,
// which satisfies Host.
type Env struct {
	Host

	contract string
	events   map[string]*resolvedEvent
	logger   log.Logger
}

// Contract returns the name of the contract the handler belongs to.
func (e *Env) Contract() string {
	return e.contract
}

// Emit deposits a declared event. Values are given in declaration order; the
// first topic is the hash of the event signature, followed by one topic per
// indexed field. Non-indexed fields are encoded together as the event data.
func (e *Env) Emit(name string, values ...any) error {
	ev, ok := e.events[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	if len(values) != len(ev.args) {
		return fmt.Errorf("%w: %s takes %d values, got %d", ErrEventArgs, ev.signature, len(ev.args), len(values))
	}

	topics := []common.Hash{ev.topic}
	var (
		indexed   [][]any
		plain     []any
		plainArgs abi.Arguments
	)
	for i, arg := range ev.args {
		if _, err := Encode(arg.Type, values[i]); err != nil {
			return &ArgumentError{Method: ev.signature, Index: i, Err: err}
		}
		v := convertFor(arg.Type, values[i])
		if arg.Indexed {
			indexed = append(indexed, []any{v})
		} else {
			plain = append(plain, v)
			plainArgs = append(plainArgs, abi.Argument{Name: arg.Name, Type: arg.Type})
		}
	}

	if len(indexed) > 0 {
		rules, err := abi.MakeTopics(indexed...)
		if err != nil {
			return &EncodingError{Value: indexed, Err: err}
		}
		for _, rule := range rules {
			topics = append(topics, rule[0])
		}
	}

	data, err := plainArgs.Pack(plain...)
	if err != nil {
		return &EncodingError{Value: plain, Err: err}
	}

	e.logger.Trace("Emitting event", "contract", e.contract, "event", ev.signature, "topics", len(topics))
	e.DepositEvent(topics, data)
	return nil
}
