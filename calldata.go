package xcall

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// CallData is the wire payload of a call: a selector followed by the encoded
// arguments in the order they were pushed.
//
// Layout: [selector:4][arg0][arg1]...
//
// For static argument types every argument occupies its own 32-byte aligned
// slot and the payload is the plain concatenation of the argument encodings.
// Dynamic types (bytes, string, slices) use the codec's head/tail layout.
type CallData struct {
	selector Selector
	args     abi.Arguments
	values   []any
	packed   []byte
	frozen   bool
}

// NewCallData creates call data with zero argument bytes.
func NewCallData(selector Selector) *CallData {
	return &CallData{selector: selector}
}

// PushArg appends v, inferring its ABI type with TypeOf.
func (cd *CallData) PushArg(v any) error {
	t, err := TypeOf(v)
	if err != nil {
		return err
	}
	return cd.PushTypedArg(t, v)
}

// PushTypedArg appends v encoded as t. The value is encoded immediately, so a
// value that does not fit t is rejected here and nothing is appended.
//
// CallData keeps its own copy of v: changing a pushed slice or *big.Int
// afterwards does not change the payload.
func (cd *CallData) PushTypedArg(t abi.Type, v any) error {
	if cd.frozen {
		return ErrCallDataSealed
	}
	data, err := Encode(t, v)
	if err != nil {
		return err
	}
	single := abi.Arguments{{Type: t}}
	copied, err := single.Unpack(data)
	if err != nil {
		return &EncodingError{Value: v, Err: err}
	}

	args := append(cd.args[:len(cd.args):len(cd.args)], abi.Argument{Type: t})
	values := append(cd.values[:len(cd.values):len(cd.values)], copied[0])
	packed, err := args.Pack(values...)
	if err != nil {
		return &EncodingError{Value: v, Err: err}
	}
	cd.args, cd.values, cd.packed = args, values, packed
	return nil
}

// freeze forbids further pushes.
func (cd *CallData) freeze() {
	cd.frozen = true
}

// Frozen reports whether the call data has been sealed against further pushes.
func (cd *CallData) Frozen() bool {
	return cd.frozen
}

// Selector returns the selector the payload is addressed to.
func (cd *CallData) Selector() Selector {
	return cd.selector
}

// Len returns the number of pushed arguments.
func (cd *CallData) Len() int {
	return len(cd.values)
}

// Arguments returns the ABI types of the pushed arguments.
func (cd *CallData) Arguments() abi.Arguments {
	out := make(abi.Arguments, len(cd.args))
	copy(out, cd.args)
	return out
}

// Values returns the pushed argument values.
func (cd *CallData) Values() []any {
	out := make([]any, len(cd.values))
	copy(out, cd.values)
	return out
}

// Bytes returns selector ++ encoded arguments. The argument bytes are packed
// on push, so Bytes never fails.
func (cd *CallData) Bytes() []byte {
	out := make([]byte, 0, SelectorSize+len(cd.packed))
	out = append(out, cd.selector[:]...)
	return append(out, cd.packed...)
}

// SplitCallData splits an inbound payload into its selector and argument bytes.
func SplitCallData(input []byte) (Selector, []byte, error) {
	var sel Selector
	if len(input) < SelectorSize {
		return sel, nil, ErrDataTooShort
	}
	copy(sel[:], input[:SelectorSize])
	return sel, input[SelectorSize:], nil
}
