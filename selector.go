package xcall

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorSize is the width of a selector in bytes.
const SelectorSize = 4

// Selector is the 4-byte identifier addressing one constructor or message.
type Selector [SelectorSize]byte

// ZeroSelector addresses the constructor of a contract that declares exactly one.
var ZeroSelector Selector

// ComputeSelector derives a selector from the canonical name of an entry point.
// The result is the first four bytes of the Keccak-256 hash of name.
//
// Entry points declared on a Declaration use their signature, e.g.
// "transfer(address,uint256)", so the result matches abi.Method.ID.
func ComputeSelector(name string) Selector {
	var sel Selector
	copy(sel[:], crypto.Keccak256([]byte(name))[:SelectorSize])
	return sel
}

// SelectorFromBytes copies the first four bytes of b into a Selector.
// b must be exactly four bytes long.
func SelectorFromBytes(b []byte) (Selector, error) {
	var sel Selector
	if len(b) != SelectorSize {
		return sel, fmt.Errorf("xcall: selector must be %d bytes, got %d", SelectorSize, len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

// SelectorFromUint32 builds a selector from its big-endian integer form.
func SelectorFromUint32(v uint32) Selector {
	var sel Selector
	binary.BigEndian.PutUint32(sel[:], v)
	return sel
}

// Uint32 returns the selector read as a big-endian integer.
func (s Selector) Uint32() uint32 {
	return binary.BigEndian.Uint32(s[:])
}

// Bytes returns a copy of the selector bytes.
func (s Selector) Bytes() []byte {
	b := make([]byte, SelectorSize)
	copy(b, s[:])
	return b
}

// IsZero reports whether all four bytes are zero.
func (s Selector) IsZero() bool {
	return s == ZeroSelector
}

// Hex returns the 0x-prefixed hex form, e.g. "0xaabbccdd".
func (s Selector) Hex() string {
	return hexutil.Encode(s[:])
}

func (s Selector) String() string {
	return s.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selector) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("xcall: invalid selector %q: %w", text, err)
	}
	sel, err := SelectorFromBytes(b)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
