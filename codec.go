package xcall

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	bigIntType  = reflect.TypeOf((*big.Int)(nil))
	u256PtrType = reflect.TypeOf((*uint256.Int)(nil))
	addressType = reflect.TypeOf(common.Address{})
	hashType    = reflect.TypeOf(common.Hash{})
)

// Args holds the decoded arguments of an inbound call in declaration order.
// Element types are the ones go-ethereum's abi package produces: uint32 for
// uint32, *big.Int for uint256, common.Address for address and so on.
type Args []any

// Arg returns argument i as T. A *big.Int argument may be read as *uint256.Int.
// Arg panics if the argument has a different type; handlers only see arguments
// that decoded against their declared parameter types.
func Arg[T any](args Args, i int) T {
	v := args[i]
	if t, ok := v.(T); ok {
		return t
	}
	if b, ok := v.(*big.Int); ok && b.Sign() >= 0 {
		if t, ok := any(uint256.MustFromBig(b)).(T); ok {
			return t
		}
	}
	panic(&TypeMismatchError{Expected: fmt.Sprintf("%T", *new(T)), Got: fmt.Sprintf("%T", v)})
}

// ParseType parses an ABI type string such as "uint32" or "address[]".
func ParseType(s string) (abi.Type, error) {
	t, err := abi.NewType(s, "", nil)
	if err != nil {
		return abi.Type{}, fmt.Errorf("xcall: invalid ABI type %q: %w", s, err)
	}
	return t, nil
}

// TypeOf infers the ABI type of a Go value.
//
// Supported types:
//   - bool, int8..int64, uint8..uint64 (int and uint encode as 64 bits)
//   - *big.Int and *uint256.Int (uint256)
//   - common.Address (address), common.Hash (bytes32)
//   - [N]byte (bytesN), []byte (bytes), string (string)
//   - slices and arrays of the above
func TypeOf(v any) (abi.Type, error) {
	if v == nil {
		return abi.Type{}, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	return typeFor(reflect.TypeOf(normalize(v)))
}

func reflectTypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeFor maps a Go type to its ABI type.
func typeFor(rt reflect.Type) (abi.Type, error) {
	s, err := typeString(rt)
	if err != nil {
		return abi.Type{}, err
	}
	return ParseType(s)
}

func typeString(rt reflect.Type) (string, error) {
	switch rt {
	case bigIntType, u256PtrType:
		return "uint256", nil
	case addressType:
		return "address", nil
	case hashType:
		return "bytes32", nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		return "bool", nil
	case reflect.Int:
		return "int64", nil
	case reflect.Uint:
		return "uint64", nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("int%d", rt.Bits()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("uint%d", rt.Bits()), nil
	case reflect.String:
		return "string", nil
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return "bytes", nil
		}
		elem, err := typeString(rt.Elem())
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 && rt.Len() >= 1 && rt.Len() <= 32 {
			return fmt.Sprintf("bytes%d", rt.Len()), nil
		}
		elem, err := typeString(rt.Elem())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%d]", elem, rt.Len()), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, rt)
}

// normalize rewrites Go values the abi package cannot pack directly.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case uint:
		return uint64(x)
	case *uint256.Int:
		if x == nil {
			return (*big.Int)(nil)
		}
		return x.ToBig()
	case []*uint256.Int:
		out := make([]*big.Int, len(x))
		for i, u := range x {
			out[i] = u.ToBig()
		}
		return out
	default:
		return v
	}
}

// convertFor normalizes v and widens Go integers when the target is wider than
// 64 bits.
func convertFor(t abi.Type, v any) any {
	v = normalize(v)
	if (t.T != abi.IntTy && t.T != abi.UintTy) || t.Size <= 64 {
		return v
	}
	switch x := v.(type) {
	case int8:
		return big.NewInt(int64(x))
	case int16:
		return big.NewInt(int64(x))
	case int32:
		return big.NewInt(int64(x))
	case int64:
		return big.NewInt(x)
	case uint8:
		return new(big.Int).SetUint64(uint64(x))
	case uint16:
		return new(big.Int).SetUint64(uint64(x))
	case uint32:
		return new(big.Int).SetUint64(uint64(x))
	case uint64:
		return new(big.Int).SetUint64(x)
	default:
		return v
	}
}

// Encode returns the codec encoding of a single value of type t.
func Encode(t abi.Type, v any) ([]byte, error) {
	data, err := abi.Arguments{{Type: t}}.Pack(convertFor(t, v))
	if err != nil {
		return nil, &EncodingError{Value: v, Err: err}
	}
	return data, nil
}

// DecodeArgs decodes data into the argument tuple described by args.
//
// Only the canonical encoding is accepted: the decoded values must encode back
// to exactly data, so trailing bytes or dirty padding are rejected.
func DecodeArgs(args abi.Arguments, data []byte) (decoded Args, err error) {
	defer func() {
		if r := recover(); r != nil {
			decoded, err = nil, fmt.Errorf("xcall: decode: %v", r)
		}
	}()

	values, err := args.Unpack(data)
	if err != nil {
		return nil, err
	}
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(packed, data) {
		return nil, ErrNonCanonical
	}
	return Args(values), nil
}

// decodeAs decodes a single value of ABI type t into R.
func decodeAs[R any](t abi.Type, data []byte) (R, error) {
	var out R
	args := abi.Arguments{{Type: t}}
	values, err := DecodeArgs(args, data)
	if err != nil {
		return out, err
	}
	if r, ok := values[0].(R); ok {
		return r, nil
	}
	switch p := any(&out).(type) {
	case *int:
		if v, ok := values[0].(int64); ok {
			*p = int(v)
			return out, nil
		}
	case *uint:
		if v, ok := values[0].(uint64); ok {
			*p = uint(v)
			return out, nil
		}
	}
	if b, ok := values[0].(*big.Int); ok && b.Sign() >= 0 {
		if r, ok := any(uint256.MustFromBig(b)).(R); ok {
			return r, nil
		}
	}
	if err := args.Copy(&out, values); err != nil {
		return out, &TypeMismatchError{Expected: fmt.Sprintf("%T", out), Got: fmt.Sprintf("%T", values[0])}
	}
	return out, nil
}
