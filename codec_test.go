package xcall

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
)

func mustType(t *testing.T, s string) abi.Type {
	t.Helper()
	typ, err := ParseType(s)
	if err != nil {
		t.Fatalf("Failed to parse type %q: %v", s, err)
	}
	return typ
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"bool", true, "bool"},
		{"int8", int8(-1), "int8"},
		{"int32", int32(1), "int32"},
		{"int", 1, "int64"},
		{"uint8", uint8(1), "uint8"},
		{"uint32", uint32(1), "uint32"},
		{"uint", uint(1), "uint64"},
		{"big.Int", big.NewInt(1), "uint256"},
		{"uint256.Int", uint256.NewInt(1), "uint256"},
		{"address", common.Address{}, "address"},
		{"hash", common.Hash{}, "bytes32"},
		{"bytes4", [4]byte{}, "bytes4"},
		{"bytes", []byte{1}, "bytes"},
		{"string", "hello", "string"},
		{"uint64 slice", []uint64{1, 2}, "uint64[]"},
		{"bool array", [2]bool{}, "bool[2]"},
		{"address slice", []common.Address{{}}, "address[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeOf(tt.value)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got.String())
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		for _, v := range []any{nil, struct{}{}, map[string]int{}, 1.5} {
			if _, err := TypeOf(v); !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("Expected ErrUnsupportedType for %T, got %v", v, err)
			}
		}
	})
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("notatype"); err == nil {
		t.Error("Expected error for notatype")
	}
	if typ := mustType(t, "bytes32[]"); typ.String() != "bytes32[]" {
		t.Errorf("Expected bytes32[], got %s", typ.String())
	}
}

func TestEncode(t *testing.T) {
	t.Run("uint32 is one word", func(t *testing.T) {
		data, err := Encode(mustType(t, "uint32"), uint32(5))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(data) != 32 {
			t.Fatalf("Expected 32 bytes, got %d", len(data))
		}
		if data[31] != 5 {
			t.Errorf("Expected last byte 5, got %d", data[31])
		}
	})

	t.Run("Go int widens to uint256", func(t *testing.T) {
		a, err := Encode(mustType(t, "uint256"), 7)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		b, err := Encode(mustType(t, "uint256"), uint256.NewInt(7))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if string(a) != string(b) {
			t.Errorf("Expected identical encodings, got %x and %x", a, b)
		}
	})

	t.Run("wrong Go type", func(t *testing.T) {
		_, err := Encode(mustType(t, "uint32"), "five")
		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Fatalf("Expected EncodingError, got %v", err)
		}
	})
}

func TestDecodeArgsRoundTrip(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 8)

	for i := 0; i < 50; i++ {
		var (
			n    uint32
			m    uint64
			ok   bool
			addr common.Address
			s    string
			list []uint64
		)
		f.Fuzz(&n)
		f.Fuzz(&m)
		f.Fuzz(&ok)
		f.Fuzz(&addr)
		f.Fuzz(&s)
		f.Fuzz(&list)
		if list == nil {
			list = []uint64{}
		}

		cases := []struct {
			typ   string
			value any
		}{
			{"uint32", n},
			{"uint64", m},
			{"bool", ok},
			{"address", addr},
			{"string", s},
			{"uint64[]", list},
		}
		for _, c := range cases {
			typ := mustType(t, c.typ)
			data, err := Encode(typ, c.value)
			if err != nil {
				t.Fatalf("Failed to encode %s %v: %v", c.typ, c.value, err)
			}
			decoded, err := DecodeArgs(abi.Arguments{{Type: typ}}, data)
			if err != nil {
				t.Fatalf("Failed to decode %s %v: %v", c.typ, c.value, err)
			}
			if !reflect.DeepEqual(decoded[0], c.value) {
				t.Errorf("Round trip of %s: expected %v, got %v", c.typ, c.value, decoded[0])
			}
		}
	}
}

func TestDecodeArgsRejectsMalformed(t *testing.T) {
	args := abi.Arguments{{Type: mustType(t, "uint32")}}
	valid, err := Encode(args[0].Type, uint32(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	t.Run("short", func(t *testing.T) {
		if _, err := DecodeArgs(args, valid[:31]); err == nil {
			t.Error("Expected error for 31-byte input")
		}
	})

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := DecodeArgs(args, append(append([]byte(nil), valid...), 0))
		if !errors.Is(err, ErrNonCanonical) {
			t.Errorf("Expected ErrNonCanonical, got %v", err)
		}
	})

	t.Run("dirty padding", func(t *testing.T) {
		dirty := append([]byte(nil), valid...)
		dirty[0] = 0xff
		if _, err := DecodeArgs(args, dirty); err == nil {
			t.Error("Expected error for dirty padding")
		}
	})

	t.Run("empty tuple", func(t *testing.T) {
		decoded, err := DecodeArgs(nil, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(decoded) != 0 {
			t.Errorf("Expected no arguments, got %d", len(decoded))
		}
		if _, err := DecodeArgs(nil, []byte{1}); err == nil {
			t.Error("Expected error for bytes after an empty tuple")
		}
	})
}

func TestArg(t *testing.T) {
	args := Args{uint32(5), big.NewInt(9), common.HexToAddress("0x01")}

	if got := Arg[uint32](args, 0); got != 5 {
		t.Errorf("Expected 5, got %d", got)
	}
	if got := Arg[*big.Int](args, 1); got.Int64() != 9 {
		t.Errorf("Expected 9, got %s", got)
	}
	if got := Arg[*uint256.Int](args, 1); got.Uint64() != 9 {
		t.Errorf("Expected 9 as uint256, got %s", got)
	}

	t.Run("mismatch panics", func(t *testing.T) {
		defer func() {
			r := recover()
			if _, ok := r.(*TypeMismatchError); !ok {
				t.Errorf("Expected TypeMismatchError panic, got %v", r)
			}
		}()
		Arg[string](args, 2)
	})
}

func TestDecodeAs(t *testing.T) {
	data, err := Encode(mustType(t, "int32"), int32(42))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got, err := decodeAs[int32](mustType(t, "int32"), data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	u, err := decodeAs[*uint256.Int](mustType(t, "uint256"), data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u.Uint64() != 42 {
		t.Errorf("Expected 42, got %s", u)
	}
}
