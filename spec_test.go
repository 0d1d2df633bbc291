package xcall

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func sortedSelectors(sels []Selector) []Selector {
	out := append([]Selector(nil), sels...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func TestSpecMatchesDispatchTables(t *testing.T) {
	c := counterDeclaration().MustBuild()
	spec := c.Spec()

	if got, want := sortedSelectors(spec.MessageSelectors()), c.Selectors(ModeCall); !reflect.DeepEqual(got, want) {
		t.Errorf("Message selectors differ from the call table:\n  spec:  %v\n  table: %v", got, want)
	}
	if got, want := sortedSelectors(spec.ConstructorSelectors()), c.Selectors(ModeDeploy); !reflect.DeepEqual(got, want) {
		t.Errorf("Constructor selectors differ from the deploy table:\n  spec:  %v\n  table: %v", got, want)
	}
}

func TestReflect(t *testing.T) {
	d := NewDeclaration[counter]("Counter", WithContractDocs("Counts things.")).
		Constructor("new", []Param{{Name: "init", Type: "uint32"}},
			func(env *Env, s *counter, args Args) error { return nil },
			WithDocs("Starts at init.")).
		MessageMut("increment", []Param{{Name: "by", Type: "uint32"}},
			func(env *Env, s *counter, args Args) (any, error) { return nil, nil },
			WithSelector(incrementSelector)).
		Message("get", nil,
			func(env *Env, s counter, args Args) (any, error) { return s.Value, nil },
			WithReturns("uint32"), WithDocs("Current value.")).
		Event("Incremented", []EventParam{
			{Name: "by_whom", Type: "address", Indexed: true},
			{Name: "amount", Type: "uint32"},
		})

	spec, err := d.Reflect()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if spec.Name != "Counter" {
		t.Errorf("Expected Counter, got %s", spec.Name)
	}
	if !reflect.DeepEqual(spec.Docs, []string{"Counts things."}) {
		t.Errorf("Unexpected contract docs: %v", spec.Docs)
	}

	ctor := spec.Constructors[0]
	if ctor.Selector != ZeroSelector || ctor.Signature != "new(uint32)" {
		t.Errorf("Unexpected constructor: %+v", ctor)
	}
	if !reflect.DeepEqual(ctor.Args, []ParamSpec{{Name: "init", Type: "uint32"}}) {
		t.Errorf("Unexpected constructor args: %+v", ctor.Args)
	}

	inc, ok := spec.Message("increment")
	if !ok {
		t.Fatal("Expected increment message")
	}
	if inc.Selector != incrementSelector || !inc.Mutates || inc.ReturnType != nil {
		t.Errorf("Unexpected increment: %+v", inc)
	}

	get, ok := spec.Message("get")
	if !ok {
		t.Fatal("Expected get message")
	}
	if get.Mutates || get.ReturnType == nil || *get.ReturnType != "uint32" {
		t.Errorf("Unexpected get: %+v", get)
	}
	if get.Selector != ComputeSelector("get()") {
		t.Errorf("Expected %s, got %s", ComputeSelector("get()"), get.Selector)
	}

	if _, ok := spec.Message("missing"); ok {
		t.Error("Expected no message named missing")
	}

	ev := spec.Events[0]
	if ev.Topic != crypto.Keccak256Hash([]byte("Incremented(address,uint32)")) {
		t.Errorf("Unexpected topic %s", ev.Topic.Hex())
	}
	if !ev.Args[0].Indexed || ev.Args[1].Indexed {
		t.Errorf("Unexpected indexed flags: %+v", ev.Args)
	}

	t.Run("reflect is pure", func(t *testing.T) {
		again, err := d.Reflect()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !reflect.DeepEqual(spec, again) {
			t.Error("Reflect should return the same description each time")
		}
	})

	t.Run("reflect reports build errors", func(t *testing.T) {
		_, err := NewDeclaration[counter]("Empty").Reflect()
		if !errors.Is(err, ErrNoConstructor) {
			t.Errorf("Expected ErrNoConstructor, got %v", err)
		}
	})
}

func TestSpecJSON(t *testing.T) {
	spec := counterDeclaration().MustBuild().Spec()

	data, err := spec.JSON()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if !strings.Contains(string(data), `"selector": "0xaabbccdd"`) {
		t.Errorf("Expected hex selector in JSON:\n%s", data)
	}
	if !strings.Contains(string(data), `"return_type": null`) {
		t.Errorf("Expected null return type in JSON:\n%s", data)
	}

	parsed, err := ParseSpec(data)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if !reflect.DeepEqual(parsed, spec) {
		t.Error("Parsed description differs from the original")
	}

	var buf bytes.Buffer
	n, err := spec.WriteTo(&buf)
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	if int(n) != buf.Len() || !bytes.Equal(bytes.TrimSpace(buf.Bytes()), data) {
		t.Errorf("WriteTo should write the JSON form, wrote %d bytes", n)
	}

	if _, err := ParseSpec([]byte("{")); err == nil {
		t.Error("Expected error for truncated JSON")
	}

	t.Run("empty lists are arrays", func(t *testing.T) {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("Failed to unmarshal: %v", err)
		}
		if _, ok := raw["docs"].([]any); !ok {
			t.Errorf("Expected docs to be an array, got %T", raw["docs"])
		}
	})
}

func TestCalleeFromSpec(t *testing.T) {
	spec := counterDeclaration().MustBuild().Spec()
	callee, err := CalleeFromSpec(calleeAddr, spec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	b, err := callee.Invoke("increment", uint32(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b.Params().Selector() != incrementSelector {
		t.Errorf("Expected overridden selector %s, got %s", incrementSelector, b.Params().Selector())
	}

	if _, err := EvalMethod[uint32](callee, "get"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestCheckConsistency(t *testing.T) {
	d := counterDeclaration()
	res, err := d.resolve()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	spec, err := d.Reflect()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	deploy := make(map[Selector]*dispatchEntry[counter])
	for _, r := range res.ctors {
		deploy[r.selector] = newDispatchEntry(r)
	}
	call := make(map[Selector]*dispatchEntry[counter])
	for _, r := range res.messages {
		call[r.selector] = newDispatchEntry(r)
	}

	if err := checkConsistency(spec, deploy, call); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	t.Run("missing entry", func(t *testing.T) {
		delete(call, incrementSelector)
		defer func() { call[incrementSelector] = newDispatchEntry(res.messages[0]) }()
		if err := checkConsistency(spec, deploy, call); !errors.Is(err, ErrSpecMismatch) {
			t.Errorf("Expected ErrSpecMismatch, got %v", err)
		}
	})

	t.Run("different return type", func(t *testing.T) {
		tampered := *spec
		tampered.Messages = append([]MessageSpec(nil), spec.Messages...)
		other := "uint64"
		for i := range tampered.Messages {
			if tampered.Messages[i].Name == "get" {
				tampered.Messages[i].ReturnType = &other
			}
		}
		if err := checkConsistency(&tampered, deploy, call); !errors.Is(err, ErrSpecMismatch) {
			t.Errorf("Expected ErrSpecMismatch, got %v", err)
		}
	})
}
