package xcall

import (
	"testing"

	"github.com/ethereum/go-ethereum/log"
)

func TestDefaultContractConfig(t *testing.T) {
	cfg := defaultContractConfig()
	if cfg.logger == nil {
		t.Error("Expected a default logger")
	}
	if !cfg.zeroCtorForSingle {
		t.Error("Expected the zero constructor selector to be enabled by default")
	}
	if len(cfg.docs) != 0 {
		t.Errorf("Expected no docs, got %v", cfg.docs)
	}
}

func TestContractOptions(t *testing.T) {
	t.Run("WithLogger", func(t *testing.T) {
		logger := log.New("contract", "test")
		cfg := defaultContractConfig()
		WithLogger(logger)(cfg)
		if cfg.logger != logger {
			t.Error("WithLogger should set the logger")
		}

		WithLogger(nil)(cfg)
		if cfg.logger != logger {
			t.Error("WithLogger(nil) should keep the current logger")
		}
	})

	t.Run("WithContractDocs appends", func(t *testing.T) {
		cfg := defaultContractConfig()
		WithContractDocs("one")(cfg)
		WithContractDocs("two", "three")(cfg)
		if len(cfg.docs) != 3 || cfg.docs[2] != "three" {
			t.Errorf("Expected 3 docs, got %v", cfg.docs)
		}
	})

	t.Run("WithZeroConstructorSelector", func(t *testing.T) {
		cfg := defaultContractConfig()
		WithZeroConstructorSelector(false)(cfg)
		if cfg.zeroCtorForSingle {
			t.Error("Expected the zero constructor selector to be disabled")
		}
	})
}

func TestEntryOptions(t *testing.T) {
	sel := SelectorFromUint32(0xAABBCCDD)
	cfg := entryConfigOf([]EntryOption{
		WithSelector(sel),
		WithReturns("uint32"),
		WithDocs("first"),
		WithDocs("second"),
	})

	if cfg.selector == nil || *cfg.selector != sel {
		t.Errorf("Expected selector %s, got %v", sel, cfg.selector)
	}
	if cfg.returns != "uint32" {
		t.Errorf("Expected uint32, got %q", cfg.returns)
	}
	if len(cfg.docs) != 2 {
		t.Errorf("Expected 2 docs, got %v", cfg.docs)
	}

	if empty := entryConfigOf(nil); empty.selector != nil || empty.returns != "" {
		t.Errorf("Expected empty config, got %+v", empty)
	}
}
