package xcall

import (
	"github.com/ethereum/go-ethereum/log"
)

// ContractOption configures a Declaration.
type ContractOption func(*contractConfig)

// EntryOption configures a single constructor, message or event.
type EntryOption func(*entryConfig)

// contractConfig holds contract-wide configuration.
type contractConfig struct {
	logger            log.Logger
	docs              []string
	zeroCtorForSingle bool
}

// defaultContractConfig returns the default contract configuration.
func defaultContractConfig() *contractConfig {
	return &contractConfig{
		logger:            log.Root(),
		zeroCtorForSingle: true,
	}
}

// WithLogger sets the logger used while dispatching.
// Default is the go-ethereum root logger.
func WithLogger(l log.Logger) ContractOption {
	return func(c *contractConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithContractDocs attaches documentation lines to the contract.
func WithContractDocs(lines ...string) ContractOption {
	return func(c *contractConfig) {
		c.docs = append(c.docs, lines...)
	}
}

// WithZeroConstructorSelector controls whether a contract with exactly one
// constructor addresses it with ZeroSelector. Enabled by default. Contracts
// with several constructors always use computed selectors.
func WithZeroConstructorSelector(enabled bool) ContractOption {
	return func(c *contractConfig) {
		c.zeroCtorForSingle = enabled
	}
}

// entryConfig holds per-entry configuration.
type entryConfig struct {
	selector *Selector
	returns  string
	docs     []string
}

// WithSelector overrides the computed selector of a constructor or message.
func WithSelector(sel Selector) EntryOption {
	return func(c *entryConfig) {
		c.selector = &sel
	}
}

// WithReturns declares the ABI type a message returns, e.g. "uint32".
// Messages return nothing by default.
func WithReturns(abiType string) EntryOption {
	return func(c *entryConfig) {
		c.returns = abiType
	}
}

// WithDocs attaches documentation lines to an entry.
func WithDocs(lines ...string) EntryOption {
	return func(c *entryConfig) {
		c.docs = append(c.docs, lines...)
	}
}
