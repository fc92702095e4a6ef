package asset

import (
	"fmt"
	"strings"
)

// Registry is the set of configured chains and their token deployments.
// It is immutable after construction, so it is safe for concurrent reads.
type Registry struct {
	chains map[string]*Chain // keyed by lower-case chain name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[string]*Chain)}
}

// RegisterChain adds a chain to the registry.
// Panics if a chain with the same name is already registered.
func (r *Registry) RegisterChain(c *Chain) {
	if c == nil {
		panic("asset: cannot register nil chain")
	}
	key := strings.ToLower(c.Name)
	if _, exists := r.chains[key]; exists {
		panic(fmt.Sprintf("asset: chain %s already registered", c.Name))
	}
	if c.Tokens == nil {
		c.Tokens = make(map[string]Token)
	}
	r.chains[key] = c
}

// RegisterToken adds a token deployment to an already-registered chain.
func (r *Registry) RegisterToken(chain string, t Token) {
	c, ok := r.chains[strings.ToLower(chain)]
	if !ok {
		panic(fmt.Sprintf("asset: chain %s not registered", chain))
	}
	c.Tokens[strings.ToUpper(t.Symbol)] = t
}

// Chain looks up a chain by name (case-insensitive).
func (r *Registry) Chain(name string) (*Chain, bool) {
	c, ok := r.chains[strings.ToLower(name)]
	return c, ok
}

// Chains returns the names of all registered chains.
func (r *Registry) Chains() []string {
	names := make([]string, 0, len(r.chains))
	for _, c := range r.chains {
		names = append(names, c.Name)
	}
	return names
}

// TokenByAddress finds the token on a chain with the given address
// (case-insensitive hex comparison).
func (r *Registry) TokenByAddress(chain, address string) (Token, bool) {
	c, ok := r.Chain(chain)
	if !ok {
		return Token{}, false
	}
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}
