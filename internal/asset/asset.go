// Package asset holds the registry of chains and tokens the monitor knows
// about. The registry is built once from configuration and read-only after
// that.
package asset

import "strings"

// Token is a token deployment on one chain. The address is the on-chain
// contract address; decimals are needed to convert between human units and
// the token's smallest unit.
type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

// Chain is a blockchain the monitor watches. ID is the numeric network
// identifier used by the execution-quote API.
type Chain struct {
	Name   string
	ID     int
	Tokens map[string]Token // keyed by upper-case symbol
}

// Token looks up a token deployment by symbol (case-insensitive).
func (c *Chain) Token(symbol string) (Token, bool) {
	t, ok := c.Tokens[strings.ToUpper(symbol)]
	return t, ok
}
