package domain

import (
	"fmt"
	"strings"
)

// Pair is a trading pair in BASE/QUOTE notation, e.g. "ETH/USDC". The quote
// side is assumed to be a USD-pegged token; prices are expressed in USD per
// base token.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses "BASE/QUOTE" into a Pair.
func ParsePair(s string) (Pair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return Pair{}, fmt.Errorf("invalid pair %q: expected BASE/QUOTE", s)
	}
	return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}, nil
}

// String returns the pair in BASE/QUOTE notation.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}
