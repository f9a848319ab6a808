package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAmount parses a provider-reported integer amount. Providers disagree
// on empty-vs-zero, so "" is zero.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bad integer amount %q", s)
	}
	return v, nil
}

// ParseHexData decodes 0x-prefixed calldata; empty means no payload.
func ParseHexData(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	return hexutil.Decode(s)
}
