// Package adapter provides blockchain RPC clients for balance lookups.
package adapter

import (
	"context"
	"math/big"
	"strings"

	"github.com/wallet-finder/internal/types"
)

// ChainAdapter is a balance lookup client for one chain. Implementations
// treat the RPC endpoint as an opaque external service.
type ChainAdapter interface {
	// ChainID returns the chain this adapter serves
	ChainID() types.ChainID

	// NativeBalance returns the native-token balance of an address in the
	// chain's smallest unit (wei, lamports)
	NativeBalance(ctx context.Context, address string) (*big.Int, error)

	// FormatBalance renders a raw balance as a decimal string in the
	// chain's display unit
	FormatBalance(raw *big.Int) string
}

// formatUnits renders a raw integer amount as a decimal string with the
// given number of fractional digits, trimming trailing zeros
func formatUnits(raw *big.Int, decimals int) string {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}

	s := raw.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}
