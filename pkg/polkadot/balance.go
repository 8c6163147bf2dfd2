package polkadot

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatBalance converts an amount in planck to whole tokens, e.g. with 10
// decimals 15_000_000_000 planck is 1.5.
func FormatBalance(planck *big.Int, decimals int) decimal.Decimal {
	if planck == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(planck, -int32(decimals))
}

// ParseBalance is the inverse of FormatBalance. Digits beyond decimals are
// truncated.
func ParseBalance(tokens decimal.Decimal, decimals int) *big.Int {
	return tokens.Shift(int32(decimals)).Truncate(0).BigInt()
}
