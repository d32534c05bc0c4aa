package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point scale of every on-chain amount (10^18).
const Decimals = 18

// Descale converts a fixed-point integer to an exact decimal. A nil value is zero.
func Descale(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// Scale converts a decimal amount to its fixed-point integer representation.
// Amounts with more than 18 fractional digits cannot be represented and are rejected.
func Scale(d decimal.Decimal) (*big.Int, error) {
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d fractional digits", d.String(), Decimals)
	}
	return shifted.BigInt(), nil
}
