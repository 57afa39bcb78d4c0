package num

import (
	"github.com/shopspring/decimal"
)

type Decimal = decimal.Decimal

func NewDecimalFromFloat(f float64) Decimal {
	return decimal.NewFromFloat(f)
}

func DecimalFromString(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

// MustDecimalFromString parses a decimal constant, panicking on bad input.
// Meant for configuration defaults and tests.
func MustDecimalFromString(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromUint returns the decimal representation of an exact integer.
func DecimalFromUint(u *Uint) Decimal {
	return decimal.NewFromBigInt(u.BigInt(), 0)
}

// UintFromDecimal truncates a decimal into an exact integer,
// returns true on overflow or negative input.
func UintFromDecimal(d Decimal) (*Uint, bool) {
	if d.IsNegative() {
		return Zero(), true
	}
	return UintFromBig(d.Truncate(0).BigInt())
}

// WadFromDecimal scales a decimal rate or price into its wad
// representation, so 0.1 becomes 10^17. Truncates past 18 decimal places.
func WadFromDecimal(d Decimal) (*Uint, bool) {
	return UintFromDecimal(d.Shift(18))
}

// MustWadFromDecimalString is WadFromDecimal over a string constant,
// panicking on bad input.
func MustWadFromDecimalString(s string) *Uint {
	u, overflow := WadFromDecimal(MustDecimalFromString(s))
	if overflow {
		panic("decimal out of range: " + s)
	}
	return u
}
