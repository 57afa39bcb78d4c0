package num

import "math/big"

// wadScale is the fixed precision every price, rate and factor is expressed
// in: 18 decimal places, so 1.0 == 10^18.
var wadScale = MustUintFromString("1000000000000000000")

// Wad returns the scale unit, 10^18, as a fresh value.
func Wad() *Uint {
	return wadScale.Clone()
}

// MulDiv computes ⌊x*y/z⌋ with an arbitrary precision intermediate so the
// product cannot overflow, truncating toward zero. A zero divisor yields
// zero.
func MulDiv(x, y, z *Uint) *Uint {
	if z.IsZero() {
		return Zero()
	}
	p := new(big.Int).Mul(x.BigInt(), y.BigInt())
	p.Quo(p, z.BigInt())
	// the quotient of 256 bit operands over a non zero divisor fits
	r, _ := UintFromBig(p)
	return r
}

// MulWad computes ⌊x*y/10^18⌋, the product of two wad scaled values.
func MulWad(x, y *Uint) *Uint {
	return MulDiv(x, y, wadScale)
}

// DivWad computes ⌊x*10^18/y⌋, the wad scaled quotient of two values.
func DivWad(x, y *Uint) *Uint {
	return MulDiv(x, wadScale, y)
}
