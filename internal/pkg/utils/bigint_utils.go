package utils

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// pow10 returns 10^decimals.
func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// MinorUnits converts whole token units into minor units.
// Example: whole=12, decimals=6 => 12000000
func MinorUnits(whole int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), pow10(decimals))
}

// FormatBigInt converts a minor-unit amount to a decimal string with trailing
// zeros trimmed.
// Example: amount=1234500, decimals=6 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}

	abs := new(big.Int).Abs(amount)
	intPart, frac := new(big.Int).QuoRem(abs, pow10(decimals), new(big.Int))

	fracStr := frac.String()
	fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
	fracStr = strings.TrimRight(fracStr, "0")

	var b strings.Builder
	if amount.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(intPart.String())
	if fracStr != "" {
		b.WriteByte('.')
		b.WriteString(fracStr)
	}
	return b.String()
}

// FormatFixed formats a minor-unit amount with exactly places decimals,
// rounding half away from zero. Display only.
// Example: amount=43215000, decimals=6, places=2 => "43.22"
func FormatFixed(amount *big.Int, decimals uint8, places uint8) string {
	if amount == nil {
		amount = new(big.Int)
	}
	abs := new(big.Int).Abs(amount)

	scaled := abs
	if places < decimals {
		divisor := pow10(decimals - places)
		q, r := new(big.Int).QuoRem(abs, divisor, new(big.Int))
		if new(big.Int).Mul(r, big.NewInt(2)).Cmp(divisor) >= 0 {
			q.Add(q, big.NewInt(1))
		}
		scaled = q
	} else if places > decimals {
		scaled = new(big.Int).Mul(abs, pow10(places-decimals))
	}

	digits := scaled.String()
	if places > 0 && len(digits) <= int(places) {
		digits = strings.Repeat("0", int(places)-len(digits)+1) + digits
	}

	var b strings.Builder
	if amount.Sign() < 0 && scaled.Sign() != 0 {
		b.WriteByte('-')
	}
	if places == 0 {
		b.WriteString(digits)
		return b.String()
	}
	split := len(digits) - int(places)
	b.WriteString(digits[:split])
	b.WriteByte('.')
	b.WriteString(digits[split:])
	return b.String()
}

// GweiToWei converts a gwei amount (possibly fractional) to wei.
func GweiToWei(gwei float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), new(big.Float).SetInt64(params.GWei)).Int(nil)
	return wei
}

// ScaleGas multiplies a gas estimate by num/den, rounding down.
func ScaleGas(estimate uint64, num uint64, den uint64) uint64 {
	if den == 0 {
		return estimate
	}
	scaled := new(big.Int).Mul(new(big.Int).SetUint64(estimate), new(big.Int).SetUint64(num))
	scaled.Quo(scaled, new(big.Int).SetUint64(den))
	if !scaled.IsUint64() {
		return ^uint64(0)
	}
	return scaled.Uint64()
}

// CloneBig returns a copy of v, or zero for nil.
func CloneBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
