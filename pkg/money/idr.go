// Package money formats rupiah amounts for display.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatIDR renders a whole-rupiah amount as "Rp 1.250.000".
// Fractions are rounded half away from zero. NaN and infinities render as "Rp -".
func FormatIDR(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "Rp -"
	}
	d := decimal.NewFromFloat(amount).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return "Rp " + sign + groupThousands(d.String())
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
