package ledger

import (
	"strconv"
	"strings"

	"github.com/govalues/money"
)

// FormatAmount renders a at its currency scale without symbol or grouping, e.g. "-450.00".
// Amounts too large for int64 minor units are rendered from their decimal value.
func FormatAmount(a money.Amount) string {
	units, ok := a.MinorUnits()
	if !ok {
		return a.Decimal().String()
	}
	scale := a.Curr().Scale()
	neg := units < 0
	if neg {
		units = -units
	}
	digits := strconv.FormatInt(units, 10)
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		cut := len(digits) - scale
		digits = digits[:cut] + "." + digits[cut:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// FormatSigned is FormatAmount with an explicit '+' on non-negative amounts.
func FormatSigned(a money.Amount) string {
	if a.IsNeg() {
		return FormatAmount(a)
	}
	return "+" + FormatAmount(a)
}

// Minor returns a in minor units of its currency. Accounts only ever hold
// Representable amounts, so it is exact for balances and entries.
func Minor(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// FromMinor builds an amount from minor units, e.g. FromMinor("INR", 1050) is 10.50.
func FromMinor(curr string, units int64) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(curr, units)
}

// Zero returns a zero amount in curr.
func Zero(curr string) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(curr, 0)
}

// Representable reports whether a fits in int64 minor units.
func Representable(a money.Amount) bool {
	_, ok := a.MinorUnits()
	return ok
}

// Equal reports whether a and b have the same currency and value.
func Equal(a, b money.Amount) bool {
	return a.Curr() == b.Curr() && a.Decimal().Cmp(b.Decimal()) == 0
}
