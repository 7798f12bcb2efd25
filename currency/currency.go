/*
Package currency provides IDR money formatting for breakdown and reason
strings.

PURPOSE:
  Commission amounts and outstanding balances are rupiah values carried as
  decimal.Decimal (never float64 - money must not pick up binary rounding).
  This package owns the human-readable rendering used in commission
  breakdowns and reminder reasons, which support staff rely on.

FORMAT:
  Rupiah is rendered with a dot as the thousands separator and no decimal
  places: 1500000 -> "Rp 1.500.000". Fractional parts are rounded to the
  nearest rupiah.

SEE ALSO:
  - commission/calculator.go: Breakdown strings
  - reminder/evaluator.go: Reason strings
*/
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders an amount as rupiah: "Rp 1.500.000".
// Negative amounts keep the sign in front of the currency marker.
func Format(amount decimal.Decimal) string {
	rounded := amount.Round(0)
	neg := rounded.IsNegative()
	digits := rounded.Abs().String()

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// Students renders a student count with the right noun form, for
// commission breakdowns ("1 student", "3 students").
func Students(n int) string {
	if n == 1 {
		return "1 student"
	}
	return fmt.Sprintf("%d students", n)
}

// Meetings renders a meeting count with the right noun form, for
// reminder reasons ("1 meeting", "2 meetings").
func Meetings(n int) string {
	if n == 1 {
		return "1 meeting"
	}
	return fmt.Sprintf("%d meetings", n)
}
