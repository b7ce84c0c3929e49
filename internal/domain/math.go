package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const moneyPrecision = 2

// FormatMoney rounds to 2 decimal places and strips trailing zeros.
func FormatMoney(d decimal.Decimal) string {
	s := d.Round(moneyPrecision).StringFixed(moneyPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
