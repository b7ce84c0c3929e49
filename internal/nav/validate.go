package nav

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/defolio/defolio/internal/domain"
)

// Validate runs post-hoc sanity checks on a computed waterfall. It only
// annotates; a flagged result is still stored and returned.
func Validate(res domain.NAVCalculationResult) []string {
	var warnings []string

	// The ratio rules are undefined against a zero prior; the remaining
	// checks still apply, a first month included.
	if !res.PriorPreFeeNav.IsZero() {
		ratio := res.Performance.Div(res.PriorPreFeeNav)

		if ratio.Abs().GreaterThan(decimal.NewFromInt(1)) {
			warnings = append(warnings, fmt.Sprintf(
				"performance of $%s is more than 100%% of prior pre-fee NAV $%s, unrealistically high",
				domain.FormatMoney(res.Performance), domain.FormatMoney(res.PriorPreFeeNav)))
		}

		if ratio.LessThan(decimal.NewFromFloat(-0.9)) {
			warnings = append(warnings, fmt.Sprintf(
				"performance of $%s is below -90%% of prior pre-fee NAV, likely an input error or severe drawdown",
				domain.FormatMoney(res.Performance)))
		}
	}

	if res.NetFlows.Abs().GreaterThan(res.PriorPreFeeNav) {
		direction := "deposit"
		if res.NetFlows.IsNegative() {
			direction = "withdrawal"
		}
		warnings = append(warnings, fmt.Sprintf(
			"%s of $%s exceeds prior pre-fee NAV $%s",
			direction, domain.FormatMoney(res.NetFlows.Abs()), domain.FormatMoney(res.PriorPreFeeNav)))
	}

	if res.PreFeeNav.IsNegative() {
		warnings = append(warnings, fmt.Sprintf(
			"pre-fee NAV is negative ($%s)", domain.FormatMoney(res.PreFeeNav)))
	}

	return warnings
}
