package nav

import (
	"github.com/shopspring/decimal"

	"github.com/defolio/defolio/internal/domain"
)

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
)

// Waterfall derives a month's full NAV fee waterfall from the stored settings
// and the prior month's pre-fee NAV. It is a pure function: the stored result
// can always be reproduced from its own inputs.
//
// priorPreFeeNav must be resolved by the caller (see Service); the waterfall
// never infers one.
func Waterfall(s domain.NAVSettings, priorPreFeeNav decimal.Decimal, source domain.PriorNavSource) domain.NAVCalculationResult {
	res := domain.NAVCalculationResult{
		UserID:               s.UserID,
		Year:                 s.Year,
		Month:                s.Month,
		PriorPreFeeNav:       priorPreFeeNav,
		PriorPreFeeNavSource: source,
		NetFlows:             s.NetFlows,
	}

	// Pending rewards are carved out of investments and carried as a
	// receivable, so they are not double counted.
	res.Investments = s.Portfolio.TotalTokensValue.
		Add(s.Portfolio.TotalPositionsValue).
		Sub(s.Portfolio.TotalRewards)
	res.DividendsReceivable = s.Portfolio.TotalRewards
	res.TotalAssets = res.Investments.Add(res.DividendsReceivable)

	res.AccruedExpenses = s.MonthlyExpense
	res.PreFeeNav = res.TotalAssets.Sub(res.AccruedExpenses)

	// A withdrawal (negative netFlows) is added back so cash taken out is not
	// mistaken for a loss.
	res.Performance = res.PreFeeNav.Sub(priorPreFeeNav).Add(s.NetFlows)

	res.HurdleAmount = hurdleAmount(s.FeeSettings, priorPreFeeNav)

	if res.Performance.GreaterThan(res.HurdleAmount) {
		res.PerformanceFee = res.Performance.Sub(res.HurdleAmount).Mul(s.FeeSettings.PerformanceFeeRate)
	} else {
		res.PerformanceFee = decimal.Zero
	}

	res.AccruedPerformanceFees = accruedPerformanceFees(s.FeeSettings, res.DividendsReceivable)

	res.ManagementFee = res.TotalAssets.Mul(s.FeeSettings.ManagementFeeRate.Div(monthsPerYear))

	res.NetAssets = res.PreFeeNav.
		Sub(res.PerformanceFee).
		Sub(res.AccruedPerformanceFees).
		Sub(res.ManagementFee)

	return res
}

// hurdleAmount converts the configured hurdle rate into this month's dollar
// threshold against the prior pre-fee NAV.
func hurdleAmount(fees domain.FeeSettings, priorPreFeeNav decimal.Decimal) decimal.Decimal {
	switch fees.HurdleRateType {
	case domain.HurdleAnnual:
		return fees.HurdleRate.Div(hundred).Div(monthsPerYear).Mul(priorPreFeeNav)
	case domain.HurdleMonthly:
		return fees.HurdleRate.Div(hundred).Mul(priorPreFeeNav)
	default:
		return decimal.Zero
	}
}

// accruedPerformanceFees applies the fee payment status to the receivable-based
// accrual.
func accruedPerformanceFees(fees domain.FeeSettings, dividendsReceivable decimal.Decimal) decimal.Decimal {
	switch fees.FeePaymentStatus {
	case domain.FeePaid:
		return decimal.Zero
	case domain.FeeNotPaid:
		return dividendsReceivable.Mul(fees.AccruedPerformanceFeeRate)
	case domain.FeePartiallyPaid:
		calculated := dividendsReceivable.Mul(fees.AccruedPerformanceFeeRate)
		remaining := calculated.Sub(fees.PartialPaymentAmount)
		if remaining.IsNegative() {
			return decimal.Zero
		}
		return remaining
	default:
		return decimal.Zero
	}
}
