package nav

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/defolio/defolio/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func baseSettings() domain.NAVSettings {
	return domain.NAVSettings{
		UserID: "u1",
		Year:   2026,
		Month:  8,
		FeeSettings: domain.FeeSettings{
			ManagementFeeRate:         dec("0.02"),
			PerformanceFeeRate:        dec("0.20"),
			AccruedPerformanceFeeRate: dec("0.20"),
			HurdleRateType:            domain.HurdleNone,
			FeePaymentStatus:          domain.FeeNotPaid,
		},
		Portfolio: domain.PortfolioAggregates{
			TotalTokensValue:    dec("30000"),
			TotalPositionsValue: dec("20000"),
			TotalRewards:        dec("500"),
		},
		NetFlows:       decimal.Zero,
		MonthlyExpense: dec("100"),
	}
}

func TestWaterfallAssetComposition(t *testing.T) {
	res := Waterfall(baseSettings(), dec("49000"), domain.PriorNavAutoLoaded)

	// investments = 30000 + 20000 - 500; receivable = 500
	if !res.Investments.Equal(dec("49500")) {
		t.Errorf("investments = %s, want 49500", res.Investments)
	}
	if !res.DividendsReceivable.Equal(dec("500")) {
		t.Errorf("dividendsReceivable = %s, want 500", res.DividendsReceivable)
	}
	if !res.TotalAssets.Equal(dec("50000")) {
		t.Errorf("totalAssets = %s, want 50000", res.TotalAssets)
	}
	if !res.PreFeeNav.Equal(dec("49900")) {
		t.Errorf("preFeeNav = %s, want 49900", res.PreFeeNav)
	}
	if res.PriorPreFeeNavSource != domain.PriorNavAutoLoaded {
		t.Errorf("source = %s, want auto_loaded", res.PriorPreFeeNavSource)
	}
}

func TestPerformanceAddsBackWithdrawal(t *testing.T) {
	// priorValue=$49,100.03, currentValue=$49,913.40, netFlows=-$500.02.
	s := baseSettings()
	s.Portfolio = domain.PortfolioAggregates{
		TotalTokensValue:    dec("49913.40"),
		TotalPositionsValue: decimal.Zero,
		TotalRewards:        decimal.Zero,
	}
	s.MonthlyExpense = decimal.Zero
	s.NetFlows = dec("-500.02")

	res := Waterfall(s, dec("49100.03"), domain.PriorNavAutoLoaded)

	if !res.Performance.Equal(dec("313.35")) {
		t.Errorf("performance = %s, want 313.35", res.Performance)
	}
}

func TestPerformanceFeeAboveHurdle(t *testing.T) {
	s := baseSettings()
	s.FeeSettings.HurdleRate = dec("6")
	s.FeeSettings.HurdleRateType = domain.HurdleAnnual

	prior := dec("48000")
	res := Waterfall(s, prior, domain.PriorNavAutoLoaded)

	// hurdle = 6/100/12 * 48000 = 240; performance = 49900 - 48000 = 1900
	if !res.HurdleAmount.Equal(dec("240")) {
		t.Errorf("hurdleAmount = %s, want 240", res.HurdleAmount)
	}
	wantFee := dec("1900").Sub(dec("240")).Mul(dec("0.20"))
	if !res.PerformanceFee.Equal(wantFee) {
		t.Errorf("performanceFee = %s, want %s", res.PerformanceFee, wantFee)
	}
}

func TestPerformanceFeeBelowHurdleIsZero(t *testing.T) {
	s := baseSettings()
	s.FeeSettings.HurdleRate = dec("10")
	s.FeeSettings.HurdleRateType = domain.HurdleMonthly

	// hurdle = 10% of 49900 = 4990, performance is far below it
	res := Waterfall(s, dec("49900"), domain.PriorNavAutoLoaded)
	if !res.PerformanceFee.IsZero() {
		t.Errorf("performanceFee = %s, want 0", res.PerformanceFee)
	}
}

func TestAccruedFeesByPaymentStatus(t *testing.T) {
	s := baseSettings() // receivable = 500, accrued rate = 0.20

	s.FeeSettings.FeePaymentStatus = domain.FeePaid
	if res := Waterfall(s, dec("49000"), domain.PriorNavAutoLoaded); !res.AccruedPerformanceFees.IsZero() {
		t.Errorf("paid: accrued = %s, want 0", res.AccruedPerformanceFees)
	}

	s.FeeSettings.FeePaymentStatus = domain.FeeNotPaid
	if res := Waterfall(s, dec("49000"), domain.PriorNavAutoLoaded); !res.AccruedPerformanceFees.Equal(dec("100")) {
		t.Errorf("not_paid: accrued = %s, want 100", res.AccruedPerformanceFees)
	}

	s.FeeSettings.FeePaymentStatus = domain.FeePartiallyPaid
	s.FeeSettings.PartialPaymentAmount = dec("30")
	if res := Waterfall(s, dec("49000"), domain.PriorNavAutoLoaded); !res.AccruedPerformanceFees.Equal(dec("70")) {
		t.Errorf("partially_paid: accrued = %s, want 70", res.AccruedPerformanceFees)
	}

	// Overpayment never goes negative.
	s.FeeSettings.PartialPaymentAmount = dec("500")
	if res := Waterfall(s, dec("49000"), domain.PriorNavAutoLoaded); !res.AccruedPerformanceFees.IsZero() {
		t.Errorf("overpaid: accrued = %s, want 0", res.AccruedPerformanceFees)
	}
}

func TestManagementFeeMonthlyProRata(t *testing.T) {
	res := Waterfall(baseSettings(), dec("49000"), domain.PriorNavAutoLoaded)

	// totalAssets 50000 * 0.02/12
	want := dec("50000").Mul(dec("0.02").Div(decimal.NewFromInt(12)))
	if !res.ManagementFee.Equal(want) {
		t.Errorf("managementFee = %s, want %s", res.ManagementFee, want)
	}
}

func TestNetAssetsSubtractionChain(t *testing.T) {
	res := Waterfall(baseSettings(), dec("49000"), domain.PriorNavAutoLoaded)

	want := res.PreFeeNav.
		Sub(res.PerformanceFee).
		Sub(res.AccruedPerformanceFees).
		Sub(res.ManagementFee)
	if !res.NetAssets.Equal(want) {
		t.Errorf("netAssets = %s, want %s", res.NetAssets, want)
	}
}

func TestWaterfallRoundTrip(t *testing.T) {
	// Recomputing from the stored result's own inputs reproduces it exactly.
	s := baseSettings()
	s.FeeSettings.HurdleRate = dec("8")
	s.FeeSettings.HurdleRateType = domain.HurdleAnnual
	s.NetFlows = dec("-1250.75")

	stored := Waterfall(s, dec("47210.55"), domain.PriorNavManual)
	recomputed := Waterfall(s, stored.PriorPreFeeNav, stored.PriorPreFeeNavSource)

	if !stored.PreFeeNav.Equal(recomputed.PreFeeNav) ||
		!stored.Performance.Equal(recomputed.Performance) ||
		!stored.PerformanceFee.Equal(recomputed.PerformanceFee) ||
		!stored.AccruedPerformanceFees.Equal(recomputed.AccruedPerformanceFees) ||
		!stored.ManagementFee.Equal(recomputed.ManagementFee) ||
		!stored.NetAssets.Equal(recomputed.NetAssets) {
		t.Errorf("round trip mismatch:\nstored     %+v\nrecomputed %+v", stored, recomputed)
	}
}
