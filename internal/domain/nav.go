package domain

import "github.com/shopspring/decimal"

// HurdleRateType selects how the hurdle rate is applied to the prior NAV.
type HurdleRateType string

const (
	HurdleAnnual  HurdleRateType = "annual"
	HurdleMonthly HurdleRateType = "monthly"
	HurdleNone    HurdleRateType = ""
)

// FeePaymentStatus tracks whether the period's performance fee on receivables
// has been settled.
type FeePaymentStatus string

const (
	FeePaid          FeePaymentStatus = "paid"
	FeeNotPaid       FeePaymentStatus = "not_paid"
	FeePartiallyPaid FeePaymentStatus = "partially_paid"
)

// PriorNavSource records where a month's priorPreFeeNav came from, so
// downstream displays can qualify the figure.
type PriorNavSource string

const (
	PriorNavManual            PriorNavSource = "manual"
	PriorNavAutoLoaded        PriorNavSource = "auto_loaded"
	PriorNavFallback          PriorNavSource = "fallback"
	PriorNavPortfolioEstimate PriorNavSource = "portfolio_estimate"
)

// FeeSettings holds the configurable fee terms for a month's NAV waterfall.
// ManagementFeeRate, PerformanceFeeRate and AccruedPerformanceFeeRate are
// fractions (0.02 = 2%); HurdleRate is a percentage figure (8 = 8%).
type FeeSettings struct {
	ManagementFeeRate         decimal.Decimal  `json:"managementFeeRate"`
	PerformanceFeeRate        decimal.Decimal  `json:"performanceFeeRate"`
	AccruedPerformanceFeeRate decimal.Decimal  `json:"accruedPerformanceFeeRate"`
	HurdleRate                decimal.Decimal  `json:"hurdleRate"`
	HurdleRateType            HurdleRateType   `json:"hurdleRateType"`
	FeePaymentStatus          FeePaymentStatus `json:"feePaymentStatus"`
	PartialPaymentAmount      decimal.Decimal  `json:"partialPaymentAmount"`

	// HighWaterMark is persisted for audit but not applied in the waterfall.
	HighWaterMark decimal.Decimal `json:"highWaterMark"`
}

// PortfolioAggregates are the month-end portfolio totals feeding the waterfall.
type PortfolioAggregates struct {
	TotalTokensValue    decimal.Decimal `json:"totalTokensValue"`
	TotalPositionsValue decimal.Decimal `json:"totalPositionsValue"`
	TotalRewards        decimal.Decimal `json:"totalRewards"`
}

// NAVSettings is the stored configuration for one (user, year, month) NAV run.
// PriorPreFeeNavOverride, when set, replaces the prior month's stored preFeeNav
// and is tagged as a manual source in the result.
type NAVSettings struct {
	UserID string `json:"userId"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`

	FeeSettings    FeeSettings         `json:"feeSettings"`
	Portfolio      PortfolioAggregates `json:"portfolioData"`
	NetFlows       decimal.Decimal     `json:"netFlows"`
	MonthlyExpense decimal.Decimal     `json:"monthlyExpense"`

	PriorPreFeeNavOverride *decimal.Decimal `json:"priorPreFeeNavOverride,omitempty"`
}

// NAVCalculationResult is the full fee waterfall for one month. Every
// intermediate figure is kept so the stored record can be audited and
// reproduced from its own inputs.
type NAVCalculationResult struct {
	UserID string `json:"userId"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`

	Investments            decimal.Decimal `json:"investments"`
	DividendsReceivable    decimal.Decimal `json:"dividendsReceivable"`
	TotalAssets            decimal.Decimal `json:"totalAssets"`
	AccruedExpenses        decimal.Decimal `json:"accruedExpenses"`
	PreFeeNav              decimal.Decimal `json:"preFeeNav"`
	PriorPreFeeNav         decimal.Decimal `json:"priorPreFeeNav"`
	PriorPreFeeNavSource   PriorNavSource  `json:"priorPreFeeNavSource"`
	NetFlows               decimal.Decimal `json:"netFlows"`
	Performance            decimal.Decimal `json:"performance"`
	HurdleAmount           decimal.Decimal `json:"hurdleAmount"`
	PerformanceFee         decimal.Decimal `json:"performanceFee"`
	AccruedPerformanceFees decimal.Decimal `json:"accruedPerformanceFees"`
	ManagementFee          decimal.Decimal `json:"managementFee"`
	NetAssets              decimal.Decimal `json:"netAssets"`

	Warnings []string `json:"warnings,omitempty"`
}
