package apy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/defolio/defolio/internal/domain"
)

func snapshotOn(day int, positions ...domain.Position) *domain.PortfolioSnapshot {
	return &domain.PortfolioSnapshot{
		UserID:        "u1",
		WalletAddress: "0xabc",
		Date:          time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC),
		Positions:     positions,
	}
}

func TestNewPositionRewardsYield(t *testing.T) {
	// currentValue=$177,090.80, rewards=$20.79, no reference match.
	current := snapshotOn(30, domain.Position{
		PositionID:   "pendle:1",
		ProtocolName: "Pendle",
		Chain:        "ethereum",
		PositionType: "liquidity",
		TotalValue:   177090.80,
		RewardTokens: []domain.TokenHolding{{Symbol: "PENDLE", ValueUSD: 20.79}},
	})

	results := NewEngine().Calculate(current, nil)
	res, ok := results["pendle:1"]
	if !ok {
		t.Fatal("expected a result for pendle:1")
	}

	want := 20.79 / 177090.80 * 365 * 100
	if math.Abs(res.APY-want) > 1e-9 {
		t.Errorf("APY = %v, want %v", res.APY, want)
	}
	if math.Abs(res.APY-4.29) > 0.01 {
		t.Errorf("APY = %v, want ~4.29", res.APY)
	}
	if res.Method != MethodNewPosition {
		t.Errorf("method = %s, want new_position", res.Method)
	}
	if res.DaysElapsed != 1 {
		t.Errorf("daysElapsed = %v, want 1", res.DaysElapsed)
	}
	if res.Confidence != ConfidenceLow && res.Confidence != ConfidenceMedium {
		t.Errorf("confidence = %s, want low or medium", res.Confidence)
	}
}

func TestNewPositionNoRewards(t *testing.T) {
	current := snapshotOn(30, domain.Position{
		PositionID: "aave:1",
		TotalValue: 5000,
	})

	res := NewEngine().Calculate(current, nil)["aave:1"]
	if res.APY != 0 {
		t.Errorf("APY = %v, want 0", res.APY)
	}
	if res.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low", res.Confidence)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected warnings on zero-reward new position")
	}
}

func TestZeroValuePositionEmitsNoResult(t *testing.T) {
	current := snapshotOn(30, domain.Position{PositionID: "dead:1", TotalValue: 0})
	if results := NewEngine().Calculate(current, nil); len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestNonPositiveReferenceTreatedAsNew(t *testing.T) {
	pos := domain.Position{
		PositionID: "comp:1",
		TotalValue: 1000,
		RewardTokens: []domain.TokenHolding{{Symbol: "COMP", ValueUSD: 2}},
	}
	refPos := pos
	refPos.TotalValue = 0
	refPos.RewardTokens = nil

	results := NewEngine().Calculate(snapshotOn(30, pos), snapshotOn(23, refPos))
	res := results["comp:1"]
	if res.Method != MethodNewPosition {
		t.Errorf("method = %s, want new_position", res.Method)
	}
}

func TestValueChangeCompoundAnnualization(t *testing.T) {
	pos := domain.Position{PositionID: "uni:1", TotalValue: 49913.40}
	refPos := domain.Position{PositionID: "uni:1", TotalValue: 49100.03}

	current := snapshotOn(31, pos)
	reference := snapshotOn(1, refPos) // 30 days earlier

	res := NewEngine().Calculate(current, reference)["uni:1"]
	if res.Method != MethodValueChange {
		t.Fatalf("method = %s, want value_change", res.Method)
	}
	if res.DaysElapsed != 30 {
		t.Errorf("daysElapsed = %v, want 30", res.DaysElapsed)
	}

	periodReturn := (49913.40 - 49100.03) / 49100.03
	want := (math.Pow(1+periodReturn, 365.0/30) - 1) * 100
	if math.Abs(res.APY-want) > 1e-9 {
		t.Errorf("APY = %v, want %v", res.APY, want)
	}
	if math.Abs(res.PeriodReturnPct-periodReturn*100) > 1e-9 {
		t.Errorf("periodReturnPct = %v, want %v", res.PeriodReturnPct, periodReturn*100)
	}
}

func TestValueChangeNegativeAPYNotClamped(t *testing.T) {
	current := snapshotOn(31, domain.Position{PositionID: "x:1", TotalValue: 900})
	reference := snapshotOn(1, domain.Position{PositionID: "x:1", TotalValue: 1000})

	res := NewEngine().Calculate(current, reference)["x:1"]
	if res.APY >= 0 {
		t.Errorf("APY = %v, want negative", res.APY)
	}
	want := (math.Pow(0.9, 365.0/30) - 1) * 100
	if math.Abs(res.APY-want) > 1e-9 {
		t.Errorf("APY = %v, want %v", res.APY, want)
	}
}

func TestRewardsBasedFlatValue(t *testing.T) {
	pos := domain.Position{
		PositionID:   "crv:1",
		TotalValue:   10000,
		RewardTokens: []domain.TokenHolding{{Symbol: "CRV", ValueUSD: 30}},
	}
	refPos := domain.Position{PositionID: "crv:1", TotalValue: 9950} // within 1%

	res := NewEngine().Calculate(snapshotOn(31, pos), snapshotOn(24, refPos))["crv:1"]
	if res.Method != MethodRewardsBased {
		t.Fatalf("method = %s, want rewards_based", res.Method)
	}
	if res.DaysElapsed < 7 || res.DaysElapsed > 30 {
		t.Errorf("assumed days = %v, want within [7, 30]", res.DaysElapsed)
	}
	want := 30.0 / (10000 * res.DaysElapsed) * 365 * 100
	if math.Abs(res.APY-want) > 1e-9 {
		t.Errorf("APY = %v, want %v", res.APY, want)
	}
}

func TestRewardsBasedCap(t *testing.T) {
	pos := domain.Position{
		PositionID:   "farm:1",
		TotalValue:   1000,
		RewardTokens: []domain.TokenHolding{{Symbol: "SUSHI", ValueUSD: 200}},
	}
	refPos := domain.Position{PositionID: "farm:1", TotalValue: 1000}

	res := NewEngine().Calculate(snapshotOn(31, pos), snapshotOn(24, refPos))["farm:1"]
	if res.Method != MethodRewardsBased {
		t.Fatalf("method = %s, want rewards_based", res.Method)
	}
	if res.APY != rewardsBasedAPYCap {
		t.Errorf("APY = %v, want capped at %d", res.APY, rewardsBasedAPYCap)
	}
	if !hasWarningContaining(res.Warnings, "capped") {
		t.Errorf("expected cap warning, got %v", res.Warnings)
	}
}

func TestCalculateIdempotent(t *testing.T) {
	current := snapshotOn(31,
		domain.Position{PositionID: "a", TotalValue: 1500, RewardTokens: []domain.TokenHolding{{ValueUSD: 3}}},
		domain.Position{PositionID: "b", TotalValue: 800},
	)
	reference := snapshotOn(1,
		domain.Position{PositionID: "a", TotalValue: 1400},
		domain.Position{PositionID: "b", TotalValue: 820},
	)

	engine := NewEngine()
	first := engine.Calculate(current, reference)
	second := engine.Calculate(current, reference)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical snapshot pairs must yield identical results")
	}
}
