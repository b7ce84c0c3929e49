package apy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/defolio/defolio/internal/domain"
)

// Method tags which calculation path produced a yield estimate.
type Method string

const (
	// MethodNewPosition covers positions absent from the reference snapshot.
	// Age is assumed to be 1 day, a deliberate accuracy/availability tradeoff.
	MethodNewPosition Method = "new_position"
	// MethodRewardsBased covers matched positions whose value is essentially
	// flat but carry pending rewards.
	MethodRewardsBased Method = "rewards_based"
	// MethodValueChange covers matched positions with a measurable value move,
	// annualized with standard compounding.
	MethodValueChange Method = "value_change"
)

const (
	daysPerYear = 365

	// Value moves under 1% of current value are treated as flat.
	flatValueThreshold = 0.01

	// Bounds for the assumed accrual window of rewards-based estimates.
	minAssumedDays = 7
	maxAssumedDays = 30

	// Rewards-based estimates are capped; higher figures from an assumed
	// window are noise, not signal.
	rewardsBasedAPYCap = 200
)

// Result is a per-position yield estimate with its audit trail. It is
// computed on demand from two snapshots and never persisted.
type Result struct {
	PositionIdentity string     `json:"positionIdentity"`
	APY              float64    `json:"apy"`
	PeriodReturnPct  float64    `json:"periodReturnPct"`
	DaysElapsed      float64    `json:"daysElapsed"`
	Method           Method     `json:"method"`
	Confidence       Confidence `json:"confidence"`
	Warnings         []string   `json:"warnings,omitempty"`
	CurrentValue     float64    `json:"currentValue"`
	ReferenceValue   float64    `json:"referenceValue"`
}

// Engine compares two time-separated snapshots position by position and
// produces annotated yield estimates. It is a pure transformation: no state,
// identical inputs always yield identical output.
type Engine struct{}

// NewEngine creates a yield calculation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// referenceEntry is one position of the reference snapshot, indexed by identity.
type referenceEntry struct {
	value float64
}

// Calculate produces a yield estimate for every position in the current
// snapshot with a positive, finite value. reference may be nil (first observed
// day); every position is then treated as new.
func (e *Engine) Calculate(current *domain.PortfolioSnapshot, reference *domain.PortfolioSnapshot) map[string]Result {
	refIndex := make(map[string]referenceEntry)
	var refDays float64 = 1
	if reference != nil {
		for _, p := range reference.Positions {
			id, _ := Identity(p)
			// Colliding identities overwrite; simultaneously-held identical
			// positions cannot be told apart (see IdentityHeuristic).
			refIndex[id] = referenceEntry{value: p.Value()}
		}
		refDays = math.Max(0.1, current.Date.Sub(reference.Date).Hours()/24)
	}

	results := make(map[string]Result, len(current.Positions))
	for _, p := range current.Positions {
		value := p.Value()
		if !(value > 0) || math.IsInf(value, 0) {
			slog.Debug("skipping position with non-positive value",
				"protocol", p.ProtocolName, "value", value)
			continue
		}

		id, src := Identity(p)
		rewards := p.RewardsValue()

		var res Result
		ref, matched := refIndex[id]
		switch {
		case !matched || ref.value <= 0:
			// A matched position with a non-positive reference value is
			// treated as new to avoid dividing by it.
			res = e.newPosition(id, value, rewards, src)
		case rewards > 0 && math.Abs(value-ref.value) < flatValueThreshold*value:
			res = e.rewardsBased(id, value, ref.value, rewards, src)
		default:
			r, ok := e.valueChange(id, value, ref.value, refDays, src)
			if !ok {
				continue
			}
			res = r
		}
		results[id] = res
	}
	return results
}

func (e *Engine) newPosition(id string, value, rewards float64, src IdentitySource) Result {
	res := Result{
		PositionIdentity: id,
		Method:           MethodNewPosition,
		DaysElapsed:      1,
		CurrentValue:     value,
	}

	if rewards <= 0 {
		res.Confidence = ConfidenceLow
		res.Warnings = []string{
			"position age assumed to be 1 day; true open date unknown",
			"no rewards observed yet, yield unknown",
		}
		return res
	}

	res.PeriodReturnPct = rewards / value * 100
	res.APY = rewards / value * daysPerYear * 100
	res.Confidence, res.Warnings = Assess(AssessmentInput{
		APY:               res.APY,
		PeriodReturnPct:   res.PeriodReturnPct,
		IsNewPosition:     true,
		DaysElapsed:       res.DaysElapsed,
		HeuristicIdentity: src == IdentityHeuristic,
	})
	return res
}

func (e *Engine) rewardsBased(id string, value, refValue, rewards float64, src IdentitySource) Result {
	// The accrual window is unknown; scale the assumption with the size of
	// the reward stash relative to the position, bounded to a sane range.
	assumedDays := clamp(rewards/value*daysPerYear, minAssumedDays, maxAssumedDays)

	res := Result{
		PositionIdentity: id,
		Method:           MethodRewardsBased,
		DaysElapsed:      assumedDays,
		CurrentValue:     value,
		ReferenceValue:   refValue,
		PeriodReturnPct:  rewards / value * 100,
	}

	res.APY = rewards / (value * assumedDays) * daysPerYear * 100
	var capped bool
	if res.APY > rewardsBasedAPYCap {
		res.APY = rewardsBasedAPYCap
		capped = true
	}

	res.Confidence, res.Warnings = Assess(AssessmentInput{
		APY:               res.APY,
		PeriodReturnPct:   res.PeriodReturnPct,
		DaysElapsed:       assumedDays,
		HeuristicIdentity: src == IdentityHeuristic,
	})
	if capped {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("rewards-based estimate capped at %d%%", rewardsBasedAPYCap))
	}
	return res
}

func (e *Engine) valueChange(id string, value, refValue, actualDays float64, src IdentitySource) (Result, bool) {
	periodReturn := (value - refValue) / refValue
	apy := (math.Pow(1+periodReturn, daysPerYear/actualDays) - 1) * 100
	if math.IsNaN(apy) || math.IsInf(apy, 0) {
		slog.Warn("non-finite annualized return, skipping position",
			"identity", id, "periodReturn", periodReturn, "days", actualDays)
		return Result{}, false
	}

	res := Result{
		PositionIdentity: id,
		Method:           MethodValueChange,
		DaysElapsed:      actualDays,
		CurrentValue:     value,
		ReferenceValue:   refValue,
		PeriodReturnPct:  periodReturn * 100,
		APY:              apy,
	}
	res.Confidence, res.Warnings = Assess(AssessmentInput{
		APY:               apy,
		PeriodReturnPct:   res.PeriodReturnPct,
		DaysElapsed:       actualDays,
		HeuristicIdentity: src == IdentityHeuristic,
	})
	return res, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
