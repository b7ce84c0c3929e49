package apy

import (
	"fmt"
	"math"
)

// Confidence grades how reliable a computed yield figure is.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// rank orders confidence levels for cap/demote operations.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

func minConfidence(a, b Confidence) Confidence {
	if a.rank() <= b.rank() {
		return a
	}
	return b
}

// AssessmentInput carries everything the assessor needs about one result.
type AssessmentInput struct {
	APY               float64
	PeriodReturnPct   float64
	IsNewPosition     bool
	DaysElapsed       float64
	HeuristicIdentity bool
}

// Assess grades a computed yield and explains every demotion, so a
// low-confidence figure can be justified to the user rather than just labeled.
func Assess(in AssessmentInput) (Confidence, []string) {
	confidence := ConfidenceHigh
	var warnings []string

	abs := math.Abs(in.APY)
	switch {
	case abs > 10000:
		confidence = ConfidenceLow
		warnings = append(warnings, fmt.Sprintf("APY magnitude %.0f%% exceeds 10000%%, almost certainly a data artifact", abs))
	case abs > 1000:
		confidence = ConfidenceLow
		warnings = append(warnings, fmt.Sprintf("APY magnitude %.0f%% exceeds 1000%%, likely distorted by a short observation window", abs))
	case abs > 100:
		confidence = minConfidence(confidence, ConfidenceMedium)
		warnings = append(warnings, fmt.Sprintf("APY magnitude %.1f%% exceeds 100%%, treat with caution", abs))
	}

	if in.IsNewPosition {
		if confidence.rank() > ConfidenceMedium.rank() {
			warnings = append(warnings, "position age assumed to be 1 day; true open date unknown")
		}
		confidence = minConfidence(confidence, ConfidenceMedium)
	} else if in.DaysElapsed < 30 && confidence.rank() > ConfidenceMedium.rank() {
		confidence = ConfidenceMedium
		warnings = append(warnings, fmt.Sprintf("observation window of %.1f days is under 30 days", in.DaysElapsed))
	}

	if in.HeuristicIdentity && confidence.rank() > ConfidenceMedium.rank() {
		confidence = ConfidenceMedium
		warnings = append(warnings, "position matched by heuristic identity, not a provider-issued ID")
	}

	return confidence, warnings
}
