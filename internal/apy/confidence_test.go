package apy

import (
	"strings"
	"testing"
)

func TestAssessLongWindowSaneMagnitude(t *testing.T) {
	c, warnings := Assess(AssessmentInput{APY: 12, DaysElapsed: 45})
	if c != ConfidenceHigh {
		t.Errorf("confidence = %s, want high", c)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestAssessNewPositionCappedAtMedium(t *testing.T) {
	c, warnings := Assess(AssessmentInput{APY: 5, IsNewPosition: true, DaysElapsed: 1})
	if c != ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", c)
	}
	if !hasWarningContaining(warnings, "assumed") {
		t.Errorf("expected age-assumption warning, got %v", warnings)
	}
}

func TestAssessShortWindowCappedAtMedium(t *testing.T) {
	c, warnings := Assess(AssessmentInput{APY: 8, DaysElapsed: 3})
	if c != ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", c)
	}
	if !hasWarningContaining(warnings, "under 30 days") {
		t.Errorf("expected short-window warning, got %v", warnings)
	}
}

func TestAssessMagnitudeThresholds(t *testing.T) {
	cases := []struct {
		apy  float64
		want Confidence
		frag string
	}{
		{150, ConfidenceMedium, "exceeds 100%"},
		{-150, ConfidenceMedium, "exceeds 100%"},
		{2500, ConfidenceLow, "exceeds 1000%"},
		{50000, ConfidenceLow, "exceeds 10000%"},
	}
	for _, c := range cases {
		got, warnings := Assess(AssessmentInput{APY: c.apy, DaysElapsed: 60})
		if got != c.want {
			t.Errorf("Assess(apy=%v) = %s, want %s", c.apy, got, c.want)
		}
		if !hasWarningContaining(warnings, c.frag) {
			t.Errorf("Assess(apy=%v): no warning containing %q in %v", c.apy, c.frag, warnings)
		}
	}
}

func TestAssessHeuristicIdentityDemotes(t *testing.T) {
	c, warnings := Assess(AssessmentInput{APY: 10, DaysElapsed: 90, HeuristicIdentity: true})
	if c != ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", c)
	}
	if !hasWarningContaining(warnings, "heuristic") {
		t.Errorf("expected heuristic-identity warning, got %v", warnings)
	}
}

func TestAssessEveryDemotionExplained(t *testing.T) {
	c, warnings := Assess(AssessmentInput{APY: 3000, IsNewPosition: true, DaysElapsed: 1})
	if c != ConfidenceLow {
		t.Errorf("confidence = %s, want low", c)
	}
	if len(warnings) == 0 {
		t.Error("demotion must carry an explanation")
	}
}

func hasWarningContaining(warnings []string, frag string) bool {
	for _, w := range warnings {
		if strings.Contains(w, frag) {
			return true
		}
	}
	return false
}
