package apy

import (
	"strings"

	"github.com/defolio/defolio/internal/domain"
)

// IdentitySource records how a position's identity key was derived.
type IdentitySource string

const (
	// IdentityProvider means the ingestion source issued a stable position ID.
	IdentityProvider IdentitySource = "provider"
	// IdentityHeuristic means the key was composed from position attributes.
	// Two simultaneously-held positions sharing protocol, chain, type and
	// primary token collapse onto one key under this source; the assessor
	// treats heuristic matches as lower-confidence for that reason.
	IdentityHeuristic IdentitySource = "heuristic"
)

// Identity derives a stable key for a position across snapshot dates. The key
// is deterministic and tolerant of value fluctuation; a renamed protocol
// produces a new key.
func Identity(p domain.Position) (string, IdentitySource) {
	if id := strings.TrimSpace(p.PositionID); id != "" {
		return id, IdentityProvider
	}

	symbol := ""
	if tok, ok := p.PrimarySupplyToken(); ok {
		symbol = tok.Symbol
	}

	parts := []string{
		normalize(p.ProtocolName),
		normalize(p.Chain),
		classifyType(p.PositionType),
		normalize(symbol),
	}
	return strings.Join(parts, "|"), IdentityHeuristic
}

// normalize lowercases and collapses whitespace runs to single dashes.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "-")
}

// classifyType maps the many provider-specific position type labels onto a
// coarse classification, so cosmetic label changes do not break identity.
func classifyType(positionType string) string {
	t := strings.ToLower(positionType)
	switch {
	case strings.Contains(t, "lend"), strings.Contains(t, "deposit"), strings.Contains(t, "supply"):
		return "lending"
	case strings.Contains(t, "borrow"), strings.Contains(t, "debt"):
		return "borrowing"
	case strings.Contains(t, "liquidity"), strings.Contains(t, "lp"), strings.Contains(t, "pool"):
		return "liquidity"
	case strings.Contains(t, "farm"):
		return "farming"
	case strings.Contains(t, "stak"):
		return "staking"
	case strings.Contains(t, "vest"), strings.Contains(t, "lock"):
		return "locked"
	case t == "":
		return "unknown"
	default:
		return normalize(t)
	}
}
