package ingest

import (
	"time"

	"github.com/samber/lo"

	"github.com/defolio/defolio/internal/domain"
)

// Provider payloads are loosely shaped: depending on protocol adapter version
// the position value arrives as net_usd_value, usd_value, or only as token
// values. All of that variance is absorbed HERE; the rest of the system sees
// only the canonical domain types.

type providerToken struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Chain    string  `json:"chain"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	USDValue float64 `json:"usd_value"`
}

type providerPosition struct {
	ID           string          `json:"id"`
	Protocol     string          `json:"protocol_name"`
	Chain        string          `json:"chain"`
	Type         string          `json:"position_type"`
	SupplyTokens []providerToken `json:"supply_token_list"`
	RewardTokens []providerToken `json:"reward_token_list"`
	NetUSDValue  float64         `json:"net_usd_value"`
	USDValue     float64         `json:"usd_value"`
}

type providerPortfolio struct {
	Wallet    string             `json:"wallet"`
	Tokens    []providerToken    `json:"token_list"`
	Positions []providerPosition `json:"position_list"`
}

// Normalize maps a raw provider portfolio onto a canonical snapshot for the
// given user and date.
func Normalize(raw providerPortfolio, userID, wallet string, date time.Time) domain.PortfolioSnapshot {
	snap := domain.PortfolioSnapshot{
		UserID:        userID,
		WalletAddress: wallet,
		Date:          date,
		Tokens:        lo.Map(raw.Tokens, func(t providerToken, _ int) domain.TokenHolding { return normalizeToken(t) }),
		Positions:     lo.Map(raw.Positions, func(p providerPosition, _ int) domain.Position { return normalizePosition(p) }),
	}

	snap.TotalValue = snap.TokensValue() + snap.PositionsValue()
	return snap
}

func normalizeToken(t providerToken) domain.TokenHolding {
	value := t.USDValue
	if value == 0 {
		value = t.Amount * t.Price
	}
	return domain.TokenHolding{
		Symbol:   t.Symbol,
		Name:     t.Name,
		Chain:    t.Chain,
		Amount:   t.Amount,
		PriceUSD: t.Price,
		ValueUSD: value,
	}
}

func normalizePosition(p providerPosition) domain.Position {
	pos := domain.Position{
		PositionID:   p.ID,
		ProtocolName: p.Protocol,
		Chain:        p.Chain,
		PositionType: p.Type,
		SupplyTokens: lo.Map(p.SupplyTokens, func(t providerToken, _ int) domain.TokenHolding { return normalizeToken(t) }),
		RewardTokens: lo.Map(p.RewardTokens, func(t providerToken, _ int) domain.TokenHolding { return normalizeToken(t) }),
	}

	// Value resolution order: net_usd_value, usd_value, token sum. This is
	// the single place the variant fields are consulted.
	switch {
	case p.NetUSDValue != 0:
		pos.TotalValue = p.NetUSDValue
	case p.USDValue != 0:
		pos.TotalValue = p.USDValue
	default:
		pos.TotalValue = lo.SumBy(pos.SupplyTokens, func(t domain.TokenHolding) float64 { return t.ValueUSD }) +
			lo.SumBy(pos.RewardTokens, func(t domain.TokenHolding) float64 { return t.ValueUSD })
	}
	return pos
}
