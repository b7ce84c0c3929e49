package domain

import "time"

// TokenHolding is a single token balance with its USD valuation, either held
// directly in a wallet or locked inside a protocol position.
type TokenHolding struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name,omitempty"`
	Chain    string  `json:"chain,omitempty"`
	Amount   float64 `json:"amount"`
	PriceUSD float64 `json:"priceUsd"`
	ValueUSD float64 `json:"valueUsd"`
}

// Position is a single DeFi protocol holding (lending deposit, LP stake,
// staked asset, ...), distinct from simple wallet-held tokens.
//
// PositionID is the provider-issued identifier when the ingestion source
// supplies one. It may be empty, in which case yield attribution falls back
// to the heuristic identity key (see the apy package).
type Position struct {
	PositionID   string         `json:"positionId,omitempty"`
	ProtocolName string         `json:"protocolName"`
	Chain        string         `json:"chain"`
	PositionType string         `json:"positionType"`
	SupplyTokens []TokenHolding `json:"supplyTokens"`
	RewardTokens []TokenHolding `json:"rewardTokens,omitempty"`
	TotalValue   float64        `json:"totalValue"`
}

// Value returns the position's USD value: TotalValue when the provider set it,
// otherwise the sum of supply and reward token values. This is the only value
// accessor; calculators never probe alternative fields.
func (p Position) Value() float64 {
	if p.TotalValue != 0 {
		return p.TotalValue
	}
	var sum float64
	for _, t := range p.SupplyTokens {
		sum += t.ValueUSD
	}
	for _, t := range p.RewardTokens {
		sum += t.ValueUSD
	}
	return sum
}

// RewardsValue returns the USD value of all pending reward tokens.
func (p Position) RewardsValue() float64 {
	var sum float64
	for _, t := range p.RewardTokens {
		sum += t.ValueUSD
	}
	return sum
}

// PrimarySupplyToken returns the highest-value supply token, or false when the
// position has none.
func (p Position) PrimarySupplyToken() (TokenHolding, bool) {
	if len(p.SupplyTokens) == 0 {
		return TokenHolding{}, false
	}
	primary := p.SupplyTokens[0]
	for _, t := range p.SupplyTokens[1:] {
		if t.ValueUSD > primary.ValueUSD {
			primary = t
		}
	}
	return primary, true
}

// PortfolioSnapshot is a point-in-time capture of a wallet's full token and
// position holdings. One exists per (UserID, WalletAddress, Date); the next
// day's snapshot supersedes it rather than mutating it.
type PortfolioSnapshot struct {
	UserID        string         `json:"userId"`
	WalletAddress string         `json:"walletAddress"`
	Date          time.Time      `json:"date"`
	TotalValue    float64        `json:"totalValue"`
	Tokens        []TokenHolding `json:"tokens"`
	Positions     []Position     `json:"positions"`
}

// TokensValue returns the USD value of wallet-held tokens.
func (s PortfolioSnapshot) TokensValue() float64 {
	var sum float64
	for _, t := range s.Tokens {
		sum += t.ValueUSD
	}
	return sum
}

// PositionsValue returns the USD value of all protocol positions.
func (s PortfolioSnapshot) PositionsValue() float64 {
	var sum float64
	for _, p := range s.Positions {
		sum += p.Value()
	}
	return sum
}

// RewardsValue returns the USD value of pending rewards across all positions.
func (s PortfolioSnapshot) RewardsValue() float64 {
	var sum float64
	for _, p := range s.Positions {
		sum += p.RewardsValue()
	}
	return sum
}
