package models

import "time"

// MarketState is the price state of one market session.
// StartPrice is set once from the first real sample and never overwritten.
type MarketState struct {
	StartPrice   float64 `json:"start_price"`
	CurrentPrice float64 `json:"current_price"`
}

// Observe records a real price. It reports whether the start price was set by this call.
func (s *MarketState) Observe(price float64) bool {
	s.CurrentPrice = price
	if s.StartPrice <= 0 {
		s.StartPrice = price
		return true
	}
	return false
}

// Delta is the fractional drift since the start price, or 0 without a usable start.
func (s MarketState) Delta() float64 {
	if s.StartPrice <= 0 || s.CurrentPrice <= 0 {
		return 0
	}
	return (s.CurrentPrice - s.StartPrice) / s.StartPrice
}

// Ready reports whether both prices are known and positive.
func (s MarketState) Ready() bool {
	return s.StartPrice > 0 && s.CurrentPrice > 0
}

// OddsView is the implied probability and payout multiplier for each side.
type OddsView struct {
	PUp     float64 `json:"p_up"`
	PDown   float64 `json:"p_down"`
	OddUp   float64 `json:"odd_up"`
	OddDown float64 `json:"odd_down"`
}

// DefaultOdds is shown while a market is not ready.
func DefaultOdds() OddsView {
	return OddsView{PUp: 0.5, PDown: 0.5, OddUp: 2, OddDown: 2}
}

// ChartRange is the padded vertical range for rendering a series.
type ChartRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Snapshot is everything a market view renders. It is pushed to subscribers
// on every committed change.
type Snapshot struct {
	SessionID    string        `json:"session_id"`
	MarketID     string        `json:"market_id"`
	Title        string        `json:"title"`
	AssetID      string        `json:"asset_id"`
	Symbol       string        `json:"symbol"`
	OpenedAt     time.Time     `json:"opened_at"`
	ClosesAt     time.Time     `json:"closes_at"`
	SecondsLeft  int           `json:"seconds_left"`
	StartPrice   float64       `json:"start_price"`
	CurrentPrice float64       `json:"current_price"`
	Delta        float64       `json:"delta"`
	Ready        bool          `json:"ready"`
	Odds         OddsView      `json:"odds"`
	Series       []PriceSample `json:"series"`
	Chart        ChartRange    `json:"chart"`
	Ticks        int           `json:"ticks"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Expiry is handed to settlement collaborators when a market's countdown reaches zero.
type Expiry struct {
	SessionID  string      `json:"session_id"`
	Market     QuickMarket `json:"market"`
	StartPrice float64     `json:"start_price"`
	FinalPrice float64     `json:"final_price"`
	Delta      float64     `json:"delta"`
	Odds       OddsView    `json:"odds"`
	ClosedAt   time.Time   `json:"closed_at"`
}

// Direction reports "UP", "DOWN" or "FLAT" for the final drift, or "" if
// either price is unknown.
func (e Expiry) Direction() string {
	if e.StartPrice <= 0 || e.FinalPrice <= 0 {
		return ""
	}
	switch {
	case e.FinalPrice > e.StartPrice:
		return "UP"
	case e.FinalPrice < e.StartPrice:
		return "DOWN"
	default:
		return "FLAT"
	}
}
